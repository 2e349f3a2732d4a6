package models

import "time"

type Status string

const (
	StatusCompleted  Status = "completed"
	StatusProcessing Status = "processing"
	StatusFailed     Status = "failed"
)

// Snapshot is one archived capture of a URL. Timestamp is its identity
// within a domain.
type Snapshot struct {
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Status    Status `json:"status"`
	Size      string `json:"size,omitempty"`
}

// CapturedAt parses the snapshot timestamp. The second return is false
// when the timestamp is not a recognizable ISO-8601 value.
func (s Snapshot) CapturedAt() (time.Time, bool) {
	return ParseTimestamp(s.Timestamp)
}

// DisplayTitle falls back to the given default when the capture has no title.
func (s Snapshot) DisplayTitle(fallback string) string {
	if s.Title != "" {
		return s.Title
	}
	return fallback
}

type ArchiveResponse struct {
	Domain    string     `json:"domain"`
	Snapshots []Snapshot `json:"snapshots"`
	Total     int        `json:"total"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp accepts full RFC 3339 values as well as the zone-less
// and date-only forms the backend emits for older captures. Zone-less
// values are read as UTC.
func ParseTimestamp(ts string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
