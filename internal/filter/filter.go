// Package filter narrows a snapshot listing by status, size, capture time
// and free text. Apply never modifies its input.
package filter

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/intraceai/archive-viewer/pkg/models"
)

type SizeBucket string

const (
	SizeSmall  SizeBucket = "small"
	SizeMedium SizeBucket = "medium"
	SizeLarge  SizeBucket = "large"
)

func (b SizeBucket) Valid() bool {
	switch b {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// DateRange bounds are inclusive; a nil bound is open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (r *DateRange) IsZero() bool {
	return r == nil || (r.From == nil && r.To == nil)
}

// Criteria is ANDed across every non-empty field.
type Criteria struct {
	Status    models.Status
	Size      SizeBucket
	DateRange *DateRange
	Search    string
}

func (c Criteria) IsEmpty() bool {
	return c.Status == "" && c.Size == "" && c.DateRange.IsZero() && c.Search == ""
}

// Apply returns the snapshots matching c in their original order.
func Apply(snapshots []models.Snapshot, c Criteria) []models.Snapshot {
	out := make([]models.Snapshot, 0, len(snapshots))
	search := strings.ToLower(c.Search)

	for _, s := range snapshots {
		if c.Status != "" && s.Status != c.Status {
			continue
		}
		if c.Size != "" && !matchSize(s.Size, c.Size) {
			continue
		}
		if !c.DateRange.IsZero() && !matchDate(s, c.DateRange) {
			continue
		}
		if search != "" && !matchText(s, search) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// BucketOf reports the size bucket of a serialized size such as "2.4MB".
// The second return is false when size is missing or unparseable.
func BucketOf(size string) (SizeBucket, bool) {
	mb, ok := ParseMegabytes(size)
	if !ok {
		return "", false
	}
	switch {
	case mb < 1:
		return SizeSmall, true
	case mb <= 5:
		return SizeMedium, true
	default:
		return SizeLarge, true
	}
}

// ParseMegabytes converts a size string to SI megabytes. A bare number
// is already in megabytes.
func ParseMegabytes(size string) (float64, bool) {
	size = strings.TrimSpace(size)
	if size == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(size, 64); err == nil {
		return v, true
	}
	b, err := humanize.ParseBytes(size)
	if err != nil {
		return 0, false
	}
	return float64(b) / 1e6, true
}

func matchSize(size string, want SizeBucket) bool {
	got, ok := BucketOf(size)
	return ok && got == want
}

func matchDate(s models.Snapshot, r *DateRange) bool {
	t, ok := s.CapturedAt()
	if !ok {
		return false
	}
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

func matchText(s models.Snapshot, lowered string) bool {
	return strings.Contains(strings.ToLower(s.Title), lowered) ||
		strings.Contains(strings.ToLower(s.URL), lowered)
}
