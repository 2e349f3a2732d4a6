package export

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/intraceai/archive-viewer/internal/metrics"
	"github.com/intraceai/archive-viewer/pkg/models"
	"github.com/intraceai/archive-viewer/pkg/shared"
)

type Format string

const (
	FormatZip  Format = "zip"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatZip, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatZip, nil
	default:
		return "", &shared.ValidationError{Field: "format", Message: fmt.Sprintf("unsupported export format %q", s)}
	}
}

// Options are recorded in JSON output but never decide which snapshots
// are exported.
type Options struct {
	Format          Format `json:"format"`
	IncludeMetadata bool   `json:"includeMetadata"`
	IncludeContent  bool   `json:"includeContent"`
	IncludeImages   bool   `json:"includeImages"`
}

func DefaultOptions() Options {
	return Options{
		Format:          FormatZip,
		IncludeMetadata: true,
		IncludeContent:  true,
		IncludeImages:   false,
	}
}

// File is a finished, downloadable export.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	SHA256      string
}

// ProgressFunc receives percentages from 0 to 100 in increasing order.
type ProgressFunc func(percent int)

type Workflow struct {
	now       func() time.Time
	stepDelay time.Duration
	marshal   func(v any) ([]byte, error)
}

type WorkflowOption func(*Workflow)

// WithStepDelay sets the pause between progress steps. Zero completes
// immediately.
func WithStepDelay(d time.Duration) WorkflowOption {
	return func(w *Workflow) { w.stepDelay = d }
}

func WithClock(now func() time.Time) WorkflowOption {
	return func(w *Workflow) { w.now = now }
}

func NewWorkflow(opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		now:     time.Now,
		marshal: marshalIndent,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

const progressStep = 10

// Run serializes snapshots according to opts. It is not cancelable; the
// returned File is complete or nil.
func (w *Workflow) Run(snapshots []models.Snapshot, opts Options, progress ProgressFunc) (*File, error) {
	if progress == nil {
		progress = func(int) {}
	}

	for p := 0; p < 100; p += progressStep {
		progress(p)
		if w.stepDelay > 0 {
			time.Sleep(w.stepDelay)
		}
	}

	file, err := w.Serialize(snapshots, opts)
	if err != nil {
		metrics.ExportsTotal.WithLabelValues(string(opts.Format), "error").Inc()
		return nil, err
	}
	metrics.ExportsTotal.WithLabelValues(string(opts.Format), "ok").Inc()
	progress(100)
	return file, nil
}

// Serialize builds the export file without progress reporting.
func (w *Workflow) Serialize(snapshots []models.Snapshot, opts Options) (*File, error) {
	now := w.now().UTC()
	day := now.Format("2006-01-02")

	var (
		data []byte
		err  error
		file File
	)
	switch opts.Format {
	case FormatJSON:
		data, err = w.encodeJSON(snapshots, opts, now)
		file.Name = fmt.Sprintf("snapshots-%s.json", day)
		file.ContentType = "application/json"
	case FormatCSV:
		data = encodeCSV(snapshots)
		file.Name = fmt.Sprintf("snapshots-%s.csv", day)
		file.ContentType = "text/csv"
	case FormatZip:
		data = encodeListing(snapshots)
		file.Name = fmt.Sprintf("snapshots-%s.txt", day)
		file.ContentType = "text/plain"
	default:
		err = fmt.Errorf("unsupported format %q", opts.Format)
	}
	if err != nil {
		return nil, &shared.ExportError{Format: string(opts.Format), Err: err}
	}

	file.Data = data
	file.SHA256 = checksum(data)
	return &file, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type jsonSnapshot struct {
	Timestamp     string        `json:"timestamp"`
	URL           string        `json:"url"`
	Title         string        `json:"title,omitempty"`
	Status        models.Status `json:"status"`
	Size          string        `json:"size,omitempty"`
	ExportedAt    string        `json:"exportedAt,omitempty"`
	ExportOptions *Options      `json:"exportOptions,omitempty"`
}

type jsonDocument struct {
	Snapshots  []jsonSnapshot `json:"snapshots"`
	TotalCount int            `json:"totalCount"`
	ExportedAt string         `json:"exportedAt"`
}

func isoMillis(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000Z07:00")
}

func (w *Workflow) encodeJSON(snapshots []models.Snapshot, opts Options, now time.Time) ([]byte, error) {
	doc := jsonDocument{
		Snapshots:  make([]jsonSnapshot, 0, len(snapshots)),
		TotalCount: len(snapshots),
		ExportedAt: isoMillis(now),
	}
	for _, s := range snapshots {
		item := jsonSnapshot{
			Timestamp: s.Timestamp,
			URL:       s.URL,
			Title:     s.Title,
			Status:    s.Status,
			Size:      s.Size,
		}
		if opts.IncludeMetadata {
			o := opts
			item.ExportedAt = doc.ExportedAt
			item.ExportOptions = &o
		}
		doc.Snapshots = append(doc.Snapshots, item)
	}
	return w.marshal(doc)
}

func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

var csvHeader = []string{"Timestamp", "URL", "Title", "Status", "Size"}

// encodeCSV quotes every field, which encoding/csv cannot be told to do.
func encodeCSV(snapshots []models.Snapshot) []byte {
	lines := make([]string, 0, len(snapshots)+1)
	lines = append(lines, strings.Join(csvHeader, ","))
	for _, s := range snapshots {
		fields := []string{s.Timestamp, s.URL, s.Title, string(s.Status), s.Size}
		for i, f := range fields {
			fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		}
		lines = append(lines, strings.Join(fields, ","))
	}
	return []byte(strings.Join(lines, "\n"))
}

func encodeListing(snapshots []models.Snapshot) []byte {
	var b strings.Builder
	b.WriteString("Archive Export - " + strconv.Itoa(len(snapshots)) + " snapshots\n\n")
	for i, s := range snapshots {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s (%s)", s.Timestamp, s.DisplayTitle(s.URL), s.Status)
	}
	return []byte(b.String())
}
