package api

import (
	"embed"
	"html/template"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/intraceai/archive-viewer/internal/collection"
	"github.com/intraceai/archive-viewer/internal/export"
	"github.com/intraceai/archive-viewer/internal/renderer"
	"github.com/intraceai/archive-viewer/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"ago": func(ts string) string {
			t, ok := models.ParseTimestamp(ts)
			if !ok {
				return ""
			}
			return humanize.Time(t)
		},
		"captured": formatCaptured,
	}).ParseFS(templateFS, "templates/*.html")
}

func formatCaptured(ts string) string {
	t, ok := models.ParseTimestamp(ts)
	if !ok {
		return ts
	}
	return t.UTC().Format("Jan 2, 2006 at 15:04 UTC")
}

type page struct {
	Title  string
	Notice *notice
}

type homePage struct {
	page
	Domain string
}

type hiddenField struct {
	Name  string
	Value string
}

type snapshotRow struct {
	models.Snapshot
	Display  string
	Class    string
	Selected bool
	CanView  bool
}

type filterForm struct {
	Status string
	Size   string
	From   string
	To     string
	Q      string
}

type calendarDay struct {
	Date   string
	Count  int
	URL    string
	Active bool
}

type calendarView struct {
	Days       []calendarDay
	Selected   string
	OnSelected []snapshotRow
	DayCount   int
	Total      int
}

type archivePage struct {
	page
	Domain        string
	Phase         string
	Message       string
	Summary       string
	Rows          []snapshotRow
	Filters       []string
	Form          filterForm
	Mode          string
	Calendar      *calendarView
	Hidden        []hiddenField
	Selected      []string
	SelectedCount int
	AllSelected   bool
	AllowDelete   bool
	Export        export.Options
	ClearURL      string
	ListURL       string
	CalendarURL   string
}

type exportPage struct {
	page
	Domain   string
	Job      models.ExportJobResponse
	Running  bool
	Done     bool
	Failed   bool
	Options  export.Options
	Selected []string
	Size     string
	Expires  string
	BackURL  string
}

type viewerPage struct {
	page
	Domain   string
	Snapshot models.Snapshot
	Frame    renderer.Frame
	Mode     string
	Modes    []modeLink
	BackURL  string
	Captured string
}

type modeLink struct {
	Label  string
	URL    string
	Active bool
}

type errorPage struct {
	page
	Status  int
	Message string
	BackURL string
}

func rowsFor(snapshots []models.Snapshot, st collection.State) []snapshotRow {
	rows := make([]snapshotRow, 0, len(snapshots))
	for _, snap := range snapshots {
		rows = append(rows, snapshotRow{
			Snapshot: snap,
			Display:  snap.DisplayTitle(snap.URL),
			Class:    collection.StatusStyle(snap.Status).Class(),
			Selected: st.IsSelected(snap.Timestamp),
			CanView:  collection.CanView(snap.Status),
		})
	}
	return rows
}

func archiveURL(domain string, q url.Values) string {
	u := "/archive/" + url.PathEscape(domain)
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

func exportURL(id string) string {
	return "/exports/" + url.PathEscape(id)
}

func humanExpiry(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}
