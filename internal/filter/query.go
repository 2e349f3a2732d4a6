package filter

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/intraceai/archive-viewer/pkg/models"
	"github.com/intraceai/archive-viewer/pkg/shared"
)

const dateLayout = "2006-01-02"

// ParseCriteria reads criteria from query parameters status, size, from,
// to and q. Dates are either YYYY-MM-DD or RFC 3339. A bare date covers
// the whole UTC day: from is its first instant, to its last.
func ParseCriteria(v url.Values) (Criteria, error) {
	var c Criteria

	if s := strings.TrimSpace(v.Get("status")); s != "" {
		c.Status = models.Status(s)
	}

	if s := strings.TrimSpace(v.Get("size")); s != "" {
		b := SizeBucket(s)
		if !b.Valid() {
			return Criteria{}, &shared.ValidationError{Field: "size", Message: fmt.Sprintf("unknown size bucket %q", s)}
		}
		c.Size = b
	}

	from, err := parseBound("from", v.Get("from"), false)
	if err != nil {
		return Criteria{}, err
	}
	to, err := parseBound("to", v.Get("to"), true)
	if err != nil {
		return Criteria{}, err
	}
	if from != nil || to != nil {
		c.DateRange = &DateRange{From: from, To: to}
	}

	c.Search = v.Get("q")
	return c, nil
}

func parseBound(field, raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	return nil, &shared.ValidationError{Field: field, Message: fmt.Sprintf("invalid date %q", raw)}
}

// Values is the inverse of ParseCriteria.
func (c Criteria) Values() url.Values {
	v := url.Values{}
	if c.Status != "" {
		v.Set("status", string(c.Status))
	}
	if c.Size != "" {
		v.Set("size", string(c.Size))
	}
	if c.DateRange != nil {
		if c.DateRange.From != nil {
			v.Set("from", formatBound(*c.DateRange.From, false))
		}
		if c.DateRange.To != nil {
			v.Set("to", formatBound(*c.DateRange.To, true))
		}
	}
	if c.Search != "" {
		v.Set("q", c.Search)
	}
	return v
}

func formatBound(t time.Time, endOfDay bool) string {
	day := t
	if endOfDay {
		day = t.Add(time.Nanosecond)
	}
	if t.Location() == time.UTC && day.Equal(day.Truncate(24*time.Hour)) {
		return t.Format(dateLayout)
	}
	return t.Format(time.RFC3339Nano)
}

// Active describes each constraint in effect, for display as badges.
func (c Criteria) Active() []string {
	var out []string
	if c.Status != "" {
		out = append(out, "Status: "+string(c.Status))
	}
	if c.Size != "" {
		out = append(out, "Size: "+string(c.Size))
	}
	if c.DateRange != nil {
		if c.DateRange.From != nil {
			out = append(out, "From: "+c.DateRange.From.Format("Jan 02"))
		}
		if c.DateRange.To != nil {
			out = append(out, "To: "+c.DateRange.To.Format("Jan 02"))
		}
	}
	if c.Search != "" {
		out = append(out, "Search: "+c.Search)
	}
	return out
}
