package collection

import (
	"sort"
	"time"

	"github.com/intraceai/archive-viewer/pkg/models"
)

const DayLayout = "2006-01-02"

type Day struct {
	Date      string
	Snapshots []models.Snapshot
}

// Calendar is the day-grouped projection of the filtered view.
type Calendar struct {
	Days     []Day
	Selected string
	// OnSelected holds the snapshots captured on the Selected day.
	OnSelected []models.Snapshot
	Total      int
}

func (c Calendar) DaysWithSnapshots() int {
	return len(c.Days)
}

// Calendar groups the filtered snapshots by capture day. selected is a
// YYYY-MM-DD day; snapshots with unparseable timestamps are left out.
func (v *View) Calendar(selected string) Calendar {
	v.mu.Lock()
	filtered := append([]models.Snapshot{}, v.filtered...)
	loc := v.location
	v.mu.Unlock()

	return BuildCalendar(filtered, loc, selected)
}

func BuildCalendar(snapshots []models.Snapshot, loc *time.Location, selected string) Calendar {
	if loc == nil {
		loc = time.UTC
	}

	byDay := make(map[string][]models.Snapshot)
	for _, s := range snapshots {
		t, ok := s.CapturedAt()
		if !ok {
			continue
		}
		key := t.In(loc).Format(DayLayout)
		byDay[key] = append(byDay[key], s)
	}

	days := make([]Day, 0, len(byDay))
	for date, snaps := range byDay {
		days = append(days, Day{Date: date, Snapshots: snaps})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	return Calendar{
		Days:       days,
		Selected:   selected,
		OnSelected: byDay[selected],
		Total:      len(snapshots),
	}
}
