package collection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intraceai/archive-viewer/pkg/models"
)

func TestCalendarGroupsByDay(t *testing.T) {
	snaps := []models.Snapshot{
		{Timestamp: "2024-06-21T10:30:00Z"},
		{Timestamp: "2024-06-05T16:45:00Z"},
		{Timestamp: "2024-06-21T18:00:00Z"},
		{Timestamp: "garbage"},
	}
	v := readyView(t, snaps)

	cal := v.Calendar("2024-06-21")
	assert.Equal(t, 2, cal.DaysWithSnapshots())
	assert.Equal(t, 4, cal.Total)
	require.Len(t, cal.Days, 2)
	assert.Equal(t, "2024-06-05", cal.Days[0].Date)
	assert.Len(t, cal.OnSelected, 2)
	assert.Len(t, cal.Days[1].Snapshots, 2)
}

func TestCalendarRespectsLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	cal := BuildCalendar([]models.Snapshot{{Timestamp: "2024-06-21T20:00:00Z"}}, tokyo, "2024-06-22")
	assert.Len(t, cal.OnSelected, 1)
}

func TestCalendarEmptyDay(t *testing.T) {
	cal := BuildCalendar(exampleSnapshots(), nil, "2030-01-01")
	assert.Empty(t, cal.OnSelected)
	assert.Equal(t, 3, cal.DaysWithSnapshots())
}
