package filter

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intraceai/archive-viewer/pkg/models"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func sampleSnapshots() []models.Snapshot {
	return []models.Snapshot{
		{Timestamp: "2024-06-21T10:30:00Z", URL: "https://example.com/", Title: "Homepage - Example.com", Status: models.StatusCompleted, Size: "2.4MB"},
		{Timestamp: "2024-06-15T14:22:00Z", URL: "https://example.com/blog", Title: "Blog", Status: models.StatusProcessing, Size: "0.5MB"},
		{Timestamp: "2024-06-10T09:15:00Z", URL: "https://example.com/docs", Status: models.StatusFailed},
		{Timestamp: "2024-06-05T16:45:00Z", URL: "https://example.com/", Title: "Homepage", Status: models.StatusCompleted, Size: "7.1 MB"},
	}
}

func randomSnapshots(r *rand.Rand, n int) []models.Snapshot {
	statuses := []models.Status{models.StatusCompleted, models.StatusProcessing, models.StatusFailed, "queued"}
	sizes := []string{"", "0.2MB", "1MB", "1.0MB", "3.3MB", "5MB", "5.0 MB", "9MB", "512KB", "garbage"}
	out := make([]models.Snapshot, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = models.Snapshot{
			Timestamp: base.Add(time.Duration(r.Intn(365*24)) * time.Hour).Format(time.RFC3339),
			URL:       fmt.Sprintf("https://site%d.com/page", r.Intn(5)),
			Title:     fmt.Sprintf("Page %d", i),
			Status:    statuses[r.Intn(len(statuses))],
			Size:      sizes[r.Intn(len(sizes))],
		}
	}
	return out
}

func TestApplyEmptyCriteriaIsIdentity(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		list := randomSnapshots(r, r.Intn(20))
		got := Apply(list, Criteria{})
		assert.Equal(t, len(list), len(got))
		for j := range list {
			assert.Equal(t, list[j], got[j])
		}
	}
}

func TestApplyStatusIsStableAndComplete(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		list := randomSnapshots(r, 30)
		got := Apply(list, Criteria{Status: models.StatusCompleted})

		var want []models.Snapshot
		for _, s := range list {
			if s.Status == models.StatusCompleted {
				want = append(want, s)
			}
		}
		if want == nil {
			want = []models.Snapshot{}
		}
		assert.Equal(t, want, got)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	list := sampleSnapshots()
	before := append([]models.Snapshot(nil), list...)

	_ = Apply(list, Criteria{Status: models.StatusFailed, Search: "docs"})
	assert.Equal(t, before, list)
}

func TestSizeBuckets(t *testing.T) {
	tests := []struct {
		size string
		want SizeBucket
		ok   bool
	}{
		{"0.99MB", SizeSmall, true},
		{"512KB", SizeSmall, true},
		{"1MB", SizeMedium, true},
		{"1.0MB", SizeMedium, true},
		{"2.4MB", SizeMedium, true},
		{"5.0MB", SizeMedium, true},
		{"5 MB", SizeMedium, true},
		{"5.01MB", SizeLarge, true},
		{"1GB", SizeLarge, true},
		{"3", SizeMedium, true},
		{"", "", false},
		{"unknown", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			got, ok := BucketOf(tt.size)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSizeBucketsPartitionSizedSnapshots(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	list := randomSnapshots(r, 200)

	small := Apply(list, Criteria{Size: SizeSmall})
	medium := Apply(list, Criteria{Size: SizeMedium})
	large := Apply(list, Criteria{Size: SizeLarge})

	sized := 0
	for _, s := range list {
		if _, ok := BucketOf(s.Size); ok {
			sized++
		}
	}
	assert.Equal(t, sized, len(small)+len(medium)+len(large))

	seen := map[string]int{}
	for _, group := range [][]models.Snapshot{small, medium, large} {
		for _, s := range group {
			seen[s.Title]++
		}
	}
	for title, n := range seen {
		assert.Equal(t, 1, n, "snapshot %s in more than one bucket", title)
	}
}

func TestSizeConstraintExcludesUnsized(t *testing.T) {
	got := Apply(sampleSnapshots(), Criteria{Size: SizeSmall})
	require.Len(t, got, 1)
	assert.Equal(t, "Blog", got[0].Title)

	for _, s := range Apply(sampleSnapshots(), Criteria{Size: SizeMedium}) {
		assert.NotEmpty(t, s.Size)
	}
}

func TestDateRangeScenario(t *testing.T) {
	list := []models.Snapshot{
		{Timestamp: "2024-06-05T16:45:00Z", URL: "https://example.com", Status: models.StatusCompleted},
		{Timestamp: "2024-06-15T14:22:00Z", URL: "https://example.com", Status: models.StatusCompleted},
		{Timestamp: "2024-06-21T10:30:00Z", URL: "https://example.com", Status: models.StatusCompleted},
	}

	got := Apply(list, Criteria{DateRange: &DateRange{From: date("2024-06-10"), To: date("2024-06-20")}})
	require.Len(t, got, 1)
	assert.Equal(t, "2024-06-15T14:22:00Z", got[0].Timestamp)
}

func TestDateRangeUsesFullTimestamp(t *testing.T) {
	list := []models.Snapshot{{Timestamp: "2024-06-20T10:00:00Z"}}

	// "to" of 2024-06-20 is midnight, so a capture later that day is outside.
	assert.Empty(t, Apply(list, Criteria{DateRange: &DateRange{To: date("2024-06-20")}}))
	assert.Len(t, Apply(list, Criteria{DateRange: &DateRange{From: date("2024-06-20")}}), 1)
}

func TestDateRangeBoundsAreInclusive(t *testing.T) {
	list := []models.Snapshot{{Timestamp: "2024-06-10T00:00:00Z"}, {Timestamp: "2024-06-20T00:00:00Z"}}
	got := Apply(list, Criteria{DateRange: &DateRange{From: date("2024-06-10"), To: date("2024-06-20")}})
	assert.Len(t, got, 2)
}

func TestDateRangeExcludesUnparseableTimestamps(t *testing.T) {
	list := []models.Snapshot{{Timestamp: "not-a-date"}}
	assert.Empty(t, Apply(list, Criteria{DateRange: &DateRange{From: date("2024-01-01")}}))
	assert.Len(t, Apply(list, Criteria{}), 1)
}

func TestSearchMatchesTitleOrURL(t *testing.T) {
	list := sampleSnapshots()

	got := Apply(list, Criteria{Search: "HOMEPAGE"})
	assert.Len(t, got, 2)

	got = Apply(list, Criteria{Search: "/docs"})
	require.Len(t, got, 1)
	assert.Equal(t, models.StatusFailed, got[0].Status)
}

func TestCriteriaCompose(t *testing.T) {
	got := Apply(sampleSnapshots(), Criteria{Status: models.StatusCompleted, Size: SizeLarge, Search: "home"})
	require.Len(t, got, 1)
	assert.Equal(t, "2024-06-05T16:45:00Z", got[0].Timestamp)
}
