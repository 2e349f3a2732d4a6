package collection

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intraceai/archive-viewer/internal/filter"
	"github.com/intraceai/archive-viewer/pkg/models"
	"github.com/intraceai/archive-viewer/pkg/shared"
)

func exampleSnapshots() []models.Snapshot {
	return []models.Snapshot{
		{Timestamp: "2024-06-05T16:45:00Z", URL: "https://example.com", Title: "Homepage", Status: models.StatusCompleted, Size: "2.0MB"},
		{Timestamp: "2024-06-15T14:22:00Z", URL: "https://example.com", Title: "Homepage", Status: models.StatusCompleted, Size: "2.1MB"},
		{Timestamp: "2024-06-21T10:30:00Z", URL: "https://example.com", Title: "Homepage", Status: models.StatusCompleted, Size: "2.4MB"},
	}
}

func staticLister(snaps []models.Snapshot, err error) ListerFunc {
	return func(_ context.Context, domain string) (*models.ArchiveResponse, error) {
		if err != nil {
			return nil, err
		}
		return &models.ArchiveResponse{Domain: domain, Snapshots: snaps, Total: len(snaps)}, nil
	}
}

type fakeDeleter struct {
	err   error
	calls [][]models.Snapshot
}

func (d *fakeDeleter) DeleteSnapshots(_ context.Context, _ string, snaps []models.Snapshot) error {
	d.calls = append(d.calls, snaps)
	return d.err
}

func readyView(t *testing.T, snaps []models.Snapshot, opts ...Option) *View {
	t.Helper()
	v := New(staticLister(snaps, nil), opts...)
	require.NoError(t, v.Load(context.Background(), "example.com"))
	return v
}

func TestNewViewStartsLoading(t *testing.T) {
	v := New(staticLister(nil, nil))
	assert.Equal(t, PhaseLoading, v.State().Phase)
}

func TestLoadReady(t *testing.T) {
	v := readyView(t, exampleSnapshots())
	st := v.State()

	assert.Equal(t, PhaseReady, st.Phase)
	assert.Equal(t, "example.com", st.Domain)
	assert.Equal(t, exampleSnapshots(), st.Snapshots)
	assert.Equal(t, st.Snapshots, st.Filtered)
	assert.Empty(t, st.Selected)
	assert.Equal(t, "3 of 3 snapshots shown", st.Summary())
}

func TestLoadBackendFailure(t *testing.T) {
	err := &shared.NetworkError{Op: "GET", URL: "http://localhost:8000/archive/example.com", StatusCode: 500}
	v := New(staticLister(nil, err), WithBackendURL("http://localhost:8000"))

	got := v.Load(context.Background(), "example.com")
	require.Error(t, got)
	assert.Equal(t, shared.KindNetwork, shared.KindOf(got))

	st := v.State()
	assert.Equal(t, PhaseError, st.Phase)
	assert.Contains(t, st.Message, "backend is running on http://localhost:8000")
	assert.Empty(t, st.Snapshots)
}

func TestLoadDeduplicatesByTimestamp(t *testing.T) {
	snaps := append(exampleSnapshots(), models.Snapshot{Timestamp: "2024-06-05T16:45:00Z", Title: "dup"})
	v := readyView(t, snaps)
	assert.Len(t, v.State().Snapshots, 3)
}

func TestStaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	lister := ListerFunc(func(ctx context.Context, domain string) (*models.ArchiveResponse, error) {
		if domain == "slow.com" {
			<-release
			return &models.ArchiveResponse{Domain: domain, Snapshots: []models.Snapshot{{Timestamp: "slow"}}}, nil
		}
		return &models.ArchiveResponse{Domain: domain, Snapshots: exampleSnapshots()}, nil
	})
	v := New(lister)

	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		slowErr = v.Load(context.Background(), "slow.com")
	}()

	// Wait for the slow load to register before starting the newer one.
	require.Eventually(t, func() bool { return v.State().Domain == "slow.com" }, time.Second, time.Millisecond)
	require.NoError(t, v.Load(context.Background(), "example.com"))
	close(release)
	wg.Wait()

	assert.ErrorIs(t, slowErr, ErrSuperseded)
	st := v.State()
	assert.Equal(t, "example.com", st.Domain)
	assert.Len(t, st.Snapshots, 3)
}

func TestDateRangeFilterScenario(t *testing.T) {
	v := readyView(t, exampleSnapshots())

	from := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
	v.SetCriteria(filter.Criteria{DateRange: &filter.DateRange{From: &from, To: &to}})

	st := v.State()
	require.Len(t, st.Filtered, 1)
	assert.Equal(t, "2024-06-15T14:22:00Z", st.Filtered[0].Timestamp)
	assert.Len(t, st.Snapshots, 3)
	assert.Equal(t, "1 of 3 snapshots shown", st.Summary())
}

func TestFilterChangeKeepsSelection(t *testing.T) {
	v := readyView(t, exampleSnapshots())
	v.Toggle("2024-06-05T16:45:00Z")

	v.SetCriteria(filter.Criteria{Search: "nothing matches"})
	assert.Equal(t, []string{"2024-06-05T16:45:00Z"}, v.State().Selected)
	assert.Empty(t, v.SelectedSnapshots())
}

func TestToggleIgnoresUnknownIDs(t *testing.T) {
	v := readyView(t, exampleSnapshots())
	assert.False(t, v.Toggle("1999-01-01T00:00:00Z"))
	assert.Empty(t, v.State().Selected)
}

func TestToggleAllUsesFilteredView(t *testing.T) {
	snaps := exampleSnapshots()
	snaps[0].Status = models.StatusFailed
	v := readyView(t, snaps)

	v.SetCriteria(filter.Criteria{Status: models.StatusCompleted})
	v.ToggleAll()
	assert.Equal(t, []string{snaps[1].Timestamp, snaps[2].Timestamp}, v.State().Selected)
	assert.True(t, v.State().AllSelected())

	v.ToggleAll()
	assert.Empty(t, v.State().Selected)
}

func TestSelectDropsUnknown(t *testing.T) {
	v := readyView(t, exampleSnapshots())
	v.Select("2024-06-21T10:30:00Z", "bogus", "2024-06-21T10:30:00Z")
	assert.Equal(t, []string{"2024-06-21T10:30:00Z"}, v.State().Selected)
}

func TestDeleteSelected(t *testing.T) {
	d := &fakeDeleter{}
	v := readyView(t, exampleSnapshots(), WithDeleter(d))
	v.Select("2024-06-05T16:45:00Z", "2024-06-21T10:30:00Z")

	deleted, err := v.DeleteSelected(context.Background())
	require.NoError(t, err)
	assert.Len(t, deleted, 2)
	require.Len(t, d.calls, 1)

	st := v.State()
	require.Len(t, st.Snapshots, 1)
	assert.Equal(t, "2024-06-15T14:22:00Z", st.Snapshots[0].Timestamp)
	assert.Empty(t, st.Selected)
	for _, id := range st.Selected {
		assert.True(t, v.hasLocked(id))
	}
}

func TestDeleteOnlyTouchesFilteredSelection(t *testing.T) {
	d := &fakeDeleter{}
	v := readyView(t, exampleSnapshots(), WithDeleter(d))
	v.Select("2024-06-05T16:45:00Z", "2024-06-21T10:30:00Z")
	v.SetCriteria(filter.Criteria{Search: "example"})

	from := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
	v.SetCriteria(filter.Criteria{DateRange: &filter.DateRange{From: &from}})

	deleted, err := v.DeleteSelected(context.Background())
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "2024-06-21T10:30:00Z", deleted[0].Timestamp)

	st := v.State()
	assert.Len(t, st.Snapshots, 2)
	assert.Equal(t, []string{"2024-06-05T16:45:00Z"}, st.Selected)
}

func TestDeleteFailureLeavesStateUnchanged(t *testing.T) {
	d := &fakeDeleter{err: errors.New("backend refused")}
	v := readyView(t, exampleSnapshots(), WithDeleter(d))
	v.Select("2024-06-05T16:45:00Z")
	before := v.State()

	_, err := v.DeleteSelected(context.Background())
	require.Error(t, err)
	assert.Equal(t, before, v.State())
}

func TestDeleteUnsupported(t *testing.T) {
	v := readyView(t, exampleSnapshots())
	_, err := v.DeleteSelected(context.Background())
	assert.ErrorIs(t, err, ErrDeleteUnsupported)
}

func TestDeleteNothingSelected(t *testing.T) {
	d := &fakeDeleter{}
	v := readyView(t, exampleSnapshots(), WithDeleter(d))

	deleted, err := v.DeleteSelected(context.Background())
	require.NoError(t, err)
	assert.Empty(t, deleted)
	assert.Empty(t, d.calls)
}

func TestOpenCompleted(t *testing.T) {
	v := readyView(t, exampleSnapshots())
	route, err := v.Open("2024-06-21T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, "/snapshot/example.com/2024-06-21T10:30:00Z", route)
}

func TestOpenProcessingIsUnavailable(t *testing.T) {
	snaps := exampleSnapshots()
	snaps[1].Status = models.StatusProcessing
	v := readyView(t, snaps)

	route, err := v.Open(snaps[1].Timestamp)
	assert.Empty(t, route)
	require.Error(t, err)
	assert.Equal(t, shared.KindUnavailableAction, shared.KindOf(err))
	assert.True(t, strings.Contains(err.Error(), "processing"))
}

func TestOpenUnknown(t *testing.T) {
	v := readyView(t, exampleSnapshots())
	_, err := v.Open("nope")
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestStatusStyle(t *testing.T) {
	assert.Equal(t, StyleSuccess, StatusStyle(models.StatusCompleted))
	assert.Equal(t, StyleWarning, StatusStyle(models.StatusProcessing))
	assert.Equal(t, StyleError, StatusStyle(models.StatusFailed))
	assert.Equal(t, StyleNeutral, StatusStyle("queued"))
	assert.Equal(t, "badge-neutral", StatusStyle("").Class())
	assert.True(t, CanView(models.StatusCompleted))
	assert.False(t, CanView(models.StatusFailed))
}

func TestSummarySingular(t *testing.T) {
	v := readyView(t, exampleSnapshots()[:1])
	assert.Equal(t, "1 of 1 snapshot shown", v.State().Summary())
}
