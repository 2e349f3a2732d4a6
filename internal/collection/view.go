// Package collection implements the snapshot collection view for one
// domain as an explicit state machine:
//
//	Loading --list ok--> Ready --filter/select/delete--> Ready
//	Loading --list err-> Error
//
// Every transition is a method call, so the view can be driven and
// tested without a UI.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/intraceai/archive-viewer/internal/filter"
	"github.com/intraceai/archive-viewer/internal/selection"
	"github.com/intraceai/archive-viewer/pkg/models"
	"github.com/intraceai/archive-viewer/pkg/shared"
)

var (
	// ErrSuperseded is returned by Load when a newer Load started before
	// this one finished. Its result was discarded.
	ErrSuperseded = errors.New("collection: response superseded by a newer request")

	ErrDeleteUnsupported = errors.New("collection: delete is not enabled")
	ErrNotReady          = errors.New("collection: view is not ready")
)

type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type Lister interface {
	ListSnapshots(ctx context.Context, domain string) (*models.ArchiveResponse, error)
}

type ListerFunc func(ctx context.Context, domain string) (*models.ArchiveResponse, error)

func (f ListerFunc) ListSnapshots(ctx context.Context, domain string) (*models.ArchiveResponse, error) {
	return f(ctx, domain)
}

// Deleter is the optional bulk delete collaborator.
type Deleter interface {
	DeleteSnapshots(ctx context.Context, domain string, snapshots []models.Snapshot) error
}

// State is a point-in-time copy of a view, safe to hand to templates.
type State struct {
	Phase     Phase
	Domain    string
	Message   string
	Snapshots []models.Snapshot
	Filtered  []models.Snapshot
	Criteria  filter.Criteria
	Selected  []string
}

type View struct {
	lister     Lister
	deleter    Deleter
	backendURL string
	location   *time.Location
	logger     *slog.Logger

	mu        sync.Mutex
	gen       uint64
	phase     Phase
	domain    string
	message   string
	snapshots []models.Snapshot
	filtered  []models.Snapshot
	criteria  filter.Criteria
	selection *selection.Set
}

type Option func(*View)

func WithDeleter(d Deleter) Option {
	return func(v *View) { v.deleter = d }
}

// WithBackendURL sets the backend address quoted in load error messages.
func WithBackendURL(u string) Option {
	return func(v *View) { v.backendURL = u }
}

// WithLocation sets the zone used to group snapshots into calendar days.
func WithLocation(loc *time.Location) Option {
	return func(v *View) { v.location = loc }
}

func WithLogger(l *slog.Logger) Option {
	return func(v *View) { v.logger = l }
}

func New(lister Lister, opts ...Option) *View {
	v := &View{
		lister:     lister,
		backendURL: "http://localhost:8000",
		location:   time.UTC,
		logger:     slog.Default(),
		phase:      PhaseLoading,
		selection:  selection.New(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Load enters Loading for domain and fetches its snapshots. A response
// is applied only if no other Load started in the meantime.
func (v *View) Load(ctx context.Context, domain string) error {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.phase = PhaseLoading
	v.domain = domain
	v.message = ""
	v.snapshots = nil
	v.filtered = nil
	v.selection.Clear()
	v.mu.Unlock()

	resp, err := v.lister.ListSnapshots(ctx, domain)

	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.gen || domain != v.domain {
		v.logger.Debug("discarding stale snapshot listing", "domain", domain, "current", v.domain)
		return ErrSuperseded
	}

	if err != nil {
		v.phase = PhaseError
		v.message = fmt.Sprintf("Failed to load snapshots. Make sure the backend is running on %s", v.backendURL)
		v.logger.Error("failed to load snapshots", "domain", domain, "error", err)
		return err
	}

	v.phase = PhaseReady
	v.snapshots = dedupe(resp.Snapshots)
	v.filtered = filter.Apply(v.snapshots, v.criteria)
	return nil
}

// SetCriteria replaces the filter criteria and recomputes the filtered
// view. The selection is left as is.
func (v *View) SetCriteria(c filter.Criteria) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.criteria = c
	v.filtered = filter.Apply(v.snapshots, c)
}

// Toggle flips selection of one snapshot. Identities not in the current
// snapshot set are ignored.
func (v *View) Toggle(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.hasLocked(id) {
		return false
	}
	return v.selection.Toggle(id)
}

// Select sets the selection to ids, dropping any not in the snapshot set.
func (v *View) Select(ids ...string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.selection.Clear()
	for _, id := range ids {
		if v.hasLocked(id) && !v.selection.Contains(id) {
			v.selection.Toggle(id)
		}
	}
}

// ToggleAll applies select-all relative to the filtered view.
func (v *View) ToggleAll() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.selection.ToggleAll(v.filtered)
}

// SelectedSnapshots resolves the selection against the filtered view.
func (v *View) SelectedSnapshots() []models.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.selection.Resolve(v.filtered)
}

// DeleteSelected removes the selected snapshots through the delete
// collaborator. On failure the view is unchanged.
func (v *View) DeleteSelected(ctx context.Context) ([]models.Snapshot, error) {
	if v.deleter == nil {
		return nil, ErrDeleteUnsupported
	}

	v.mu.Lock()
	if v.phase != PhaseReady {
		v.mu.Unlock()
		return nil, ErrNotReady
	}
	gen := v.gen
	domain := v.domain
	targets := v.selection.Resolve(v.filtered)
	v.mu.Unlock()

	if len(targets) == 0 {
		return nil, nil
	}

	if err := v.deleter.DeleteSnapshots(ctx, domain, targets); err != nil {
		v.logger.Error("bulk delete failed", "domain", domain, "count", len(targets), "error", err)
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.gen {
		return targets, ErrSuperseded
	}

	removed := make(map[string]struct{}, len(targets))
	for _, s := range targets {
		removed[s.Timestamp] = struct{}{}
	}
	kept := make([]models.Snapshot, 0, len(v.snapshots))
	for _, s := range v.snapshots {
		if _, ok := removed[s.Timestamp]; !ok {
			kept = append(kept, s)
		}
	}
	v.snapshots = kept
	v.filtered = filter.Apply(v.snapshots, v.criteria)
	v.selection.Retain(v.snapshots)

	v.logger.Info("deleted snapshots", "domain", domain, "count", len(targets))
	return targets, nil
}

// Open resolves the viewer route for a snapshot. Only completed
// snapshots can be opened.
func (v *View) Open(timestamp string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, s := range v.snapshots {
		if s.Timestamp != timestamp {
			continue
		}
		if s.Status != models.StatusCompleted {
			return "", &shared.UnavailableActionError{Timestamp: s.Timestamp, Status: string(s.Status)}
		}
		return SnapshotRoute(v.domain, s.Timestamp), nil
	}
	return "", &shared.ValidationError{Field: "timestamp", Message: fmt.Sprintf("no snapshot %q for %s", timestamp, v.domain)}
}

func SnapshotRoute(domain, timestamp string) string {
	return "/snapshot/" + url.PathEscape(domain) + "/" + url.PathEscape(timestamp)
}

func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	return State{
		Phase:     v.phase,
		Domain:    v.domain,
		Message:   v.message,
		Snapshots: append([]models.Snapshot{}, v.snapshots...),
		Filtered:  append([]models.Snapshot{}, v.filtered...),
		Criteria:  v.criteria,
		Selected:  v.selection.IDs(),
	}
}

// Summary renders the "N of M snapshots shown" line.
func (s State) Summary() string {
	noun := "snapshots"
	if len(s.Snapshots) == 1 {
		noun = "snapshot"
	}
	return fmt.Sprintf("%d of %d %s shown", len(s.Filtered), len(s.Snapshots), noun)
}

func (s State) IsSelected(id string) bool {
	for _, v := range s.Selected {
		if v == id {
			return true
		}
	}
	return false
}

// AllSelected reports whether the filtered view is non-empty and fully selected.
func (s State) AllSelected() bool {
	if len(s.Filtered) == 0 {
		return false
	}
	for _, snap := range s.Filtered {
		if !s.IsSelected(snap.Timestamp) {
			return false
		}
	}
	return true
}

func (v *View) hasLocked(id string) bool {
	for _, s := range v.snapshots {
		if s.Timestamp == id {
			return true
		}
	}
	return false
}

// dedupe keeps the first snapshot for each timestamp.
func dedupe(in []models.Snapshot) []models.Snapshot {
	seen := make(map[string]struct{}, len(in))
	out := make([]models.Snapshot, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s.Timestamp]; ok {
			continue
		}
		seen[s.Timestamp] = struct{}{}
		out = append(out, s)
	}
	return out
}
