package export

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/intraceai/archive-viewer/internal/metrics"
	"github.com/intraceai/archive-viewer/pkg/models"
	"github.com/intraceai/archive-viewer/pkg/shared"
)

const (
	defaultJobTTL   = 15 * time.Minute
	cleanupInterval = 1 * time.Minute
	subscriberBuf   = 16
)

type JobState string

const (
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Status is a copy of a job's progress at one moment.
type Status struct {
	ID        string
	Domain    string
	State     JobState
	Progress  int
	Count     int
	Selected  []string
	Options   Options
	File      *File
	Err       error
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Status) Finished() bool {
	return s.State != JobRunning
}

type job struct {
	status      Status
	subscribers map[chan Status]struct{}
}

// Jobs runs export workflows in the background and keeps their results
// until they expire.
type Jobs struct {
	workflow *Workflow
	ttl      time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	jobs     map[string]*job
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewJobs(workflow *Workflow, ttl time.Duration) *Jobs {
	if ttl <= 0 {
		ttl = defaultJobTTL
	}
	return &Jobs{
		workflow: workflow,
		ttl:      ttl,
		logger:   slog.Default(),
		jobs:     make(map[string]*job),
		stopChan: make(chan struct{}),
	}
}

func (j *Jobs) Start(ctx context.Context) {
	go j.cleanupLoop(ctx)
}

func (j *Jobs) Stop() {
	j.stopOnce.Do(func() { close(j.stopChan) })
}

// Create starts exporting snapshots. The slice must already be resolved
// from the user's selection.
func (j *Jobs) Create(domain string, snapshots []models.Snapshot, opts Options) (Status, error) {
	if len(snapshots) == 0 {
		return Status{}, &shared.ValidationError{Field: "selected", Message: "select at least one snapshot to export"}
	}
	if _, err := ParseFormat(string(opts.Format)); err != nil {
		return Status{}, err
	}

	ids := make([]string, len(snapshots))
	for i, snap := range snapshots {
		ids[i] = snap.Timestamp
	}

	now := time.Now()
	jb := &job{
		status: Status{
			ID:        uuid.New().String(),
			Domain:    domain,
			State:     JobRunning,
			Count:     len(snapshots),
			Selected:  ids,
			Options:   opts,
			CreatedAt: now,
			ExpiresAt: now.Add(j.ttl),
		},
		subscribers: make(map[chan Status]struct{}),
	}

	j.mu.Lock()
	j.jobs[jb.status.ID] = jb
	metrics.ExportJobsActive.Set(float64(len(j.jobs)))
	j.mu.Unlock()

	st := jb.status
	items := append([]models.Snapshot(nil), snapshots...)
	go j.run(jb, st.ID, items)

	j.logger.Info("export started", "job_id", st.ID, "domain", domain, "format", opts.Format, "count", len(items))
	return st, nil
}

func (j *Jobs) run(jb *job, id string, snapshots []models.Snapshot) {
	j.mu.RLock()
	opts := jb.status.Options
	j.mu.RUnlock()

	file, err := j.workflow.Run(snapshots, opts, func(p int) {
		j.update(jb, func(s *Status) {
			if p > s.Progress {
				s.Progress = p
			}
		})
	})

	j.update(jb, func(s *Status) {
		if err != nil {
			s.State = JobFailed
			s.Err = err
			s.Progress = 0
			return
		}
		s.State = JobDone
		s.File = file
		s.Progress = 100
	})

	if err != nil {
		j.logger.Error("export failed", "job_id", id, "error", err)
	} else {
		j.logger.Info("export finished", "job_id", id, "file", file.Name, "bytes", len(file.Data))
	}
}

func (j *Jobs) update(jb *job, fn func(*Status)) {
	j.mu.Lock()
	defer j.mu.Unlock()

	fn(&jb.status)
	st := jb.status
	for ch := range jb.subscribers {
		send(ch, st)
		if st.Finished() {
			close(ch)
			delete(jb.subscribers, ch)
		}
	}
}

// send never blocks the workflow: a full subscriber loses its oldest event.
func send(ch chan Status, st Status) {
	for {
		select {
		case ch <- st:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (j *Jobs) Get(id string) (Status, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	jb, ok := j.jobs[id]
	if !ok {
		return Status{}, false
	}
	return jb.status, true
}

// Subscribe streams status updates for a job. The first value is the
// current status; the channel is closed once the job has finished.
func (j *Jobs) Subscribe(id string) (<-chan Status, func(), bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	jb, ok := j.jobs[id]
	if !ok {
		return nil, func() {}, false
	}

	ch := make(chan Status, subscriberBuf)
	ch <- jb.status
	if jb.status.Finished() {
		close(ch)
		return ch, func() {}, true
	}
	jb.subscribers[ch] = struct{}{}

	cancel := func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if _, ok := jb.subscribers[ch]; ok {
			delete(jb.subscribers, ch)
			close(ch)
		}
	}
	return ch, cancel, true
}

func (j *Jobs) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.cleanupExpired(time.Now())
		}
	}
}

func (j *Jobs) cleanupExpired(now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for id, jb := range j.jobs {
		if now.After(jb.status.ExpiresAt) && jb.status.Finished() {
			delete(j.jobs, id)
			j.logger.Debug("export expired", "job_id", id)
		}
	}
	metrics.ExportJobsActive.Set(float64(len(j.jobs)))
}
