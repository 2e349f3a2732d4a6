// Package cache holds snapshot listings between requests. It replaces an
// ambient query client with an explicitly constructed value whose retry
// and staleness behaviour is fixed at construction time.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/intraceai/archive-viewer/internal/metrics"
	"github.com/intraceai/archive-viewer/pkg/models"
)

var ErrMiss = errors.New("cache miss")

// Entry is a cached listing together with the moment it was fetched.
type Entry struct {
	Response  models.ArchiveResponse `json:"response"`
	FetchedAt time.Time              `json:"fetched_at"`
}

// Store persists entries keyed by domain. Implementations must return
// ErrMiss for absent or expired keys.
type Store interface {
	Get(ctx context.Context, domain string) (*Entry, error)
	Set(ctx context.Context, domain string, entry *Entry, ttl time.Duration) error
	Delete(ctx context.Context, domain string) error
}

type Policy struct {
	// Retry is the number of additional attempts after a failed fetch.
	Retry int
	// RetryBase scales the delay before attempt n to n*RetryBase.
	RetryBase time.Duration
	// StaleTime is how long an entry is served without refetching.
	StaleTime time.Duration
	// GCTime is how long a stale entry is kept after going stale.
	GCTime time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Retry:     0,
		RetryBase: time.Second,
		StaleTime: 5 * time.Minute,
		GCTime:    5 * time.Minute,
	}
}

func (p Policy) retryDelay(attempt int) time.Duration {
	return time.Duration(attempt) * p.RetryBase
}

type FetchFunc func(ctx context.Context, domain string) (*models.ArchiveResponse, error)

type Cache struct {
	store  Store
	policy Policy
	now    func() time.Time
	logger *slog.Logger
}

func New(store Store, policy Policy) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Cache{
		store:  store,
		policy: policy,
		now:    time.Now,
		logger: slog.Default(),
	}
}

func (c *Cache) Policy() Policy {
	return c.policy
}

// Snapshots returns a fresh cached listing for domain or fetches one.
// Failed fetches are never stored.
func (c *Cache) Snapshots(ctx context.Context, domain string, fetch FetchFunc) (*models.ArchiveResponse, error) {
	entry, err := c.store.Get(ctx, domain)
	switch {
	case err == nil && c.now().Sub(entry.FetchedAt) < c.policy.StaleTime:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		resp := entry.Response
		return &resp, nil
	case err == nil:
		metrics.CacheLookups.WithLabelValues("stale").Inc()
	case errors.Is(err, ErrMiss):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		c.logger.Warn("cache lookup failed", "domain", domain, "error", err)
	}

	resp, err := c.fetchWithRetry(ctx, domain, fetch)
	if err != nil {
		return nil, err
	}

	ttl := c.policy.StaleTime + c.policy.GCTime
	if ttl > 0 {
		if err := c.store.Set(ctx, domain, &Entry{Response: *resp, FetchedAt: c.now()}, ttl); err != nil {
			c.logger.Warn("cache store failed", "domain", domain, "error", err)
		}
	}
	return resp, nil
}

func (c *Cache) Invalidate(ctx context.Context, domain string) error {
	return c.store.Delete(ctx, domain)
}

func (c *Cache) fetchWithRetry(ctx context.Context, domain string, fetch FetchFunc) (*models.ArchiveResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= c.policy.Retry; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(c.policy.retryDelay(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, lastErr
			case <-timer.C:
			}
			c.logger.Debug("retrying snapshot fetch", "domain", domain, "attempt", attempt)
		}

		resp, err := fetch(ctx, domain)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
