package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TenantSource lists the tenants eligible for a refresh sweep.
type TenantSource interface {
	ListActiveSchoolIDs(ctx context.Context) ([]string, error)
}

// RefreshFunc rebuilds the cached view for one school.
type RefreshFunc func(ctx context.Context, schoolID string) error

// RefresherConfig configures the periodic refresh loop.
type RefresherConfig struct {
	Interval time.Duration
	Logger   *zap.Logger
}

// Refresher sweeps all active schools on a fixed interval, rebuilding
// each one's cached view ahead of expiry. Failures are logged per
// school and never stop the sweep.
type Refresher struct {
	source   TenantSource
	refresh  RefreshFunc
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewRefresher builds a refresher with the provided tenant source and
// per-school refresh function.
func NewRefresher(source TenantSource, refresh RefreshFunc, cfg RefresherConfig) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Refresher{
		source:   source,
		refresh:  refresh,
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}
}

// Start launches the refresh loop. Safe to call once.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.started = true

	go r.loop(loopCtx)
	r.logger.Sugar().Infow("refresher started", "interval", r.interval.String())
}

// Stop cancels the loop and waits for the current sweep to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.cancel()
	done := r.done
	r.mu.Unlock()
	<-done
	r.logger.Sugar().Infow("refresher stopped")
}

func (r *Refresher) loop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep refreshes every active school once. Exposed so operators can
// trigger a sweep outside the ticker cadence.
func (r *Refresher) Sweep(ctx context.Context) {
	ids, err := r.source.ListActiveSchoolIDs(ctx)
	if err != nil {
		r.logger.Sugar().Errorw("refresh sweep failed to list schools", "error", err)
		return
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		if err := r.refresh(ctx, id); err != nil {
			r.logger.Sugar().Warnw("school refresh failed", "school_id", id, "error", err)
			continue
		}
		r.logger.Sugar().Debugw("school refreshed", "school_id", id, "duration_ms", time.Since(start).Milliseconds())
	}
}
