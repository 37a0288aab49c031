package workers

import (
	"context"
	"strings"
	"time"

	"tifo/internal/domain/aggregate"
	"tifo/internal/domain/post"
)

// StatsRefresher recomputes the rollup for one scope and window.
type StatsRefresher interface {
	Refresh(ctx context.Context, scope aggregate.Scope, scopeID string, window aggregate.Window) (aggregate.Stats, error)
}

// AggregateRefreshWorker keeps rollups warm for every active refresh
// context plus the per-platform scopes, so reads hit the cache instead
// of recomputing on demand.
type AggregateRefreshWorker struct {
	*BaseWorker
	refresher StatsRefresher
	manager   *RefreshManager
	window    time.Duration
	now       func() time.Time
}

// NewAggregateRefreshWorker creates the worker. window is the rollup
// lookback; interval is how often rollups are recomputed.
func NewAggregateRefreshWorker(refresher StatsRefresher, manager *RefreshManager, window, interval time.Duration) *AggregateRefreshWorker {
	if window <= 0 {
		window = time.Hour
	}
	return &AggregateRefreshWorker{
		BaseWorker: NewBaseWorker("aggregate_refresh", interval, true),
		refresher:  refresher,
		manager:    manager,
		window:     window,
		now:        time.Now,
	}
}

// Run refreshes one rollup per target. Individual failures are logged
// and do not stop the remaining targets.
func (w *AggregateRefreshWorker) Run(ctx context.Context) error {
	to := w.now()
	window := aggregate.Window{From: to.Add(-w.window), To: to}

	var lastErr error
	for _, target := range w.targets() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := w.refresher.Refresh(ctx, target.scope, target.scopeID, window); err != nil {
			w.Log().Warnw("Rollup refresh failed",
				"scope", target.scope,
				"scope_id", target.scopeID,
				"error", err,
			)
			lastErr = err
		}
	}
	return lastErr
}

type refreshTarget struct {
	scope   aggregate.Scope
	scopeID string
}

// targets derives the scopes worth precomputing: one per active club or
// match context, and one per platform.
func (w *AggregateRefreshWorker) targets() []refreshTarget {
	targets := []refreshTarget{
		{aggregate.ScopePlatform, string(post.PlatformTwitterlike)},
		{aggregate.ScopePlatform, string(post.PlatformForum)},
	}

	for _, state := range w.manager.States() {
		switch {
		case strings.HasPrefix(state.ContextID, "club:"):
			targets = append(targets, refreshTarget{aggregate.ScopeClub, strings.TrimPrefix(state.ContextID, "club:")})
		case strings.HasPrefix(state.ContextID, "match:"):
			targets = append(targets, refreshTarget{aggregate.ScopeMatch, strings.TrimPrefix(state.ContextID, "match:")})
		}
	}
	return targets
}
