package aggregation

import (
	"context"
	"time"

	"tifo/internal/adapters/kafka"
	"tifo/internal/domain/aggregate"
	"tifo/internal/domain/post"
	"tifo/internal/domain/sentiment"
	"tifo/internal/metrics"
	"tifo/pkg/errors"
	"tifo/pkg/logger"
)

// Cache holds the freshest rollup per scope for stale reads.
type Cache interface {
	Save(ctx context.Context, stats aggregate.Stats) error
	Get(ctx context.Context, scope aggregate.Scope, scopeID string) (aggregate.Stats, error)
}

// Publisher sends refresh events downstream.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// Service recomputes rollups from the result store. Each refresh is a
// full recomputation over the window, never an incremental patch.
type Service struct {
	results  sentiment.Repository
	cache    Cache     // may be nil
	producer Publisher // may be nil
	now      func() time.Time
	log      *logger.Logger
}

// NewService creates an aggregation service. cache and producer may be
// nil.
func NewService(results sentiment.Repository, cache Cache, producer Publisher) *Service {
	return &Service{
		results:  results,
		cache:    cache,
		producer: producer,
		now:      time.Now,
		log:      logger.Get().With("component", "aggregation_service"),
	}
}

// Refresh recomputes the rollup for one scope over the window, caches it
// and publishes the refresh event.
func (s *Service) Refresh(ctx context.Context, scope aggregate.Scope, scopeID string, window aggregate.Window) (aggregate.Stats, error) {
	results, err := s.fetch(ctx, scope, scopeID, window)
	if err != nil {
		metrics.AggregationRuns.WithLabelValues(string(scope), "error").Inc()
		return aggregate.Stats{}, err
	}

	stats := Compute(scope, scopeID, window, results, s.now())
	metrics.AggregationRuns.WithLabelValues(string(scope), "success").Inc()

	if s.cache != nil {
		if err := s.cache.Save(ctx, stats); err != nil {
			s.log.Errorf("Failed to cache aggregate %s/%s: %v", scope, scopeID, err)
		}
	}

	if s.producer != nil {
		event := kafka.AggregateRefreshedEvent{Stats: stats}
		if err := s.producer.Publish(ctx, kafka.TopicAggregatesRefreshed, string(scope)+":"+scopeID, event); err != nil {
			s.log.Errorf("Failed to publish aggregate refresh: %v", err)
		}
	}

	return stats, nil
}

// Stats returns the freshest rollup it can get: a live recomputation, or
// the cached copy when the result store is unreachable.
func (s *Service) Stats(ctx context.Context, scope aggregate.Scope, scopeID string, window aggregate.Window) (aggregate.Stats, error) {
	stats, err := s.Refresh(ctx, scope, scopeID, window)
	if err == nil {
		return stats, nil
	}

	if s.cache != nil {
		cached, cacheErr := s.cache.Get(ctx, scope, scopeID)
		if cacheErr == nil {
			s.log.Warnw("Serving stale aggregate", "scope", scope, "scope_id", scopeID, "error", err)
			return cached, nil
		}
	}

	return aggregate.Stats{}, err
}

// Trend compares the current window against the equally sized window
// right before it.
func (s *Service) Trend(ctx context.Context, scope aggregate.Scope, scopeID string, windowSize time.Duration) (aggregate.Trend, error) {
	to := s.now()
	mid := to.Add(-windowSize)
	from := mid.Add(-windowSize)

	previous, err := s.Refresh(ctx, scope, scopeID, aggregate.Window{From: from, To: mid})
	if err != nil {
		return aggregate.Trend{}, err
	}

	current, err := s.Refresh(ctx, scope, scopeID, aggregate.Window{From: mid, To: to})
	if err != nil {
		return aggregate.Trend{}, err
	}

	return ComputeTrend(previous, current), nil
}

func (s *Service) fetch(ctx context.Context, scope aggregate.Scope, scopeID string, window aggregate.Window) ([]sentiment.Result, error) {
	switch scope {
	case aggregate.ScopeClub:
		return s.results.ResultsForClub(ctx, scopeID, window.From, window.To)
	case aggregate.ScopeMatch:
		return s.results.ResultsForMatch(ctx, scopeID, window.From, window.To)
	case aggregate.ScopePlatform:
		return s.results.ResultsForPlatform(ctx, post.Platform(scopeID), window.From, window.To)
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown scope %q", scope)
	}
}
