package ingestion

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tifo/internal/adapters/kafka"
	"tifo/internal/adapters/platforms"
	"tifo/internal/domain/post"
	"tifo/internal/domain/sentiment"
	"tifo/internal/metrics"
	"tifo/internal/moderation"
	"tifo/internal/ratelimit"
	"tifo/pkg/errors"
	"tifo/pkg/logger"
)

// Classifier turns admitted posts into canonical sentiment results.
type Classifier interface {
	Classify(ctx context.Context, posts []post.RawPost) ([]sentiment.Result, error)
}

// Publisher sends pipeline events downstream.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// AlertNotifier raises operator alerts.
type AlertNotifier interface {
	NotifyAuthFailure(ctx context.Context, platform post.Platform, cause error)
}

// Report summarizes one pipeline run.
type Report struct {
	RunID              string
	PostsFetched       int
	PostsIngested      int
	SkippedFiltered    int
	SkippedDuplicate   int
	SkippedRateLimited int
	ResultsStored      int
}

// maxPagesPerTick bounds cursor walking so a single tick cannot chase an
// unbounded backlog.
const maxPagesPerTick = 5

// maxClassifyBacklog bounds how many stored-but-unclassified posts one
// pass will send to the classifier. A backlog left behind by a
// classifier outage drains across subsequent ticks.
const maxClassifyBacklog = 500

// Pipeline runs one ingestion pass: fetch from every enabled platform,
// filter, deduplicate, store, classify, store results, publish events.
type Pipeline struct {
	adapters   []platforms.Adapter
	filter     *moderation.Filter
	dedup      Deduplicator
	store      post.Store
	classifier Classifier
	results    sentiment.Repository
	limiter    ratelimit.Limiter
	producer   Publisher     // may be nil
	notifier   AlertNotifier // may be nil

	mu       sync.Mutex
	disabled map[post.Platform]bool

	now func() time.Time
	log *logger.Logger
}

// NewPipeline creates an ingestion pipeline. producer and notifier may
// be nil; the corresponding side effects are skipped.
func NewPipeline(
	adapters []platforms.Adapter,
	filter *moderation.Filter,
	dedup Deduplicator,
	store post.Store,
	classifier Classifier,
	results sentiment.Repository,
	limiter ratelimit.Limiter,
	producer Publisher,
	notifier AlertNotifier,
) *Pipeline {
	return &Pipeline{
		adapters:   adapters,
		filter:     filter,
		dedup:      dedup,
		store:      store,
		classifier: classifier,
		results:    results,
		limiter:    limiter,
		producer:   producer,
		notifier:   notifier,
		disabled:   make(map[post.Platform]bool),
		now:        time.Now,
		log:        logger.Get().With("component", "ingestion_pipeline"),
	}
}

// RunOnce executes one full pass for the given search query. Adapter
// failures degrade to skipping that platform; storage and classifier
// transport failures abort the run so it can be retried at the next
// tick.
func (p *Pipeline) RunOnce(ctx context.Context, query string) (Report, error) {
	report := Report{RunID: uuid.New().String()}
	log := p.log.With("run_id", report.RunID)

	fetched := p.fetchAll(ctx, query, &report, log)
	report.PostsFetched = len(fetched)

	for _, raw := range fetched {
		if !p.filter.IsAllowed(raw.Content) {
			report.SkippedFiltered++
			metrics.PostsSkipped.WithLabelValues(string(raw.Platform), "filtered").Inc()
			continue
		}

		first, err := p.dedup.MarkSeen(ctx, raw.Key())
		if err != nil {
			// Fast path down: fall through to the database boundary.
			log.Warnw("Dedup fast path unavailable", "error", err)
		} else if !first {
			report.SkippedDuplicate++
			metrics.PostsSkipped.WithLabelValues(string(raw.Platform), "duplicate").Inc()
			continue
		}

		inserted, err := p.store.InsertPost(ctx, raw)
		if err != nil {
			return report, errors.Wrap(err, "store post")
		}
		if !inserted {
			report.SkippedDuplicate++
			metrics.PostsSkipped.WithLabelValues(string(raw.Platform), "duplicate").Inc()
			continue
		}

		report.PostsIngested++
		metrics.PostsIngested.WithLabelValues(string(raw.Platform)).Inc()

		p.publish(ctx, kafka.TopicPostsIngested, raw.Key().String(), kafka.PostIngestedEvent{
			RunID:      report.RunID,
			Post:       raw,
			IngestedAt: p.now(),
		})
	}

	// Classification works off the stored backlog, not the in-memory
	// batch. A post admitted on a pass whose classifier call failed
	// stays unclassified in the store and is picked up here on the
	// next pass, together with anything admitted just now.
	pending, err := p.store.Unclassified(ctx, maxClassifyBacklog)
	if err != nil {
		return report, errors.Wrap(err, "load unclassified posts")
	}

	if len(pending) == 0 {
		log.Infow("Ingestion pass complete, nothing to classify",
			"fetched", report.PostsFetched,
			"filtered", report.SkippedFiltered,
			"duplicates", report.SkippedDuplicate,
		)
		return report, nil
	}

	results, err := p.classifier.Classify(ctx, pending)
	if err != nil {
		// Pending posts stay unclassified and are retried next pass.
		return report, errors.Wrap(err, "classify posts")
	}

	if err := p.results.InsertResults(ctx, results); err != nil {
		return report, errors.Wrap(err, "store results")
	}
	report.ResultsStored = len(results)

	keys := make([]post.Key, len(pending))
	for i, raw := range pending {
		keys[i] = raw.Key()
	}
	if err := p.store.MarkClassified(ctx, keys); err != nil {
		return report, errors.Wrap(err, "mark posts classified")
	}

	for _, res := range results {
		p.publish(ctx, kafka.TopicSentimentClassified,
			string(res.Platform)+":"+res.ExternalID,
			kafka.SentimentClassifiedEvent{RunID: report.RunID, Result: res})
	}

	log.Infow("Ingestion pass complete",
		"fetched", report.PostsFetched,
		"ingested", report.PostsIngested,
		"filtered", report.SkippedFiltered,
		"duplicates", report.SkippedDuplicate,
		"results", report.ResultsStored,
	)

	return report, nil
}

// fetchAll walks every enabled adapter, honoring the per-platform ingest
// quota, and pools the pages it gets back.
func (p *Pipeline) fetchAll(ctx context.Context, query string, report *Report, log *logger.Logger) []post.RawPost {
	var pooled []post.RawPost

	for _, adapter := range p.adapters {
		platform := adapter.Platform()
		if p.isDisabled(platform) {
			continue
		}

		decision, err := p.limiter.Allow(ctx, string(platform), ratelimit.OpIngest)
		if err != nil {
			log.Errorw("Ingest rate limiter failed", "platform", platform, "error", err)
			continue
		}
		if !decision.Allowed {
			report.SkippedRateLimited++
			metrics.RateLimitRejections.WithLabelValues(string(platform), "ingest").Inc()
			log.Warnw("Ingest quota exhausted, skipping platform",
				"platform", platform, "retry_after", decision.RetryAfter)
			continue
		}

		pooled = append(pooled, p.fetchPlatform(ctx, adapter, query, log)...)
	}

	return pooled
}

func (p *Pipeline) fetchPlatform(ctx context.Context, adapter platforms.Adapter, query string, log *logger.Logger) []post.RawPost {
	platform := adapter.Platform()

	var fetched []post.RawPost
	cursor := ""
	for page := 0; page < maxPagesPerTick; page++ {
		result, err := adapter.FetchBatch(ctx, query, cursor)
		if err != nil {
			p.handleAdapterError(ctx, platform, err, log)
			break
		}

		fetched = append(fetched, result.Posts...)
		if result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor
	}

	return fetched
}

func (p *Pipeline) handleAdapterError(ctx context.Context, platform post.Platform, err error, log *logger.Logger) {
	var aerr *post.AdapterError
	if !errors.As(err, &aerr) {
		log.Errorw("Platform fetch failed", "platform", platform, "error", err)
		return
	}

	switch aerr.Kind {
	case post.AdapterAuthFailed:
		p.disable(platform)
		log.Errorw("Platform credentials rejected, adapter disabled", "platform", platform, "error", err)
		if p.notifier != nil {
			p.notifier.NotifyAuthFailure(ctx, platform, aerr)
		}
	case post.AdapterRateLimited:
		log.Warnw("Platform throttled us", "platform", platform, "retry_after", aerr.RetryAfter)
	default:
		log.Errorw("Platform fetch failed", "platform", platform, "kind", aerr.Kind, "error", err)
	}
}

func (p *Pipeline) publish(ctx context.Context, topic, key string, event interface{}) {
	if p.producer == nil {
		return
	}
	if err := p.producer.Publish(ctx, topic, key, event); err != nil {
		// Event delivery is best effort; storage already succeeded.
		p.log.Errorf("Failed to publish to %s: %v", topic, err)
	}
}

// EnablePlatform re-enables a platform after its credentials were
// refreshed.
func (p *Pipeline) EnablePlatform(platform post.Platform) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.disabled, platform)
}

// DisabledPlatforms lists adapters currently held out of rotation.
func (p *Pipeline) DisabledPlatforms() []post.Platform {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]post.Platform, 0, len(p.disabled))
	for platform := range p.disabled {
		out = append(out, platform)
	}
	return out
}

func (p *Pipeline) isDisabled(platform post.Platform) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disabled[platform]
}

func (p *Pipeline) disable(platform post.Platform) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disabled[platform] = true
}
