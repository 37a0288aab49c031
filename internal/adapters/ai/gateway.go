package ai

import (
	"context"
	"strings"
	"sync"
	"time"

	"tifo/internal/domain/club"
	"tifo/internal/domain/post"
	"tifo/internal/domain/sentiment"
	"tifo/internal/metrics"
	"tifo/internal/ratelimit"
	"tifo/pkg/errors"
	"tifo/pkg/logger"
)

// DefaultBatchSize amortizes latency and cost per external call.
// Recommended range is 25-100 posts per call.
const DefaultBatchSize = 50

// Gateway routes classification batches to a provider and normalizes
// every output into the canonical taxonomy. Downstream code never sees
// vendor-specific shapes.
type Gateway struct {
	provider  Provider
	limiter   ratelimit.Limiter
	clubs     *club.Registry
	domain    DomainContext
	batchSize int
	now       func() time.Time
	log       *logger.Logger
}

// NewGateway creates a classifier gateway over the given provider.
// The club registry resolves mentioned club names; it may be nil.
func NewGateway(provider Provider, limiter ratelimit.Limiter, clubs *club.Registry, batchSize int) *Gateway {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	domain := DomainContext{}
	if clubs != nil {
		domain.Clubs = clubs.Names()
	}

	return &Gateway{
		provider:  provider,
		limiter:   limiter,
		clubs:     clubs,
		domain:    domain,
		batchSize: batchSize,
		now:       time.Now,
		log:       logger.Get().With("component", "classifier_gateway", "provider", provider.Name()),
	}
}

// Classify sends posts to the provider in batches and returns exactly one
// normalized result per input post, in input order.
//
// Unparsable provider output degrades to per-post fallback results and is
// never an error. A typed ProviderError (rate limited, unavailable,
// invalid request) aborts the call so the tick can be retried at the next
// scheduled interval.
func (g *Gateway) Classify(ctx context.Context, posts []post.RawPost) ([]sentiment.Result, error) {
	if len(posts) == 0 {
		return nil, nil
	}

	type batch struct {
		offset int
		posts  []post.RawPost
	}

	var batches []batch
	for offset := 0; offset < len(posts); offset += g.batchSize {
		end := offset + g.batchSize
		if end > len(posts) {
			end = len(posts)
		}
		batches = append(batches, batch{offset: offset, posts: posts[offset:end]})
	}

	results := make([]sentiment.Result, len(posts))

	// Independent batches run in parallel, each bounded by the limiter.
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		batchErr error
	)

	for _, b := range batches {
		wg.Add(1)
		go func(b batch) {
			defer wg.Done()

			out, err := g.classifyBatch(ctx, b.posts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if batchErr == nil {
					batchErr = err
				}
				return
			}
			copy(results[b.offset:], out)
		}(b)
	}
	wg.Wait()

	if batchErr != nil {
		return nil, batchErr
	}

	return results, nil
}

// classifyBatch handles one provider call end to end.
func (g *Gateway) classifyBatch(ctx context.Context, posts []post.RawPost) ([]sentiment.Result, error) {
	decision, err := g.limiter.Allow(ctx, string(g.provider.Name()), ratelimit.OpClassify)
	if err != nil {
		return nil, errors.Wrap(err, "classifier rate limiter")
	}
	if !decision.Allowed {
		metrics.RateLimitRejections.WithLabelValues(string(g.provider.Name()), "classify").Inc()
		return nil, &ProviderError{
			Provider:   g.provider.Name(),
			Kind:       ProviderRateLimited,
			RetryAfter: decision.RetryAfter,
			Err:        errors.ErrRateLimited,
		}
	}

	start := g.now()
	raw, err := g.provider.Classify(ctx, posts, g.domain)
	metrics.ClassifierCalls.WithLabelValues(string(g.provider.Name()), callStatus(err)).Inc()
	if err != nil {
		return nil, err
	}
	metrics.ClassifierLatency.WithLabelValues(string(g.provider.Name())).Observe(g.now().Sub(start).Seconds())

	parsed, err := parseClassifications(raw)
	if err != nil {
		// No recoverable fragment: every post gets the documented
		// fallback shape. This path must never crash the pipeline.
		g.log.Warnw("Provider output unparsable, using fallback classifications",
			"posts", len(posts), "error", err)
		metrics.ClassifierFallbacks.WithLabelValues(string(g.provider.Name())).Add(float64(len(posts)))

		out := make([]sentiment.Result, len(posts))
		now := g.now()
		for i, p := range posts {
			out[i] = sentiment.FallbackResult(p, now)
		}
		return out, nil
	}

	return g.normalizeBatch(posts, parsed), nil
}

// normalizeBatch maps parsed elements onto input posts by echoed index,
// falling back to positional order, and clamps every category/score pair
// into the taxonomy. Posts without a usable element get the fallback.
func (g *Gateway) normalizeBatch(posts []post.RawPost, parsed []rawClassification) []sentiment.Result {
	byIndex := make(map[int]*rawClassification, len(parsed))
	var unindexed []*rawClassification
	for i := range parsed {
		rc := &parsed[i]
		if rc.Index != nil && *rc.Index >= 0 && *rc.Index < len(posts) {
			if _, taken := byIndex[*rc.Index]; !taken {
				byIndex[*rc.Index] = rc
				continue
			}
		}
		unindexed = append(unindexed, rc)
	}

	// Positional assignment for elements without an echoed index.
	next := 0
	for i := 0; i < len(posts) && next < len(unindexed); i++ {
		if _, ok := byIndex[i]; !ok {
			byIndex[i] = unindexed[next]
			next++
		}
	}

	now := g.now()
	out := make([]sentiment.Result, len(posts))
	for i, p := range posts {
		rc, ok := byIndex[i]
		if !ok {
			metrics.ClassifierFallbacks.WithLabelValues(string(g.provider.Name())).Inc()
			out[i] = sentiment.FallbackResult(p, now)
			continue
		}
		out[i] = g.normalizeOne(p, rc, now)
	}
	return out
}

// normalizeOne converts one parsed element into a canonical result.
func (g *Gateway) normalizeOne(p post.RawPost, rc *rawClassification, now time.Time) sentiment.Result {
	var category sentiment.Category
	var score int

	switch {
	case rc.Score != nil:
		category, score = sentiment.Normalize(rc.Category, *rc.Score)
	default:
		cat, ok := sentiment.ParseCategory(rc.Category)
		if !ok {
			// Neither a score nor a known category: fallback shape.
			metrics.ClassifierFallbacks.WithLabelValues(string(g.provider.Name())).Inc()
			return sentiment.FallbackResult(p, now)
		}
		category, score = cat, cat.Midpoint()
	}

	clubID := p.ClubID
	if g.clubs != nil && rc.MentionedClub != "" {
		if profile, ok := g.clubs.Resolve(rc.MentionedClub); ok {
			clubID = profile.ID
		}
	}

	return sentiment.Result{
		Platform:        p.Platform,
		ExternalID:      p.ExternalID,
		Category:        category,
		Score:           score,
		Intensity:       sentiment.ParseIntensity(rc.Intensity),
		SarcasmDetected: rc.SarcasmDetected,
		Topics:          cleanTerms(rc.Topics),
		EmotionKeywords: cleanTerms(rc.EmotionKeywords),
		Language:        strings.ToLower(strings.TrimSpace(rc.Language)),
		MentionedClubID: clubID,
		MatchID:         p.MatchID,
		Provenance:      sentiment.ProviderProvenance(string(g.provider.Name())),
		ClassifiedAt:    now,
	}
}

func cleanTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func callStatus(err error) string {
	if err == nil {
		return "success"
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Kind == ProviderRateLimited {
		return "rate_limited"
	}
	return "error"
}
