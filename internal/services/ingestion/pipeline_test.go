package ingestion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tifo/internal/adapters/ai"
	"tifo/internal/adapters/kafka"
	"tifo/internal/adapters/platforms"
	"tifo/internal/domain/post"
	"tifo/internal/domain/sentiment"
	"tifo/internal/moderation"
	"tifo/internal/ratelimit"
)

type fakeAdapter struct {
	platform post.Platform
	pages    []platforms.Page
	err      error
	calls    int
}

func (f *fakeAdapter) Platform() post.Platform { return f.platform }

func (f *fakeAdapter) FetchBatch(ctx context.Context, query, cursor string) (platforms.Page, error) {
	f.calls++
	if f.err != nil {
		return platforms.Page{}, f.err
	}
	if len(f.pages) == 0 {
		return platforms.Page{}, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

type fakeStore struct {
	mu         sync.Mutex
	posts      map[post.Key]post.RawPost
	order      []post.Key
	classified map[post.Key]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		posts:      make(map[post.Key]post.RawPost),
		classified: make(map[post.Key]bool),
	}
}

func (s *fakeStore) InsertPost(_ context.Context, p post.RawPost) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[p.Key()]; ok {
		return false, nil
	}
	s.posts[p.Key()] = p
	s.order = append(s.order, p.Key())
	return true, nil
}

func (s *fakeStore) Unclassified(_ context.Context, limit int) ([]post.RawPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []post.RawPost
	for _, key := range s.order {
		if s.classified[key] {
			continue
		}
		out = append(out, s.posts[key])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) MarkClassified(_ context.Context, keys []post.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.classified[key] = true
	}
	return nil
}

func (s *fakeStore) unclassifiedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, key := range s.order {
		if !s.classified[key] {
			n++
		}
	}
	return n
}

type fakeClassifier struct {
	err   error
	calls int
}

func (c *fakeClassifier) Classify(_ context.Context, posts []post.RawPost) ([]sentiment.Result, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	out := make([]sentiment.Result, len(posts))
	for i, p := range posts {
		out[i] = sentiment.FallbackResult(p, time.Now())
	}
	return out, nil
}

type fakeResultRepo struct {
	mu      sync.Mutex
	results []sentiment.Result
}

func (r *fakeResultRepo) InsertResults(_ context.Context, results []sentiment.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, results...)
	return nil
}

func (r *fakeResultRepo) ResultsForClub(_ context.Context, _ string, _, _ time.Time) ([]sentiment.Result, error) {
	return nil, nil
}

func (r *fakeResultRepo) ResultsForMatch(_ context.Context, _ string, _, _ time.Time) ([]sentiment.Result, error) {
	return nil, nil
}

func (r *fakeResultRepo) ResultsForPlatform(_ context.Context, _ post.Platform, _, _ time.Time) ([]sentiment.Result, error) {
	return nil, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *fakePublisher) Publish(_ context.Context, topic, key string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *fakePublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

type fakeNotifier struct {
	mu       sync.Mutex
	failures []post.Platform
}

func (n *fakeNotifier) NotifyAuthFailure(_ context.Context, platform post.Platform, _ error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, platform)
}

func rawPost(platform post.Platform, id, content string) post.RawPost {
	return post.RawPost{
		Platform:   platform,
		ExternalID: id,
		Content:    content,
		PostedAt:   time.Now().UTC(),
	}
}

func testPipeline(adapters []platforms.Adapter, store *fakeStore, classifier *fakeClassifier, results *fakeResultRepo, producer Publisher, notifier AlertNotifier) *Pipeline {
	return NewPipeline(
		adapters,
		moderation.NewFilter(),
		NewMemoryDeduplicator(0),
		store,
		classifier,
		results,
		ratelimit.NewWindowLimiter(ratelimit.Quotas{}, time.Minute),
		producer,
		notifier,
	)
}

func TestPipeline_RunOnce(t *testing.T) {
	adapter := &fakeAdapter{
		platform: post.PlatformTwitterlike,
		pages: []platforms.Page{{
			Posts: []post.RawPost{
				rawPost(post.PlatformTwitterlike, "1", "brilliant performance today"),
				rawPost(post.PlatformTwitterlike, "2", "that keeper should kys honestly"),
				rawPost(post.PlatformTwitterlike, "3", "nervy finish but three points"),
			},
		}},
	}
	store := newFakeStore()
	results := &fakeResultRepo{}
	producer := &fakePublisher{}

	p := testPipeline([]platforms.Adapter{adapter}, store, &fakeClassifier{}, results, producer, nil)

	report, err := p.RunOnce(context.Background(), "arsenal")
	require.NoError(t, err)

	assert.Equal(t, 3, report.PostsFetched)
	assert.Equal(t, 2, report.PostsIngested)
	assert.Equal(t, 1, report.SkippedFiltered, "offensive content is dropped")
	assert.Equal(t, 2, report.ResultsStored)
	assert.NotEmpty(t, report.RunID)

	assert.Len(t, results.results, 2)
	assert.Equal(t, 2, producer.count(kafka.TopicPostsIngested))
	assert.Equal(t, 2, producer.count(kafka.TopicSentimentClassified))
}

func TestPipeline_DuplicatesAdmittedOnce(t *testing.T) {
	same := rawPost(post.PlatformForum, "42", "same thread fetched three times")
	adapter := &fakeAdapter{
		platform: post.PlatformForum,
		pages: []platforms.Page{{
			Posts: []post.RawPost{same, same, same},
		}},
	}
	store := newFakeStore()

	p := testPipeline([]platforms.Adapter{adapter}, store, &fakeClassifier{}, &fakeResultRepo{}, nil, nil)

	report, err := p.RunOnce(context.Background(), "spurs")
	require.NoError(t, err)

	assert.Equal(t, 1, report.PostsIngested)
	assert.Equal(t, 2, report.SkippedDuplicate)
	assert.Len(t, store.posts, 1)
}

func TestPipeline_SecondRunSkipsSeenPosts(t *testing.T) {
	page := platforms.Page{Posts: []post.RawPost{
		rawPost(post.PlatformTwitterlike, "7", "late winner again"),
	}}
	adapter := &fakeAdapter{
		platform: post.PlatformTwitterlike,
		pages:    []platforms.Page{page, page},
	}
	store := newFakeStore()

	p := testPipeline([]platforms.Adapter{adapter}, store, &fakeClassifier{}, &fakeResultRepo{}, nil, nil)

	first, err := p.RunOnce(context.Background(), "arsenal")
	require.NoError(t, err)
	assert.Equal(t, 1, first.PostsIngested)

	second, err := p.RunOnce(context.Background(), "arsenal")
	require.NoError(t, err)
	assert.Equal(t, 0, second.PostsIngested)
	assert.Equal(t, 1, second.SkippedDuplicate)
	assert.Len(t, store.posts, 1)
}

func TestPipeline_AuthFailureDisablesAdapter(t *testing.T) {
	failing := &fakeAdapter{
		platform: post.PlatformForum,
		err:      post.NewAdapterError(post.PlatformForum, post.AdapterAuthFailed, nil),
	}
	healthy := &fakeAdapter{
		platform: post.PlatformTwitterlike,
		pages: []platforms.Page{{
			Posts: []post.RawPost{rawPost(post.PlatformTwitterlike, "1", "still ingesting")},
		}},
	}
	notifier := &fakeNotifier{}

	p := testPipeline([]platforms.Adapter{failing, healthy}, newFakeStore(), &fakeClassifier{}, &fakeResultRepo{}, nil, notifier)

	report, err := p.RunOnce(context.Background(), "arsenal")
	require.NoError(t, err)
	assert.Equal(t, 1, report.PostsIngested, "healthy platform keeps flowing")
	assert.Equal(t, []post.Platform{post.PlatformForum}, notifier.failures)
	assert.Equal(t, []post.Platform{post.PlatformForum}, p.DisabledPlatforms())

	failingCallsBefore := failing.calls
	_, err = p.RunOnce(context.Background(), "arsenal")
	require.NoError(t, err)
	assert.Equal(t, failingCallsBefore, failing.calls, "disabled adapter is not called again")

	p.EnablePlatform(post.PlatformForum)
	assert.Empty(t, p.DisabledPlatforms())
}

func TestPipeline_ClassifierOutageAbortsRun(t *testing.T) {
	adapter := &fakeAdapter{
		platform: post.PlatformTwitterlike,
		pages: []platforms.Page{{
			Posts: []post.RawPost{rawPost(post.PlatformTwitterlike, "1", "stored but not classified")},
		}},
	}
	store := newFakeStore()
	classifier := &fakeClassifier{
		err: &ai.ProviderError{Provider: "stub", Kind: ai.ProviderUnavailable},
	}

	p := testPipeline([]platforms.Adapter{adapter}, store, classifier, &fakeResultRepo{}, nil, nil)

	report, err := p.RunOnce(context.Background(), "arsenal")
	require.Error(t, err)
	assert.Equal(t, 1, report.PostsIngested)
	assert.Equal(t, 0, report.ResultsStored)
	assert.Len(t, store.posts, 1, "admitted posts survive the aborted run")
	assert.Equal(t, 1, store.unclassifiedCount())
}

func TestPipeline_BackfillsPostsStrandedByClassifierOutage(t *testing.T) {
	page := platforms.Page{Posts: []post.RawPost{
		rawPost(post.PlatformTwitterlike, "9", "scrappy win, job done"),
	}}
	adapter := &fakeAdapter{
		platform: post.PlatformTwitterlike,
		pages:    []platforms.Page{page, page},
	}
	store := newFakeStore()
	results := &fakeResultRepo{}
	classifier := &fakeClassifier{
		err: &ai.ProviderError{Provider: "stub", Kind: ai.ProviderUnavailable},
	}

	p := testPipeline([]platforms.Adapter{adapter}, store, classifier, results, nil, nil)

	// First pass stores the post but the classifier is down.
	_, err := p.RunOnce(context.Background(), "arsenal")
	require.Error(t, err)
	require.Equal(t, 1, store.unclassifiedCount())
	require.Empty(t, results.results)

	// Second pass refetches the same post, which is rejected as a
	// duplicate, yet the stored backlog still gets classified.
	classifier.err = nil
	report, err := p.RunOnce(context.Background(), "arsenal")
	require.NoError(t, err)

	assert.Equal(t, 0, report.PostsIngested)
	assert.Equal(t, 1, report.SkippedDuplicate)
	assert.Equal(t, 1, report.ResultsStored)
	assert.Len(t, results.results, 1)
	assert.Equal(t, 0, store.unclassifiedCount())
}

func TestPipeline_IngestQuotaSkipsPlatform(t *testing.T) {
	adapter := &fakeAdapter{
		platform: post.PlatformTwitterlike,
		pages: []platforms.Page{
			{Posts: []post.RawPost{rawPost(post.PlatformTwitterlike, "1", "first tick")}},
			{Posts: []post.RawPost{rawPost(post.PlatformTwitterlike, "2", "second tick")}},
		},
	}

	p := NewPipeline(
		[]platforms.Adapter{adapter},
		moderation.NewFilter(),
		NewMemoryDeduplicator(0),
		newFakeStore(),
		&fakeClassifier{},
		&fakeResultRepo{},
		ratelimit.NewWindowLimiter(ratelimit.Quotas{ratelimit.OpIngest: 1}, time.Minute),
		nil,
		nil,
	)

	first, err := p.RunOnce(context.Background(), "arsenal")
	require.NoError(t, err)
	assert.Equal(t, 1, first.PostsIngested)

	second, err := p.RunOnce(context.Background(), "arsenal")
	require.NoError(t, err)
	assert.Equal(t, 0, second.PostsFetched)
	assert.Equal(t, 1, second.SkippedRateLimited)
}
