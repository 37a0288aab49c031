package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tifo/internal/domain/post"
	"tifo/internal/metrics"
	"tifo/pkg/errors"
	"tifo/pkg/logger"
)

const defaultTwitterlikeBaseURL = "https://api.twitterlike.example/2"

// TwitterlikeAdapter fetches posts from the microblogging platform's
// recent search API using bearer token authentication.
type TwitterlikeAdapter struct {
	httpClient  *http.Client
	baseURL     string
	bearerToken string
	pageSize    int

	mu    sync.Mutex // serializes outbound calls
	pacer *rate.Limiter
	log   *logger.Logger
}

// NewTwitterlikeAdapter creates the microblog adapter. baseURL may be
// empty to use the public endpoint. perMinute bounds outbound request
// pacing independently of the remote quota.
func NewTwitterlikeAdapter(bearerToken, baseURL string, pageSize, perMinute int, timeout time.Duration) *TwitterlikeAdapter {
	if baseURL == "" {
		baseURL = defaultTwitterlikeBaseURL
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	if perMinute <= 0 {
		perMinute = 10
	}

	return &TwitterlikeAdapter{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		bearerToken: bearerToken,
		pageSize:    pageSize,
		pacer:       rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		log:         logger.Get().With("component", "platform_adapter", "platform", post.PlatformTwitterlike),
	}
}

// Platform identifies this adapter.
func (a *TwitterlikeAdapter) Platform() post.Platform {
	return post.PlatformTwitterlike
}

// Search API response structures.
type twitterlikeSearchResponse struct {
	Data []twitterlikePost     `json:"data"`
	Meta twitterlikeSearchMeta `json:"meta"`
}

type twitterlikePost struct {
	ID        string             `json:"id"`
	Text      string             `json:"text"`
	Author    string             `json:"author_username"`
	CreatedAt string             `json:"created_at"`
	Metrics   twitterlikeMetrics `json:"public_metrics"`
}

type twitterlikeMetrics struct {
	RepostCount int64 `json:"repost_count"`
	LikeCount   int64 `json:"like_count"`
	ReplyCount  int64 `json:"reply_count"`
}

type twitterlikeSearchMeta struct {
	ResultCount int    `json:"result_count"`
	NextToken   string `json:"next_token"`
}

// FetchBatch runs one search call and maps the payload. Items that
// cannot be mapped are skipped and counted, never raised.
func (a *TwitterlikeAdapter) FetchBatch(ctx context.Context, query, cursor string) (Page, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bearerToken == "" {
		return Page{}, post.NewAdapterError(post.PlatformTwitterlike, post.AdapterAuthFailed,
			errors.New("bearer token not configured"))
	}

	if err := a.pacer.Wait(ctx); err != nil {
		return Page{}, errors.Wrap(err, "twitterlike pacing wait")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("max_results", strconv.Itoa(a.pageSize))
	params.Set("tweet.fields", "created_at,public_metrics,author_username")
	if cursor != "" {
		params.Set("next_token", cursor)
	}

	endpoint := fmt.Sprintf("%s/posts/search/recent?%s", a.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Page{}, errors.Wrap(err, "create twitterlike request")
	}
	req.Header.Set("Authorization", "Bearer "+a.bearerToken)
	req.Header.Set("User-Agent", "tifo/1.0")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		metrics.AdapterCalls.WithLabelValues(string(post.PlatformTwitterlike), "unavailable").Inc()
		return Page{}, post.NewAdapterError(post.PlatformTwitterlike, post.AdapterUnavailable, err)
	}
	defer resp.Body.Close()

	if aerr := classifyStatus(post.PlatformTwitterlike, resp); aerr != nil {
		metrics.AdapterCalls.WithLabelValues(string(post.PlatformTwitterlike), string(aerr.Kind)).Inc()
		return Page{}, aerr
	}

	var payload twitterlikeSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.AdapterCalls.WithLabelValues(string(post.PlatformTwitterlike), "malformed").Inc()
		return Page{}, post.NewAdapterError(post.PlatformTwitterlike, post.AdapterMalformed,
			errors.Wrap(err, "decode search response"))
	}
	metrics.AdapterCalls.WithLabelValues(string(post.PlatformTwitterlike), "success").Inc()

	posts := make([]post.RawPost, 0, len(payload.Data))
	skipped := 0
	for _, item := range payload.Data {
		mapped, err := a.mapPost(item)
		if err != nil {
			skipped++
			metrics.PostsSkipped.WithLabelValues(string(post.PlatformTwitterlike), "malformed").Inc()
			continue
		}
		posts = append(posts, mapped)
	}
	if skipped > 0 {
		a.log.Warnw("Skipped malformed items in search page", "skipped", skipped, "kept", len(posts))
	}

	return Page{Posts: posts, NextCursor: payload.Meta.NextToken}, nil
}

func (a *TwitterlikeAdapter) mapPost(item twitterlikePost) (post.RawPost, error) {
	if item.ID == "" || item.Text == "" {
		return post.RawPost{}, errors.New("missing id or text")
	}

	postedAt, err := time.Parse(time.RFC3339, item.CreatedAt)
	if err != nil {
		return post.RawPost{}, errors.Wrap(err, "parse created_at")
	}

	content := truncateContent(item.Text)

	return post.RawPost{
		Platform:     post.PlatformTwitterlike,
		ExternalID:   item.ID,
		AuthorHandle: item.Author,
		Content:      content,
		PostedAt:     postedAt.UTC(),
		Engagement: map[string]int64{
			"reposts": item.Metrics.RepostCount,
			"likes":   item.Metrics.LikeCount,
			"replies": item.Metrics.ReplyCount,
		},
	}, nil
}

// classifyStatus maps HTTP failure codes onto typed adapter errors.
// Returns nil for 2xx.
func classifyStatus(platform post.Platform, resp *http.Response) *post.AdapterError {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &post.AdapterError{
			Platform:   platform,
			Kind:       post.AdapterRateLimited,
			RetryAfter: retryAfterHeader(resp),
			Err:        errors.ErrRateLimited,
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return post.NewAdapterError(platform, post.AdapterAuthFailed,
			errors.Newf("status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return post.NewAdapterError(platform, post.AdapterUnavailable,
			errors.Newf("status %d", resp.StatusCode))
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return post.NewAdapterError(platform, post.AdapterMalformed,
			errors.Newf("status %d: %s", resp.StatusCode, string(body)))
	}
}

func retryAfterHeader(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
