package platforms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tifo/internal/domain/post"
	"tifo/internal/metrics"
	"tifo/pkg/errors"
	"tifo/pkg/logger"
)

const defaultForumBaseURL = "https://api.fanforum.example"

// tokenSkew refreshes the OAuth token slightly before it expires so an
// in-flight listing call never races the expiry.
const tokenSkew = 30 * time.Second

// ForumAdapter fetches threads from the fan forum API. The forum uses an
// OAuth2 client-credentials handshake; the access token is cached until
// shortly before expiry.
type ForumAdapter struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	pageSize     int

	mu          sync.Mutex // serializes outbound calls and token refresh
	pacer       *rate.Limiter
	accessToken string
	tokenExpiry time.Time
	now         func() time.Time
	log         *logger.Logger
}

// NewForumAdapter creates the forum adapter.
func NewForumAdapter(clientID, clientSecret, baseURL string, pageSize, perMinute int, timeout time.Duration) *ForumAdapter {
	if baseURL == "" {
		baseURL = defaultForumBaseURL
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	if perMinute <= 0 {
		perMinute = 6
	}

	return &ForumAdapter{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		pageSize:     pageSize,
		pacer:        rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		now:          time.Now,
		log:          logger.Get().With("component", "platform_adapter", "platform", post.PlatformForum),
	}
}

// Platform identifies this adapter.
func (a *ForumAdapter) Platform() post.Platform {
	return post.PlatformForum
}

type forumTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type forumListingResponse struct {
	Posts []forumPost `json:"posts"`
	After string      `json:"after"`
}

type forumPost struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"created_utc"`
	Upvotes   int64  `json:"upvotes"`
	Replies   int64  `json:"num_replies"`
}

// FetchBatch lists one page of recent posts matching the query.
func (a *ForumAdapter) FetchBatch(ctx context.Context, query, cursor string) (Page, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.clientID == "" || a.clientSecret == "" {
		return Page{}, post.NewAdapterError(post.PlatformForum, post.AdapterAuthFailed,
			errors.New("client credentials not configured"))
	}

	if err := a.pacer.Wait(ctx); err != nil {
		return Page{}, errors.Wrap(err, "forum pacing wait")
	}

	token, err := a.ensureToken(ctx)
	if err != nil {
		return Page{}, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(a.pageSize))
	params.Set("sort", "new")
	if cursor != "" {
		params.Set("after", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.baseURL+"/v1/posts/search?"+params.Encode(), nil)
	if err != nil {
		return Page{}, errors.Wrap(err, "create forum request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", "tifo/1.0")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		metrics.AdapterCalls.WithLabelValues(string(post.PlatformForum), "unavailable").Inc()
		return Page{}, post.NewAdapterError(post.PlatformForum, post.AdapterUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Token may have been revoked server side. Drop the cache so
		// the next call performs a fresh handshake.
		a.accessToken = ""
		a.tokenExpiry = time.Time{}
	}
	if aerr := classifyStatus(post.PlatformForum, resp); aerr != nil {
		metrics.AdapterCalls.WithLabelValues(string(post.PlatformForum), string(aerr.Kind)).Inc()
		return Page{}, aerr
	}

	var payload forumListingResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.AdapterCalls.WithLabelValues(string(post.PlatformForum), "malformed").Inc()
		return Page{}, post.NewAdapterError(post.PlatformForum, post.AdapterMalformed,
			errors.Wrap(err, "decode listing response"))
	}
	metrics.AdapterCalls.WithLabelValues(string(post.PlatformForum), "success").Inc()

	posts := make([]post.RawPost, 0, len(payload.Posts))
	skipped := 0
	for _, item := range payload.Posts {
		mapped, err := a.mapPost(item)
		if err != nil {
			skipped++
			metrics.PostsSkipped.WithLabelValues(string(post.PlatformForum), "malformed").Inc()
			continue
		}
		posts = append(posts, mapped)
	}
	if skipped > 0 {
		a.log.Warnw("Skipped malformed items in listing page", "skipped", skipped, "kept", len(posts))
	}

	return Page{Posts: posts, NextCursor: payload.After}, nil
}

// ensureToken returns a valid access token, performing the
// client-credentials handshake when the cached one is missing or stale.
// Caller holds a.mu.
func (a *ForumAdapter) ensureToken(ctx context.Context) (string, error) {
	if a.accessToken != "" && a.now().Before(a.tokenExpiry.Add(-tokenSkew)) {
		return a.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "create token request")
	}
	req.SetBasicAuth(a.clientID, a.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", post.NewAdapterError(post.PlatformForum, post.AdapterUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", post.NewAdapterError(post.PlatformForum, post.AdapterAuthFailed,
			errors.Newf("token handshake status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return "", post.NewAdapterError(post.PlatformForum, post.AdapterUnavailable,
			errors.Newf("token handshake status %d", resp.StatusCode))
	}

	var tr forumTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", post.NewAdapterError(post.PlatformForum, post.AdapterMalformed,
			errors.Wrap(err, "decode token response"))
	}
	if tr.AccessToken == "" || tr.ExpiresIn <= 0 {
		return "", post.NewAdapterError(post.PlatformForum, post.AdapterAuthFailed,
			errors.New("token handshake returned empty token"))
	}

	a.accessToken = tr.AccessToken
	a.tokenExpiry = a.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	a.log.Debugw("Refreshed forum access token", "expires_in", tr.ExpiresIn)

	return a.accessToken, nil
}

func (a *ForumAdapter) mapPost(item forumPost) (post.RawPost, error) {
	if item.ID == "" {
		return post.RawPost{}, errors.New("missing id")
	}

	content := strings.TrimSpace(item.Title)
	if item.Body != "" {
		if content != "" {
			content += "\n\n"
		}
		content += item.Body
	}
	if content == "" {
		return post.RawPost{}, errors.New("empty content")
	}
	content = truncateContent(content)
	if item.CreatedAt <= 0 {
		return post.RawPost{}, errors.New("missing created_utc")
	}

	return post.RawPost{
		Platform:     post.PlatformForum,
		ExternalID:   item.ID,
		AuthorHandle: item.Author,
		Content:      content,
		PostedAt:     time.Unix(item.CreatedAt, 0).UTC(),
		Engagement: map[string]int64{
			"upvotes": item.Upvotes,
			"replies": item.Replies,
		},
	}, nil
}
