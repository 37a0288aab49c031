package ai

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"tifo/internal/domain/post"
	"tifo/pkg/errors"
	"tifo/pkg/logger"
)

// Ensure OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)

// OpenAIProvider classifies batches through the official OpenAI Go SDK.
type OpenAIProvider struct {
	client  openai.Client // NewClient returns Client (not *Client)
	model   openai.ChatModel
	timeout time.Duration
	log     *logger.Logger
}

// NewOpenAIProvider creates a new OpenAI classification provider.
func NewOpenAIProvider(apiKey string, model string, timeout time.Duration) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "openai API key is required")
	}
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	if timeout == 0 {
		timeout = 45 * time.Second
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &OpenAIProvider{
		client:  client,
		model:   openai.ChatModel(model),
		timeout: timeout,
		log:     logger.Get().With("component", "openai_classifier", "model", model),
	}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() ProviderName {
	return ProviderNameOpenAI
}

// Classify sends one batch and returns the raw model output.
func (p *OpenAIProvider) Classify(ctx context.Context, posts []post.RawPost, domain DomainContext) (string, error) {
	payload, err := batchPayload(posts)
	if err != nil {
		return "", errors.Wrap(err, "marshal batch payload")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction(domain)),
			openai.UserMessage(payload),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", p.mapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &ProviderError{
			Provider: ProviderNameOpenAI,
			Kind:     ProviderUnavailable,
			Err:      errors.Wrap(errors.ErrExternal, "no choices returned"),
		}
	}

	p.log.Debugw("Classification batch completed",
		"posts", len(posts),
		"tokens_used", resp.Usage.TotalTokens,
	)

	return resp.Choices[0].Message.Content, nil
}

// mapError converts SDK errors into typed provider errors.
func (p *OpenAIProvider) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return &ProviderError{
				Provider:   ProviderNameOpenAI,
				Kind:       ProviderRateLimited,
				RetryAfter: retryAfterHeader(apiErr.Response),
				Err:        err,
			}
		case apiErr.StatusCode >= 500:
			return &ProviderError{Provider: ProviderNameOpenAI, Kind: ProviderUnavailable, Err: err}
		default:
			return &ProviderError{Provider: ProviderNameOpenAI, Kind: ProviderInvalidRequest, Err: err}
		}
	}

	// Timeouts and transport failures are recoverable.
	return &ProviderError{Provider: ProviderNameOpenAI, Kind: ProviderUnavailable, Err: err}
}

// retryAfterHeader reads the provider's indicated retry time, if any.
func retryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
