package ai

import (
	"context"
	"net/http"
	"time"

	"google.golang.org/genai"

	"tifo/internal/domain/post"
	"tifo/pkg/errors"
	"tifo/pkg/logger"
)

// Ensure GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)

// GeminiProvider classifies batches through the Google GenAI SDK.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	log     *logger.Logger
}

// NewGeminiProvider creates a new Gemini classification provider.
func NewGeminiProvider(ctx context.Context, apiKey string, model string, timeout time.Duration) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout == 0 {
		timeout = 45 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create genai client")
	}

	return &GeminiProvider{
		client:  client,
		model:   model,
		timeout: timeout,
		log:     logger.Get().With("component", "gemini_classifier", "model", model),
	}, nil
}

// Name returns the provider name.
func (p *GeminiProvider) Name() ProviderName {
	return ProviderNameGemini
}

// Classify sends one batch and returns the raw model output.
func (p *GeminiProvider) Classify(ctx context.Context, posts []post.RawPost, domain DomainContext) (string, error) {
	payload, err := batchPayload(posts)
	if err != nil {
		return "", errors.Wrap(err, "marshal batch payload")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Models.GenerateContent(ctx, p.model,
		genai.Text(payload),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction(domain), genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.2),
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		return "", p.mapError(err)
	}

	text := resp.Text()
	if text == "" {
		return "", &ProviderError{
			Provider: ProviderNameGemini,
			Kind:     ProviderUnavailable,
			Err:      errors.Wrap(errors.ErrExternal, "empty response"),
		}
	}

	p.log.Debugw("Classification batch completed", "posts", len(posts))

	return text, nil
}

// mapError converts SDK errors into typed provider errors.
func (p *GeminiProvider) mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return &ProviderError{Provider: ProviderNameGemini, Kind: ProviderRateLimited, Err: err}
		case apiErr.Code >= 500:
			return &ProviderError{Provider: ProviderNameGemini, Kind: ProviderUnavailable, Err: err}
		default:
			return &ProviderError{Provider: ProviderNameGemini, Kind: ProviderInvalidRequest, Err: err}
		}
	}

	return &ProviderError{Provider: ProviderNameGemini, Kind: ProviderUnavailable, Err: err}
}
