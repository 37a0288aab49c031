package ai

import (
	"context"
	"fmt"
	"time"

	"tifo/internal/domain/post"
)

// ProviderName identifies a classification backend.
type ProviderName string

const (
	ProviderNameOpenAI ProviderName = "openai"
	ProviderNameGemini ProviderName = "gemini"
)

// DomainContext carries the football-specific hints sent alongside each
// classification batch: target club names and known player names.
type DomainContext struct {
	Clubs   []string
	Players []string
}

// Provider is the uniform capability every classification backend
// implements. Classify sends one batch and returns the provider's raw
// textual payload; the gateway owns parsing and normalization, so
// downstream code never sees vendor-specific shapes.
type Provider interface {
	Name() ProviderName

	Classify(ctx context.Context, posts []post.RawPost, domain DomainContext) (string, error)
}

// ProviderErrorKind classifies provider call failures.
type ProviderErrorKind string

const (
	// ProviderRateLimited maps HTTP 429; RetryAfter carries the
	// provider's indicated retry time when present.
	ProviderRateLimited ProviderErrorKind = "rate_limited"

	// ProviderUnavailable maps HTTP 5xx and timeouts.
	ProviderUnavailable ProviderErrorKind = "unavailable"

	// ProviderInvalidRequest maps HTTP 4xx other than 429.
	ProviderInvalidRequest ProviderErrorKind = "invalid_request"
)

// ProviderError is a typed failure from a classification backend.
type ProviderError struct {
	Provider   ProviderName
	Kind       ProviderErrorKind
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}
