// Package llm wraps the remote text-generation services behind a single
// TextGenerationClient interface and provides best-effort extraction of JSON
// from the free-form text those services return.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Tier selects one of the two capability levels of the remote service
type Tier int

const (
	// TierPrimary is the larger, higher-quality model
	TierPrimary Tier = iota
	// TierFast is the lighter, cheaper model
	TierFast
)

func (t Tier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierFast:
		return "fast"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

var (
	// ErrUnavailable means no remote service is configured or reachable
	ErrUnavailable = errors.New("text generation service unavailable")
	// ErrMalformedOutput means the service answered but no usable JSON could be extracted
	ErrMalformedOutput = errors.New("malformed model output")
)

// Request is a single chat-style generation request
type Request struct {
	Tier        Tier
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// TextGenerationClient is implemented once per concrete remote-service shape.
// Generate returns the plain text the model produced.
type TextGenerationClient interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// Models maps each tier to a provider-specific model identifier
type Models struct {
	Primary string
	Fast    string
}

func (m Models) forTier(t Tier) string {
	if t == TierFast {
		return m.Fast
	}
	return m.Primary
}

// Config selects and configures a provider
type Config struct {
	Provider  string // "none", "openai", "anthropic", "workers"
	APIKey    string
	BaseURL   string
	AccountID string
	Models    Models
}

// Provider names
const (
	ProviderNone      = "none"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderWorkers   = "workers"
)

// NewClient builds the client for the configured provider. It returns a nil client
// and no error when the provider is "none": callers treat that as RemoteUnavailable.
func NewClient(cfg Config) (TextGenerationClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderNone:
		return nil, nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Models), nil
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		return NewAnthropicClient(cfg.APIKey, cfg.BaseURL, cfg.Models), nil
	case ProviderWorkers:
		if cfg.APIKey == "" || (cfg.AccountID == "" && cfg.BaseURL == "") {
			return nil, fmt.Errorf("workers provider requires an API token and an account ID or base URL")
		}
		return NewWorkersClient(cfg.APIKey, cfg.AccountID, cfg.BaseURL, cfg.Models), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
