package translate

import (
	"context"
	"fmt"

	"github.com/minios-linux/transtree/config"
)

const defaultDelay = config.DefaultDelay

// DefaultOpenAIBaseURL is used by the openai engine when no base URL is set.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// DefaultOpenAIModel is used by the openai engine when no model is set.
const DefaultOpenAIModel = "gpt-4o-mini"

// NewService builds the backend selected by e.ID.
func NewService(ctx context.Context, e config.Engine) (Service, error) {
	switch e.ID {
	case config.EngineGoogle:
		return NewGoogle(e.MaxRetries), nil
	case config.EngineGemini:
		return NewGemini(ctx, e.APIKey, e.Model)
	case config.EngineOpenAI:
		baseURL := e.BaseURL
		if baseURL == "" {
			baseURL = DefaultOpenAIBaseURL
		}
		model := e.Model
		if model == "" {
			model = DefaultOpenAIModel
		}
		if e.APIKey == "" && baseURL == DefaultOpenAIBaseURL {
			return nil, fmt.Errorf("openai engine needs an API key (--api-key, %s or OPENAI_API_KEY)", config.EnvAPIKey)
		}
		o := NewOpenAI(baseURL, e.APIKey, model, e.Timeout, e.MaxRetries)
		o.Verbose = e.Verbose
		return o, nil
	case config.EngineEcho:
		return Echo{}, nil
	default:
		return nil, fmt.Errorf("unknown engine %q", e.ID)
	}
}

// Echo returns its input unchanged. It is used for dry runs: files are
// walked, read and rewritten without contacting any service.
type Echo struct{}

// Name implements Service.
func (Echo) Name() string { return "echo" }

// Translate implements Service.
func (Echo) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}
