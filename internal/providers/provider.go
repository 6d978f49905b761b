package providers

import (
	"context"
	"fmt"
	"time"
)

// CompletionRequest contains the prompt sent to an LLM.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// CompletionResponse contains the raw text returned by an LLM.
type CompletionResponse struct {
	Content    string
	TokensUsed int
}

// Completer is the provider abstraction interface.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Name() string
	Model() string
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

var defaultBaseURLs = map[string]string{
	"deepseek": "https://api.deepseek.com/v1",
	"openai":   "https://api.openai.com/v1",
	"ollama":   "http://localhost:11434/v1",
}

// New creates a provider by name.
func New(cfg Config) (Completer, error) {
	def, ok := defaultBaseURLs[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def
	}
	if cfg.APIKey == "" && cfg.Provider != "ollama" {
		return nil, fmt.Errorf("%s provider requires OPENAI_API_KEY", cfg.Provider)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%s provider requires a model name", cfg.Provider)
	}
	return NewOpenAI(cfg), nil
}
