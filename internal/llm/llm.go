// Package llm produces persona responses from a system prompt and a query.
package llm

import (
	"context"
	"fmt"
	"os"
)

// Request is one completion call.
type Request struct {
	System    string
	Query     string
	MaxTokens int
}

// Completer generates a response for a request.
type Completer interface {
	// Complete returns the whole response.
	Complete(ctx context.Context, req Request) (string, error)
	// Stream delivers the response in chunks and returns the joined text.
	Stream(ctx context.Context, req Request, onChunk func(string)) (string, error)
}

// Config selects a completion provider.
type Config struct {
	Provider  string `yaml:"provider" env:"PROVIDER"`
	Model     string `yaml:"model" env:"MODEL"`
	APIKey    string `yaml:"api_key" env:"API_KEY"`
	MaxTokens int    `yaml:"max_tokens" env:"MAX_TOKENS"`
}

// DefaultMaxTokens bounds a response when the config leaves it unset.
const DefaultMaxTokens = 1024

// New creates a Completer from cfg. Supported providers are anthropic,
// gemini and echo. An empty provider selects echo.
func New(ctx context.Context, cfg Config) (Completer, error) {
	switch cfg.Provider {
	case "", "echo":
		return Echo{}, nil
	case "anthropic":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("ANTHROPIC_API_KEY")
		}
		return NewAnthropic(key, cfg.Model)
	case "gemini":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}
		return NewGemini(ctx, key, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider: %q (supported: anthropic, gemini, echo)", cfg.Provider)
	}
}

func maxTokens(n int) int {
	if n <= 0 {
		return DefaultMaxTokens
	}
	return n
}
