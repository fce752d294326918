// Package embedding provides the text embedding providers used to rank
// memories: Ollama, OpenAI-compatible APIs, Gemini and a local hashing model.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// ErrUnavailable marks a provider failure: the service could not be
// reached, refused the request, or returned no vector.
var ErrUnavailable = errors.New("embedding unavailable")

// Embedder generates embedding vectors from text.
//
// Embed errors are soft. Callers treat a failed embed as "no vector": the
// memory is stored without one and ranking reports memory as unavailable.
// Provider errors wrap ErrUnavailable.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
}

// CosineSimilarity computes cosine similarity between two vectors.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Config selects and tunes the embedding provider.
type Config struct {
	// Provider is one of hash, ollama, openai, gemini or none.
	Provider string `yaml:"provider" env:"PROVIDER"`
	Model    string `yaml:"model" env:"MODEL"`
	URL      string `yaml:"url" env:"URL"`
	APIKey   string `yaml:"api_key" env:"API_KEY"`
	Dims     int    `yaml:"dims" env:"DIMS"`
	// CacheSize bounds the embedding cache in vectors. Zero disables it.
	CacheSize int64 `yaml:"cache_size" env:"CACHE_SIZE"`
}

// New creates the configured embedder. It returns nil when embeddings are
// disabled.
func New(ctx context.Context, cfg Config) (Embedder, error) {
	var e Embedder
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "hash":
		e = NewHashEmbedder(cfg.Dims)
	case "ollama":
		e = NewOllamaEmbedder(cfg.URL, cfg.Model, cfg.Dims)
	case "openai":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		e = NewOpenAIEmbedder(cfg.URL, key, cfg.Model, cfg.Dims)
	case "gemini":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}
		g, err := NewGeminiEmbedder(ctx, key, cfg.Model, cfg.Dims)
		if err != nil {
			return nil, err
		}
		e = g
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	if cfg.CacheSize > 0 {
		return NewCached(e, cfg.CacheSize)
	}
	return e, nil
}
