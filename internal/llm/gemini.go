package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini completes with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a completer for model using apiKey.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) request(req Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := []*genai.Content{genai.NewContentFromText(req.Query, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens(req.MaxTokens)),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	return contents, cfg
}

func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	contents, cfg := g.request(req)
	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return res.Text(), nil
}

func (g *Gemini) Stream(ctx context.Context, req Request, onChunk func(string)) (string, error) {
	contents, cfg := g.request(req)
	var b strings.Builder
	for res, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
		if err != nil {
			return b.String(), fmt.Errorf("gemini stream: %w", err)
		}
		if text := res.Text(); text != "" {
			b.WriteString(text)
			onChunk(text)
		}
	}
	return b.String(), nil
}
