package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic completes with the Claude Messages API.
type Anthropic struct {
	client *anthropic.Client
	model  string
}

// NewAnthropic creates a completer for model using apiKey.
func NewAnthropic(apiKey, model string) (*Anthropic, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Anthropic{client: &client, model: model}, nil
}

func (a *Anthropic) params(req Request) anthropic.MessageNewParams {
	p := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens(req.MaxTokens)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Query)),
		},
	}
	if req.System != "" {
		p.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	return p
}

func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := a.client.Messages.New(ctx, a.params(req))
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

func (a *Anthropic) Stream(ctx context.Context, req Request, onChunk func(string)) (string, error) {
	stream := a.client.Messages.NewStreaming(ctx, a.params(req))
	defer stream.Close()

	var b strings.Builder
	for stream.Next() {
		event := stream.Current()
		switch evt := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := evt.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				b.WriteString(delta.Text)
				onChunk(delta.Text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return b.String(), fmt.Errorf("anthropic stream: %w", err)
	}
	return b.String(), nil
}
