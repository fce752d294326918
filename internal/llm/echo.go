package llm

import (
	"context"
	"strings"
)

// Echo is an offline completer that answers with the first line of the
// system prompt and the query. It makes the pipeline usable without network
// access.
type Echo struct{}

func (Echo) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	persona, _, _ := strings.Cut(strings.TrimSpace(req.System), "\n")
	if persona == "" {
		return "Re: " + req.Query, nil
	}
	return persona + "\nRe: " + req.Query, nil
}

func (e Echo) Stream(ctx context.Context, req Request, onChunk func(string)) (string, error) {
	text, err := e.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	for _, word := range strings.SplitAfter(text, " ") {
		onChunk(word)
	}
	return text, nil
}
