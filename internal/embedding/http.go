package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const httpTimeout = 30 * time.Second

// postJSON sends body to url and decodes the JSON reply into out. Transport
// failures and non-2xx replies wrap ErrUnavailable.
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode reply: %v", ErrUnavailable, err)
	}
	return nil
}

// ollamaDims are the vector sizes of common Ollama embedding models.
var ollamaDims = map[string]int{
	"nomic-embed-text":  768,
	"all-minilm":        384,
	"mxbai-embed-large": 1024,
}

// OllamaEmbedder calls a local Ollama server.
type OllamaEmbedder struct {
	url    string
	model  string
	dims   int
	client *http.Client
}

type ollamaRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaResponse struct {
	Embeddings []Vector `json:"embeddings"`
}

// NewOllamaEmbedder returns an embedder for baseURL (default
// http://localhost:11434) and model (default nomic-embed-text). dims of zero
// is looked up from the model name.
func NewOllamaEmbedder(baseURL, model string, dims int) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	if dims == 0 {
		dims = ollamaDims[model]
	}
	return &OllamaEmbedder{
		url:    baseURL + "/api/embed",
		model:  model,
		dims:   dims,
		client: &http.Client{Timeout: httpTimeout},
	}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	var res ollamaResponse
	if err := postJSON(ctx, e.client, e.url, nil, ollamaRequest{Model: e.model, Input: text}, &res); err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	if len(res.Embeddings) == 0 || len(res.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama: empty reply: %w", ErrUnavailable)
	}
	return res.Embeddings[0], nil
}

func (e *OllamaEmbedder) Dims() int { return e.dims }

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	url    string
	header http.Header
	model  string
	dims   int
	client *http.Client
}

type openaiRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type openaiResponse struct {
	Data []struct {
		Embedding Vector `json:"embedding"`
	} `json:"data"`
}

// NewOpenAIEmbedder returns an embedder for baseURL (default the OpenAI API)
// and model (default text-embedding-3-small, 1536 dims). A non-zero dims is
// sent as the requested dimension count.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dims int) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	e := &OpenAIEmbedder{
		url:    baseURL + "/embeddings",
		header: http.Header{},
		model:  model,
		dims:   dims,
		client: &http.Client{Timeout: httpTimeout},
	}
	if apiKey != "" {
		e.header.Set("Authorization", "Bearer "+apiKey)
	}
	return e
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	var res openaiResponse
	body := openaiRequest{Input: text, Model: e.model, Dimensions: e.dims}
	if err := postJSON(ctx, e.client, e.url, e.header, body, &res); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(res.Data) == 0 || len(res.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai: empty reply: %w", ErrUnavailable)
	}
	return res.Data[0].Embedding, nil
}

func (e *OpenAIEmbedder) Dims() int {
	if e.dims == 0 {
		return 1536
	}
	return e.dims
}
