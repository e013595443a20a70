// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nateginn/chiron/pkg/types"
)

// Embedder converts a short text string into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OllamaEmbedder calls a local Ollama server's embeddings API.
type OllamaEmbedder struct {
	Endpoint string
	Model    string
	Client   *http.Client
}

const (
	defaultEmbedEndpoint = "http://localhost:11434/api/embeddings"
	defaultEmbedModel    = "nomic-embed-text:v1.5"
)

// NewOllamaEmbedder builds an embedder from the matcher configuration.
func NewOllamaEmbedder(cfg types.MatcherConfig) *OllamaEmbedder {
	endpoint := cfg.EmbedEndpoint
	if endpoint == "" {
		endpoint = defaultEmbedEndpoint
	}
	model := cfg.EmbedModel
	if model == "" {
		model = defaultEmbedModel
	}
	client := &http.Client{}
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	return &OllamaEmbedder{
		Endpoint: endpoint,
		Model:    model,
		Client:   client,
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed posts the text to the embeddings endpoint and returns the vector.
func (o *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: o.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embeddings API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embeddings API returned %d: %s", resp.StatusCode, string(msg))
	}

	var embResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(embResp.Embedding) == 0 {
		return nil, fmt.Errorf("embeddings API returned an empty vector")
	}
	return embResp.Embedding, nil
}
