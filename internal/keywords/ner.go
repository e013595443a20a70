// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package keywords

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nateginn/chiron/internal/httputil"
)

// hfAPIBase is the hosted inference endpoint prefix. Package-level var
// for test substitution.
var hfAPIBase = "https://api-inference.huggingface.co/models/"

// HFBackend runs token classification against a hosted inference API.
type HFBackend struct {
	Model      string
	Token      string
	Client     *http.Client
	MaxRetries int

	// Endpoint overrides the default URL (hfAPIBase + Model) when set.
	Endpoint string
}

// hfRequest is the request body for the token classification endpoint.
type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	AggregationStrategy string `json:"aggregation_strategy"`
}

// Recognize posts the text to the inference API and decodes the entity
// list. Entities come back pre-aggregated into word-level spans.
func (b *HFBackend) Recognize(ctx context.Context, text string) ([]Entity, error) {
	url := b.Endpoint
	if url == "" {
		url = hfAPIBase + b.Model
	}

	body, err := json.Marshal(hfRequest{
		Inputs:     text,
		Parameters: hfParameters{AggregationStrategy: "simple"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling NER request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating NER request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.Token != "" {
		req.Header.Set("Authorization", "Bearer "+b.Token)
	}

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, b.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("calling NER API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("NER API returned %d: %s", resp.StatusCode, string(msg))
	}

	var entities []Entity
	if err := json.NewDecoder(resp.Body).Decode(&entities); err != nil {
		return nil, fmt.Errorf("decoding NER response: %w", err)
	}
	return entities, nil
}
