package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HuggingFaceProvider calls the feature-extraction pipeline of a sentence-transformers
// model, either on the hosted inference router or a self-hosted endpoint.
type HuggingFaceProvider struct {
	BaseURL  string
	APIToken string
	Model    string
	Client   *http.Client
}

func NewHuggingFaceProvider(baseURL, apiToken, model string) *HuggingFaceProvider {
	if baseURL == "" {
		baseURL = "https://router.huggingface.co/hf-inference"
	}
	return &HuggingFaceProvider{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIToken: apiToken,
		Model:    model,
		Client:   &http.Client{},
	}
}

type featureExtractionRequest struct {
	Inputs []string `json:"inputs"`
}

func (p *HuggingFaceProvider) Vectorise(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	jsonBody, err := json.Marshal(featureExtractionRequest{Inputs: texts})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/models/%s/pipeline/feature-extraction", p.BaseURL, p.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.APIToken))
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("huggingface embedding error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var vectors [][]float32
	if err := json.Unmarshal(bodyBytes, &vectors); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("huggingface returned %d embeddings for %d texts", len(vectors), len(texts))
	}

	return vectors, nil
}
