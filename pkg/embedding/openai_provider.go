package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// OpenAIProvider speaks the OpenAI embeddings API. Azure OpenAI deployments use the
// same wire format with a different URL and auth header.
type OpenAIProvider struct {
	endpoint   string
	model      string
	authHeader string
	authValue  string
	client     *http.Client
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewOpenAIProvider(baseURL, apiKey, model string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		endpoint:   strings.TrimRight(baseURL, "/") + "/embeddings",
		model:      model,
		authHeader: "Authorization",
		authValue:  fmt.Sprintf("Bearer %s", apiKey),
		client:     &http.Client{},
	}
}

// NewAzureOpenAIProvider targets the deployment named after model.
func NewAzureOpenAIProvider(endpoint, apiKey, apiVersion, model string) *OpenAIProvider {
	return &OpenAIProvider{
		endpoint: fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
			strings.TrimRight(endpoint, "/"), model, apiVersion),
		model:      model,
		authHeader: "api-key",
		authValue:  apiKey,
		client:     &http.Client{},
	}
}

func (p *OpenAIProvider) Vectorise(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	jsonData, err := json.Marshal(embeddingRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(p.authHeader, p.authValue)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai api error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp embeddingResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("openai api returned error: %s", apiResp.Error.Message)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d texts", len(apiResp.Data), len(texts))
	}

	sort.Slice(apiResp.Data, func(i, j int) bool { return apiResp.Data[i].Index < apiResp.Data[j].Index })

	vectors := make([][]float32, len(apiResp.Data))
	for i, d := range apiResp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
