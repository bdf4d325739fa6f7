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

type GeminiProvider struct {
	BaseURL string
	ApiKey  string
	Model   string
	Client  *http.Client
}

func NewGeminiProvider(baseURL, apiKey, model string) *GeminiProvider {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1"
	}
	return &GeminiProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		ApiKey:  apiKey,
		Model:   model,
		Client:  &http.Client{},
	}
}

func (p *GeminiProvider) Vectorise(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	modelPath := fmt.Sprintf("models/%s", p.Model)
	batch := BatchEmbeddingRequest{Requests: make([]EmbeddingRequest, 0, len(texts))}
	for _, text := range texts {
		batch.Requests = append(batch.Requests, EmbeddingRequest{
			Model:    modelPath,
			Content:  EmbeddingRequestContent{Parts: []EmbeddingRequestContentPart{{Text: text}}},
			TaskType: "RETRIEVAL_DOCUMENT",
		})
	}
	geminiReqJson, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s:batchEmbedContents", p.BaseURL, modelPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(geminiReqJson))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", p.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	resByte, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error from gemini response, code %d, body %s", res.StatusCode, string(resByte))
	}

	var resEmbedding BatchEmbeddingResponse
	if err := json.Unmarshal(resByte, &resEmbedding); err != nil {
		return nil, err
	}
	if len(resEmbedding.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(resEmbedding.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resEmbedding.Embeddings))
	for i, e := range resEmbedding.Embeddings {
		vectors[i] = e.Values
	}
	return vectors, nil
}
