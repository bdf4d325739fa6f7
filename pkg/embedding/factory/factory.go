package factory

import (
	"fmt"

	"harmony-api/internal/config"
	"harmony-api/internal/model"
	"harmony-api/pkg/embedding"
)

// Largest number of texts each framework accepts in one request.
var maxBatchSize = map[model.Framework]int{
	model.FrameworkHuggingFace: 64,
	model.FrameworkOpenAI:      2048,
	model.FrameworkAzureOpenAI: 16,
	model.FrameworkGoogle:      100,
}

// NewVectoriser resolves m against the model registry and builds the provider for
// its framework. Every batch sent to the provider passes the configured rate limit.
func NewVectoriser(m model.EmbeddingModel, cfg config.AIConfig) (embedding.Vectoriser, error) {
	if _, ok := model.LookupModel(m.Framework, m.Model); !ok {
		return nil, fmt.Errorf("%w %s", embedding.ErrUnknownModel, m)
	}
	if !Available(m, cfg) {
		return nil, fmt.Errorf("%w: %s", embedding.ErrModelUnavailable, m)
	}

	var v embedding.Vectoriser
	switch m.Framework {
	case model.FrameworkHuggingFace:
		v = embedding.NewHuggingFaceProvider(cfg.HuggingFace.BaseURL, cfg.HuggingFace.APIToken, m.Model)
	case model.FrameworkOpenAI:
		v = embedding.NewOpenAIProvider(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, m.Model)
	case model.FrameworkAzureOpenAI:
		v = embedding.NewAzureOpenAIProvider(cfg.AzureOpenAI.Endpoint, cfg.AzureOpenAI.APIKey, cfg.AzureOpenAI.APIVersion, m.Model)
	case model.FrameworkGoogle:
		v = embedding.NewGeminiProvider(cfg.Google.BaseURL, cfg.Google.APIKey, m.Model)
	default:
		return nil, fmt.Errorf("%w %s", embedding.ErrUnknownModel, m)
	}

	return embedding.NewBatched(embedding.NewRateLimited(v, cfg.RateLimit), maxBatchSize[m.Framework]), nil
}

// Available reports whether the server holds what m's framework needs to be called.
// HuggingFace only needs an endpoint, the token is optional.
func Available(m model.EmbeddingModel, cfg config.AIConfig) bool {
	switch m.Framework {
	case model.FrameworkHuggingFace:
		return cfg.HuggingFace.BaseURL != ""
	case model.FrameworkOpenAI:
		return cfg.OpenAI.APIKey != ""
	case model.FrameworkAzureOpenAI:
		return cfg.AzureOpenAI.Endpoint != "" && cfg.AzureOpenAI.APIKey != ""
	case model.FrameworkGoogle:
		return cfg.Google.APIKey != ""
	}
	return false
}
