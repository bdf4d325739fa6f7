package factory

import (
	"testing"

	"harmony-api/internal/config"
	"harmony-api/internal/model"
	"harmony-api/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailable(t *testing.T) {
	cfg := config.AIConfig{
		HuggingFace: config.HuggingFaceConfig{BaseURL: "http://hf"},
		OpenAI:      config.OpenAIConfig{APIKey: "sk"},
		AzureOpenAI: config.AzureOpenAIConfig{Endpoint: "http://azure"},
	}

	tests := []struct {
		model model.EmbeddingModel
		want  bool
	}{
		{model.HuggingFaceMiniLML12V2, true},
		{model.OpenAI3Large, true},
		{model.AzureOpenAI3Large, false},
		{model.GoogleGecko003, false},
		{model.EmbeddingModel{Framework: "cohere", Model: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.model.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Available(tt.model, cfg))
		})
	}
}

func TestNewVectoriser(t *testing.T) {
	cfg := config.AIConfig{
		HuggingFace: config.HuggingFaceConfig{BaseURL: "http://hf"},
		Google:      config.GoogleConfig{APIKey: "g"},
		RateLimit:   2,
	}

	v, err := NewVectoriser(model.HuggingFaceMiniLML12V2, cfg)
	require.NoError(t, err)
	assert.IsType(t, &embedding.Batched{}, v)

	cfg.RateLimit = 0
	v, err = NewVectoriser(model.GoogleGecko003, cfg)
	require.NoError(t, err)
	assert.IsType(t, &embedding.Batched{}, v)

	_, err = NewVectoriser(model.EmbeddingModel{Framework: model.FrameworkHuggingFace, Model: "nope"}, cfg)
	assert.ErrorIs(t, err, embedding.ErrUnknownModel)

	_, err = NewVectoriser(model.OpenAIAda02, cfg)
	assert.ErrorIs(t, err, embedding.ErrModelUnavailable)
}
