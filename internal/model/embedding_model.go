package model

import "fmt"

// Framework is the embedding provider family of a model.
type Framework string

const (
	FrameworkHuggingFace Framework = "huggingface"
	FrameworkOpenAI      Framework = "openai"
	FrameworkAzureOpenAI Framework = "azure_openai"
	FrameworkGoogle      Framework = "google"
)

// Valid reports whether f is one of the supported frameworks.
func (f Framework) Valid() bool {
	switch f {
	case FrameworkHuggingFace, FrameworkOpenAI, FrameworkAzureOpenAI, FrameworkGoogle:
		return true
	}
	return false
}

// EmbeddingModel identifies one concrete model of a framework.
type EmbeddingModel struct {
	Framework Framework `json:"framework" validate:"required"`
	Model     string    `json:"model" validate:"required"`
}

func (m EmbeddingModel) String() string {
	return fmt.Sprintf("%s/%s", m.Framework, m.Model)
}

var (
	HuggingFaceMiniLML12V2 = EmbeddingModel{
		Framework: FrameworkHuggingFace,
		Model:     "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2",
	}
	HuggingFaceMpnetBaseV2 = EmbeddingModel{
		Framework: FrameworkHuggingFace,
		Model:     "sentence-transformers/paraphrase-multilingual-mpnet-base-v2",
	}
	HuggingFaceMentalHealthHarmonisation1 = EmbeddingModel{
		Framework: FrameworkHuggingFace,
		Model:     "harmonydata/mental_health_harmonisation_1",
	}
	OpenAIAda02 = EmbeddingModel{
		Framework: FrameworkOpenAI,
		Model:     "text-embedding-ada-002",
	}
	OpenAI3Large = EmbeddingModel{
		Framework: FrameworkOpenAI,
		Model:     "text-embedding-3-large",
	}
	GoogleGecko003 = EmbeddingModel{
		Framework: FrameworkGoogle,
		Model:     "textembedding-gecko@003",
	}
	GoogleGeckoMultilingual = EmbeddingModel{
		Framework: FrameworkGoogle,
		Model:     "textembedding-gecko-multilingual",
	}
	AzureOpenAI3Large = EmbeddingModel{
		Framework: FrameworkAzureOpenAI,
		Model:     "fds-text-embedding-3-large",
	}
	AzureOpenAIAda02 = EmbeddingModel{
		Framework: FrameworkAzureOpenAI,
		Model:     "fds-text-embedding-ada-002",
	}
)

// AllModels is the closed registry of models the API can serve.
var AllModels = []EmbeddingModel{
	HuggingFaceMiniLML12V2,
	HuggingFaceMpnetBaseV2,
	HuggingFaceMentalHealthHarmonisation1,
	OpenAIAda02,
	OpenAI3Large,
	GoogleGecko003,
	GoogleGeckoMultilingual,
	AzureOpenAI3Large,
	AzureOpenAIAda02,
}

// CatalogueModel is the only model with precomputed catalogue embeddings.
var CatalogueModel = HuggingFaceMiniLML12V2

// LookupModel resolves a framework/model pair against the registry.
func LookupModel(framework Framework, name string) (EmbeddingModel, bool) {
	for _, m := range AllModels {
		if m.Framework == framework && m.Model == name {
			return m, true
		}
	}
	return EmbeddingModel{}, false
}

// TextVector maps literal texts to their embedding under one model.
type TextVector map[string][]float32
