package dto

import (
	"harmony-api/internal/model"
	"harmony-api/pkg/matching"
)

// ModelParameters selects the embedding model. Empty fields fall back to the
// catalogue model.
type ModelParameters struct {
	Framework model.Framework `json:"framework"`
	Model     string          `json:"model"`
}

func (p ModelParameters) EmbeddingModel() model.EmbeddingModel {
	if p.Framework == "" && p.Model == "" {
		return model.CatalogueModel
	}
	return model.EmbeddingModel{Framework: p.Framework, Model: p.Model}
}

type ParseRequest struct {
	Files []model.RawFile `validate:"dive"`
}

type MatchRequest struct {
	Instruments []model.Instrument `json:"instruments" validate:"required,min=1"`
	Query       string             `json:"query"`
	Parameters  ModelParameters    `json:"parameters"`

	IncludeCatalogueMatches bool     `json:"-"`
	CatalogueSources        []string `json:"-"`
}

type MatchResponse struct {
	Instruments                       []model.Instrument        `json:"instruments"`
	Questions                         []model.Question          `json:"questions"`
	Matches                           [][]float32               `json:"matches"`
	QuerySimilarity                   []float32                 `json:"query_similarity,omitempty"`
	ClosestCatalogueInstrumentMatches []matching.CatalogueMatch `json:"closest_catalogue_instrument_matches,omitempty"`
	Warnings                          []string                  `json:"warnings,omitempty"`
}

type SearchInstrumentsRequest struct {
	Parameters ModelParameters `json:"parameters"`

	Query      string   `json:"-"`
	Sources    []string `json:"-"`
	MaxResults int      `json:"-" validate:"gte=0,lte=100"`
}

type SearchInstrumentsResponse struct {
	Instruments []matching.RankedInstrument `json:"instruments"`
}

type CacheResponse struct {
	Instruments []model.Instrument `json:"instruments"`
	Vectors     []model.TextVector `json:"vectors"`
}

type CacheSaveResponse struct {
	Requested bool `json:"requested"`
}
