// Package matching scores questions against each other and against the catalogue.
package matching

import (
	"context"
	"fmt"
	"sort"

	"harmony-api/internal/model"
	"harmony-api/pkg/catalogue"
	"harmony-api/pkg/embedding"
)

const (
	// DefaultCatalogueMatches is how many catalogue instruments a match returns.
	DefaultCatalogueMatches = 10
	// MatchedQuestionThreshold is the similarity above which a question counts as
	// covered by a catalogue instrument.
	MatchedQuestionThreshold = 0.6
)

// MatchRequest carries everything the engine needs. Cached holds the vectors already
// known for the model; Vectoriser is only called for texts missing from it.
type MatchRequest struct {
	Instruments []model.Instrument
	Query       string
	Cached      map[string][]float32
	Vectoriser  embedding.Vectoriser
	// Catalogue enables catalogue matches when non-nil.
	Catalogue *catalogue.Corpus
}

type CatalogueMatch struct {
	InstrumentName   string  `json:"instrument_name"`
	InstrumentId     string  `json:"instrument_id,omitempty"`
	Source           string  `json:"source,omitempty"`
	Score            float32 `json:"score"`
	MatchedQuestions int     `json:"num_matched_questions"`
}

type MatchResult struct {
	Questions        []model.Question
	SimilarityMatrix [][]float32
	QuerySimilarity  []float32
	CatalogueMatches []CatalogueMatch
	// NewVectors are the vectors computed for this request, for merge-back.
	NewVectors map[string][]float32
}

type SearchRequest struct {
	Query      string
	Cached     map[string][]float32
	Vectoriser embedding.Vectoriser
	Catalogue  *catalogue.Corpus
	MaxResults int
}

type RankedInstrument struct {
	Instrument model.Instrument `json:"instrument"`
	Score      float32          `json:"score"`
}

type SearchResult struct {
	Instruments []RankedInstrument
	NewVectors  map[string][]float32
}

type Engine interface {
	Match(ctx context.Context, req MatchRequest) (*MatchResult, error)
	SearchCatalogue(ctx context.Context, req SearchRequest) (*SearchResult, error)
}

type cosineEngine struct{}

// NewCosineEngine returns an engine scoring by cosine similarity of embeddings.
func NewCosineEngine() Engine {
	return &cosineEngine{}
}

func (e *cosineEngine) Match(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	var questions []model.Question
	for _, instrument := range req.Instruments {
		for _, q := range instrument.Questions {
			q.InstrumentId = instrument.InstrumentId
			questions = append(questions, q)
		}
	}

	texts := make([]string, 0, len(questions)+1)
	for _, q := range questions {
		texts = append(texts, q.QuestionText)
	}
	if req.Query != "" {
		texts = append(texts, req.Query)
	}

	vectors, newVectors, err := resolveVectors(ctx, texts, req.Cached, req.Vectoriser)
	if err != nil {
		return nil, err
	}

	matrix := make([][]float32, len(questions))
	for i := range questions {
		matrix[i] = make([]float32, len(questions))
		for j := range questions {
			if i == j {
				matrix[i][j] = 1
				continue
			}
			if j < i {
				matrix[i][j] = matrix[j][i]
				continue
			}
			matrix[i][j] = similarity(vectors[questions[i].QuestionText], vectors[questions[j].QuestionText])
		}
	}

	result := &MatchResult{
		Questions:        questions,
		SimilarityMatrix: matrix,
		NewVectors:       newVectors,
	}

	if req.Query != "" {
		queryVector := vectors[req.Query]
		result.QuerySimilarity = make([]float32, len(questions))
		for i, q := range questions {
			result.QuerySimilarity[i] = similarity(queryVector, vectors[q.QuestionText])
		}
	}

	if req.Catalogue != nil && !req.Catalogue.Empty() {
		userVectors := make([][]float32, 0, len(questions))
		for _, q := range questions {
			userVectors = append(userVectors, vectors[q.QuestionText])
		}
		result.CatalogueMatches = matchCatalogue(userVectors, req.Catalogue, DefaultCatalogueMatches)
	}

	return result, nil
}

func (e *cosineEngine) SearchCatalogue(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	result := &SearchResult{NewVectors: map[string][]float32{}}
	if req.Catalogue == nil || req.Catalogue.Empty() {
		result.Instruments = []RankedInstrument{}
		return result, nil
	}

	limit := req.MaxResults
	if limit <= 0 || limit > len(req.Catalogue.Instruments) {
		limit = len(req.Catalogue.Instruments)
	}

	if req.Query == "" {
		result.Instruments = make([]RankedInstrument, 0, limit)
		for _, instrument := range req.Catalogue.Instruments[:limit] {
			result.Instruments = append(result.Instruments, RankedInstrument{Instrument: instrument.Clone()})
		}
		return result, nil
	}

	vectors, newVectors, err := resolveVectors(ctx, []string{req.Query}, req.Cached, req.Vectoriser)
	if err != nil {
		return nil, err
	}
	result.NewVectors = newVectors
	queryVector := vectors[req.Query]

	ranked := make([]RankedInstrument, 0, len(req.Catalogue.Instruments))
	for idx, instrument := range req.Catalogue.Instruments {
		var best float32
		for _, row := range rowsOf(req.Catalogue, idx) {
			if s := similarity(queryVector, req.Catalogue.Embeddings[row]); s > best {
				best = s
			}
		}
		ranked = append(ranked, RankedInstrument{Instrument: instrument, Score: best})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	ranked = ranked[:limit]
	for i := range ranked {
		ranked[i].Instrument = ranked[i].Instrument.Clone()
	}
	result.Instruments = ranked
	return result, nil
}

// resolveVectors returns a vector for every text, vectorising only those absent from
// cached in a single batch.
func resolveVectors(ctx context.Context, texts []string, cached map[string][]float32, v embedding.Vectoriser) (map[string][]float32, map[string][]float32, error) {
	vectors := make(map[string][]float32, len(texts))
	var missing []string
	for _, text := range texts {
		if _, done := vectors[text]; done {
			continue
		}
		if vector, ok := cached[text]; ok {
			vectors[text] = vector
			continue
		}
		vectors[text] = nil
		missing = append(missing, text)
	}

	newVectors := make(map[string][]float32, len(missing))
	if len(missing) == 0 {
		return vectors, newVectors, nil
	}
	if v == nil {
		return nil, nil, fmt.Errorf("no vectoriser for %d uncached texts", len(missing))
	}

	computed, err := v.Vectorise(ctx, missing)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to vectorise texts: %w", err)
	}
	if len(computed) != len(missing) {
		return nil, nil, fmt.Errorf("vectoriser returned %d vectors for %d texts", len(computed), len(missing))
	}
	for i, text := range missing {
		vectors[text] = computed[i]
		newVectors[text] = computed[i]
	}
	return vectors, newVectors, nil
}

func rowsOf(c *catalogue.Corpus, instrumentIdx int) []int {
	if instrumentIdx >= len(c.InstrumentToQuestionIdx) {
		return nil
	}
	return c.InstrumentToQuestionIdx[instrumentIdx]
}

// matchCatalogue scores each catalogue instrument by the mean, over the user's
// questions, of the best similarity to any of the instrument's questions.
func matchCatalogue(userVectors [][]float32, c *catalogue.Corpus, top int) []CatalogueMatch {
	if len(userVectors) == 0 {
		return []CatalogueMatch{}
	}

	matches := make([]CatalogueMatch, 0, len(c.Instruments))
	for idx, instrument := range c.Instruments {
		rows := rowsOf(c, idx)
		if len(rows) == 0 {
			continue
		}
		var total float32
		matched := 0
		for _, uv := range userVectors {
			var best float32
			for _, row := range rows {
				if s := similarity(uv, c.Embeddings[row]); s > best {
					best = s
				}
			}
			total += best
			if best >= MatchedQuestionThreshold {
				matched++
			}
		}
		matches = append(matches, CatalogueMatch{
			InstrumentName:   instrument.InstrumentName,
			InstrumentId:     instrument.InstrumentId,
			Source:           instrument.SourceName(),
			Score:            total / float32(len(userVectors)),
			MatchedQuestions: matched,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > top {
		matches = matches[:top]
	}
	return matches
}
