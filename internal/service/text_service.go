package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"harmony-api/internal/dto"
	"harmony-api/internal/model"
	"harmony-api/internal/pkg/logger"
	"harmony-api/internal/pkg/serverutils"
	"harmony-api/internal/repository/memory"
	"harmony-api/pkg/catalogue"
	"harmony-api/pkg/embedding"
	"harmony-api/pkg/matching"
	"harmony-api/pkg/parser"
)

const (
	DefaultMaxSearchResults = 100
	ExamplesFilename        = "example_questionnaires.json"
)

// CatalogueProvider hands out the baseline corpus for a model.
type CatalogueProvider interface {
	Corpus(ctx context.Context, m model.EmbeddingModel) (*catalogue.Corpus, error)
}

// VectoriserResolver returns the vectoriser bound to a model.
type VectoriserResolver func(m model.EmbeddingModel) (embedding.Vectoriser, error)

type ITextService interface {
	Parse(ctx context.Context, files []model.RawFile) ([]model.Instrument, error)
	Match(ctx context.Context, req *dto.MatchRequest) (*dto.MatchResponse, error)
	SearchInstruments(ctx context.Context, req *dto.SearchInstrumentsRequest) (*dto.SearchInstrumentsResponse, error)
	Examples(ctx context.Context) ([]model.Instrument, error)
	Cache(ctx context.Context) *dto.CacheResponse
}

type textService struct {
	instrumentsCache *memory.InstrumentsCache
	vectorsCache     *memory.VectorsCache
	catalogue        CatalogueProvider
	parser           parser.Parser
	engine           matching.Engine
	vectorisers      VectoriserResolver
	examplesPath     string
	logger           logger.ILogger
}

func NewTextService(
	instrumentsCache *memory.InstrumentsCache,
	vectorsCache *memory.VectorsCache,
	catalogueProvider CatalogueProvider,
	fileParser parser.Parser,
	engine matching.Engine,
	vectorisers VectoriserResolver,
	examplesPath string,
	log logger.ILogger,
) ITextService {
	return &textService{
		instrumentsCache: instrumentsCache,
		vectorsCache:     vectorsCache,
		catalogue:        catalogueProvider,
		parser:           fileParser,
		engine:           engine,
		vectorisers:      vectorisers,
		examplesPath:     examplesPath,
		logger:           log,
	}
}

func (s *textService) Parse(ctx context.Context, files []model.RawFile) ([]model.Instrument, error) {
	instruments := make([]model.Instrument, 0, len(files))
	parsed := 0

	for _, file := range files {
		if cached, ok := s.instrumentsCache.Lookup(file.Content); ok {
			instruments = append(instruments, cached...)
			continue
		}

		if file.FileId == "" {
			file.FileId = model.NewId()
		}
		result, err := s.parser.Parse(ctx, file)
		if err != nil {
			if errors.Is(err, parser.ErrUnsupportedFileType) {
				return nil, serverutils.UnsupportedMediaType(fmt.Sprintf("cannot parse %s files", file.FileType), err)
			}
			return nil, serverutils.BadRequest(fmt.Sprintf("failed to parse %s", file.FileName), err)
		}
		result = model.AssignMissingIds(result)

		s.instrumentsCache.Put(file.Content, result)
		instruments = append(instruments, result...)
		parsed++
	}

	s.logger.Debug("TEXT_SERVICE", "Files parsed", map[string]interface{}{
		"files": len(files), "parsed": parsed, "cached": len(files) - parsed,
	})
	return instruments, nil
}

func (s *textService) Match(ctx context.Context, req *dto.MatchRequest) (*dto.MatchResponse, error) {
	m, err := resolveModel(req.Parameters)
	if err != nil {
		return nil, err
	}

	instruments := model.AssignMissingIds(model.CloneInstruments(req.Instruments))

	texts := make([]string, 0)
	for _, instrument := range instruments {
		texts = append(texts, instrument.QuestionTexts()...)
	}
	query := strings.TrimSpace(req.Query)
	if query != "" {
		texts = append(texts, query)
	}

	res := &dto.MatchResponse{Instruments: instruments}

	var corpus *catalogue.Corpus
	if req.IncludeCatalogueMatches {
		corpus, err = s.filteredCorpus(ctx, m, req.CatalogueSources)
		if err != nil {
			if !errors.Is(err, catalogue.ErrCatalogueUnavailable) {
				return nil, err
			}
			res.Warnings = append(res.Warnings, fmt.Sprintf("catalogue matches are not available for model %s", m))
		}
	}

	result, err := s.engine.Match(ctx, matching.MatchRequest{
		Instruments: instruments,
		Query:       query,
		Cached:      s.vectorsCache.CachedVectors(m, texts),
		Vectoriser:  s.lazyVectoriser(m),
		Catalogue:   corpus,
	})
	if err != nil {
		return nil, vectoriseError(m, err)
	}

	s.vectorsCache.PutAll(m, result.NewVectors)

	res.Questions = result.Questions
	res.Matches = result.SimilarityMatrix
	res.QuerySimilarity = result.QuerySimilarity
	res.ClosestCatalogueInstrumentMatches = result.CatalogueMatches
	return res, nil
}

func (s *textService) SearchInstruments(ctx context.Context, req *dto.SearchInstrumentsRequest) (*dto.SearchInstrumentsResponse, error) {
	m, err := resolveModel(req.Parameters)
	if err != nil {
		return nil, err
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxSearchResults
	}

	corpus, err := s.filteredCorpus(ctx, m, req.Sources)
	if err != nil {
		if errors.Is(err, catalogue.ErrCatalogueUnavailable) {
			return nil, serverutils.Unprocessable(fmt.Sprintf("catalogue search is not available for model %s", m), err)
		}
		return nil, err
	}

	var cached map[string][]float32
	query := strings.TrimSpace(req.Query)
	if query != "" {
		cached = s.vectorsCache.CachedVectors(m, []string{query})
	}

	result, err := s.engine.SearchCatalogue(ctx, matching.SearchRequest{
		Query:      query,
		Cached:     cached,
		Vectoriser: s.lazyVectoriser(m),
		Catalogue:  corpus,
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, vectoriseError(m, err)
	}

	s.vectorsCache.PutAll(m, result.NewVectors)
	return &dto.SearchInstrumentsResponse{Instruments: result.Instruments}, nil
}

func (s *textService) Examples(ctx context.Context) ([]model.Instrument, error) {
	data, err := os.ReadFile(s.examplesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.Instrument{}, nil
		}
		return nil, err
	}

	instruments, err := catalogue.ParseInstrumentLines(data)
	if err != nil {
		s.logger.Warn("TEXT_SERVICE", "Example questionnaires are malformed", map[string]interface{}{
			"path": s.examplesPath, "error": err.Error(),
		})
		return []model.Instrument{}, nil
	}
	return model.AssignMissingIds(instruments), nil
}

func (s *textService) Cache(ctx context.Context) *dto.CacheResponse {
	return &dto.CacheResponse{
		Instruments: s.instrumentsCache.All(),
		Vectors:     s.vectorsCache.All(),
	}
}

// filteredCorpus returns the catalogue restricted to sources. The baseline itself is
// only handed out when no source filter applies.
func (s *textService) filteredCorpus(ctx context.Context, m model.EmbeddingModel, sources []string) (*catalogue.Corpus, error) {
	if s.catalogue == nil {
		return nil, catalogue.ErrCatalogueUnavailable
	}
	corpus, err := s.catalogue.Corpus(ctx, m)
	if err != nil {
		return nil, err
	}
	return catalogue.Filter(corpus, sources), nil
}

// lazyVectoriser only builds the provider once the engine has a miss.
func (s *textService) lazyVectoriser(m model.EmbeddingModel) embedding.Vectoriser {
	return embedding.VectoriserFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		if len(texts) == 0 {
			return [][]float32{}, nil
		}
		v, err := s.vectorisers(m)
		if err != nil {
			return nil, err
		}
		return v.Vectorise(ctx, texts)
	})
}

func resolveModel(p dto.ModelParameters) (model.EmbeddingModel, error) {
	requested := p.EmbeddingModel()
	m, ok := model.LookupModel(requested.Framework, requested.Model)
	if !ok {
		return model.EmbeddingModel{}, serverutils.NotFound(
			fmt.Sprintf("%s %s", embedding.ErrUnknownModel.Error(), requested),
			embedding.ErrUnknownModel,
		)
	}
	return m, nil
}

func vectoriseError(m model.EmbeddingModel, err error) error {
	switch {
	case errors.Is(err, embedding.ErrUnknownModel):
		return serverutils.NotFound(fmt.Sprintf("%s %s", embedding.ErrUnknownModel.Error(), m), err)
	case errors.Is(err, embedding.ErrModelUnavailable):
		return serverutils.Unprocessable(fmt.Sprintf("model %s is not available on this server", m), err)
	default:
		return serverutils.BadGateway(fmt.Sprintf("failed to vectorise texts with %s", m), err)
	}
}
