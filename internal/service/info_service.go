package service

import (
	"context"
	"time"

	"harmony-api/internal/dto"
	"harmony-api/internal/model"
	"harmony-api/pkg/catalogue"

	"golang.org/x/sync/errgroup"
)

const modelCheckTimeout = 15 * time.Second

// AvailabilityFunc reports whether the server is configured to call m.
type AvailabilityFunc func(m model.EmbeddingModel) bool

type IInfoService interface {
	Version(ctx context.Context) dto.VersionResponse
	// ListModels returns the model registry. With check set, each configured model is
	// probed with a one-text request and marked unavailable if that fails.
	ListModels(ctx context.Context, check bool) []dto.ModelInfo
}

type infoService struct {
	versionId      string
	harmonyVersion string
	available      AvailabilityFunc
	vectorisers    VectoriserResolver
}

func NewInfoService(versionId, harmonyVersion string, available AvailabilityFunc, vectorisers VectoriserResolver) IInfoService {
	return &infoService{
		versionId:      versionId,
		harmonyVersion: harmonyVersion,
		available:      available,
		vectorisers:    vectorisers,
	}
}

func (s *infoService) Version(ctx context.Context) dto.VersionResponse {
	return dto.VersionResponse{
		VersionId:      s.versionId,
		HarmonyVersion: s.harmonyVersion,
	}
}

func (s *infoService) ListModels(ctx context.Context, check bool) []dto.ModelInfo {
	models := make([]dto.ModelInfo, len(model.AllModels))
	for i, m := range model.AllModels {
		models[i] = dto.ModelInfo{
			EmbeddingModel: m,
			Available:      s.available(m),
			Catalogue:      catalogue.HasPrecomputedEmbeddings(m),
		}
	}
	if !check {
		return models
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range models {
		if !models[i].Available {
			continue
		}
		i := i
		g.Go(func() error {
			models[i].Available = s.probe(gctx, models[i].EmbeddingModel)
			return nil
		})
	}
	_ = g.Wait()
	return models
}

func (s *infoService) probe(ctx context.Context, m model.EmbeddingModel) bool {
	ctx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	v, err := s.vectorisers(m)
	if err != nil {
		return false
	}
	vectors, err := v.Vectorise(ctx, []string{"test"})
	return err == nil && len(vectors) == 1
}
