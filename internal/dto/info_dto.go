package dto

import "harmony-api/internal/model"

type VersionResponse struct {
	VersionId      string `json:"version_id"`
	HarmonyVersion string `json:"harmony_version"`
}

type ModelInfo struct {
	model.EmbeddingModel
	Available bool `json:"available"`
	Catalogue bool `json:"catalogue"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
