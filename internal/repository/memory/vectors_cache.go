package memory

import (
	"path/filepath"

	"harmony-api/internal/model"
	"harmony-api/internal/pkg/logger"
	"harmony-api/pkg/cache"
)

const VectorsCacheFilename = "vectors_cache.json"

// VectorsCache holds embeddings keyed by (framework, model, text). Each entry is a
// small text->vector bucket, written one text at a time.
type VectorsCache struct {
	store  *cache.Store[model.TextVector]
	logger logger.ILogger
}

func NewVectorsCache(dataPath string, log logger.ILogger, mirror cache.Mirror) *VectorsCache {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &VectorsCache{
		store: cache.New[model.TextVector](cache.Options{
			Name:   "vectors",
			Path:   filepath.Join(dataPath, VectorsCacheFilename),
			Logger: log,
			Mirror: mirror,
		}),
		logger: log,
	}
}

func (c *VectorsCache) GenerateKey(m model.EmbeddingModel, text string) string {
	return cache.GenerateKey(string(m.Framework), m.Model, text)
}

func (c *VectorsCache) Has(key string) bool {
	return c.store.Has(key)
}

func (c *VectorsCache) Get(key string) (model.TextVector, error) {
	return c.store.Get(key)
}

func (c *VectorsCache) Set(key string, value model.TextVector) {
	c.store.Set(key, value)
}

// Lookup returns the vector of text under m. A bucket that exists but does not contain
// text is reported as a miss.
func (c *VectorsCache) Lookup(m model.EmbeddingModel, text string) ([]float32, bool) {
	key := c.GenerateKey(m, text)
	bucket, ok := c.store.Lookup(key)
	if !ok {
		return nil, false
	}
	vector, ok := bucket[text]
	if !ok {
		c.logger.Debug("VECTORS_CACHE", "Cache bucket does not contain its text", map[string]interface{}{
			"key": key, "model": m.String(),
		})
		return nil, false
	}
	return vector, true
}

// Put stores a single text vector under its own key.
func (c *VectorsCache) Put(m model.EmbeddingModel, text string, vector []float32) {
	c.store.Set(c.GenerateKey(m, text), model.TextVector{text: append([]float32(nil), vector...)})
}

// PutAll stores every (text, vector) pair individually.
func (c *VectorsCache) PutAll(m model.EmbeddingModel, vectors map[string][]float32) {
	for text, vector := range vectors {
		c.Put(m, text, vector)
	}
}

// CachedVectors returns the cached vector of every text that has one.
func (c *VectorsCache) CachedVectors(m model.EmbeddingModel, texts []string) map[string][]float32 {
	out := make(map[string][]float32)
	for _, text := range texts {
		if _, seen := out[text]; seen {
			continue
		}
		if vector, ok := c.Lookup(m, text); ok {
			out[text] = vector
		}
	}
	return out
}

// All returns every bucket.
func (c *VectorsCache) All() []model.TextVector {
	snapshot := c.store.Snapshot()
	out := make([]model.TextVector, 0, len(snapshot))
	for _, bucket := range snapshot {
		out = append(out, bucket)
	}
	return out
}

func (c *VectorsCache) Name() string { return c.store.Name() }
func (c *VectorsCache) Len() int     { return c.store.Len() }
func (c *VectorsCache) Save() bool   { return c.store.Save() }
