package memory

import (
	"path/filepath"

	"harmony-api/internal/model"
	"harmony-api/internal/pkg/logger"
	"harmony-api/pkg/cache"
)

const InstrumentsCacheFilename = "instruments_cache.json"

// InstrumentsCache holds parsed instruments keyed by the raw content of the file they
// came from, so the same upload is only ever parsed once.
type InstrumentsCache struct {
	store *cache.Store[[]model.Instrument]
}

func NewInstrumentsCache(dataPath string, log logger.ILogger, mirror cache.Mirror) *InstrumentsCache {
	return &InstrumentsCache{
		store: cache.New[[]model.Instrument](cache.Options{
			Name:   "instruments",
			Path:   filepath.Join(dataPath, InstrumentsCacheFilename),
			Logger: log,
			Mirror: mirror,
		}),
	}
}

func (c *InstrumentsCache) GenerateKey(content string) string {
	return cache.GenerateKey(content)
}

func (c *InstrumentsCache) Has(key string) bool {
	return c.store.Has(key)
}

// Get returns a copy of the instruments stored under key.
func (c *InstrumentsCache) Get(key string) ([]model.Instrument, error) {
	instruments, err := c.store.Get(key)
	if err != nil {
		return nil, err
	}
	return model.CloneInstruments(instruments), nil
}

func (c *InstrumentsCache) Set(key string, instruments []model.Instrument) {
	c.store.Set(key, model.CloneInstruments(instruments))
}

// Lookup returns the instruments previously parsed from content.
func (c *InstrumentsCache) Lookup(content string) ([]model.Instrument, bool) {
	instruments, ok := c.store.Lookup(c.GenerateKey(content))
	if !ok {
		return nil, false
	}
	return model.CloneInstruments(instruments), true
}

// Put records the instruments parsed from content.
func (c *InstrumentsCache) Put(content string, instruments []model.Instrument) {
	c.Set(c.GenerateKey(content), instruments)
}

// All flattens every cached instrument set.
func (c *InstrumentsCache) All() []model.Instrument {
	var out []model.Instrument
	for _, instruments := range c.store.Snapshot() {
		out = append(out, model.CloneInstruments(instruments)...)
	}
	return out
}

func (c *InstrumentsCache) Name() string { return c.store.Name() }
func (c *InstrumentsCache) Len() int     { return c.store.Len() }
func (c *InstrumentsCache) Save() bool   { return c.store.Save() }
