package memory

import (
	"path/filepath"
	"testing"

	"harmony-api/internal/model"
	"harmony-api/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modelX = model.EmbeddingModel{Framework: model.FrameworkHuggingFace, Model: "modelX"}

func TestVectorsCache_KeyIsDeterministic(t *testing.T) {
	c := NewVectorsCache(t.TempDir(), logger.NewNopLogger(), nil)

	k1 := c.GenerateKey(modelX, "I feel sad")
	k2 := c.GenerateKey(modelX, "I feel sad")
	assert.Equal(t, k1, k2)

	other := model.EmbeddingModel{Framework: model.FrameworkOpenAI, Model: "modelX"}
	assert.NotEqual(t, k1, c.GenerateKey(other, "I feel sad"))
}

func TestVectorsCache_ReadPath(t *testing.T) {
	c := NewVectorsCache(t.TempDir(), logger.NewNopLogger(), nil)

	c.Put(modelX, "I feel sad", []float32{1, 2, 3})

	v, ok := c.Lookup(modelX, "I feel sad")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)

	_, ok = c.Lookup(modelX, "I feel happy")
	assert.False(t, ok)
}

func TestVectorsCache_BucketWithoutTextIsMiss(t *testing.T) {
	c := NewVectorsCache(t.TempDir(), logger.NewNopLogger(), nil)

	key := c.GenerateKey(modelX, "I feel sad")
	c.Set(key, model.TextVector{"something else": {9}})

	assert.True(t, c.Has(key))
	_, ok := c.Lookup(modelX, "I feel sad")
	assert.False(t, ok)
}

func TestVectorsCache_PutAllWritesOneKeyPerText(t *testing.T) {
	c := NewVectorsCache(t.TempDir(), logger.NewNopLogger(), nil)

	c.PutAll(modelX, map[string][]float32{
		"I feel sad":        {1},
		"I do not feel sad": {2},
	})

	assert.Equal(t, 2, c.Len())
	cached := c.CachedVectors(modelX, []string{"I feel sad", "I do not feel sad", "missing", "I feel sad"})
	assert.Equal(t, map[string][]float32{
		"I feel sad":        {1},
		"I do not feel sad": {2},
	}, cached)
}

func TestVectorsCache_PutCopiesVector(t *testing.T) {
	c := NewVectorsCache(t.TempDir(), logger.NewNopLogger(), nil)

	v := []float32{1, 2}
	c.Put(modelX, "text", v)
	v[0] = 99

	got, ok := c.Lookup(modelX, "text")
	require.True(t, ok)
	assert.Equal(t, float32(1), got[0])
}

func TestVectorsCache_SnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewVectorsCache(dir, logger.NewNopLogger(), nil)
	c.Put(modelX, "I feel sad", []float32{0.5, -0.5})
	require.True(t, c.Save())
	assert.FileExists(t, filepath.Join(dir, VectorsCacheFilename))

	reloaded := NewVectorsCache(dir, logger.NewNopLogger(), nil)
	v, ok := reloaded.Lookup(modelX, "I feel sad")
	require.True(t, ok)
	assert.Equal(t, []float32{0.5, -0.5}, v)
}

func TestInstrumentsCache_SaveAndReload(t *testing.T) {
	dir := t.TempDir()
	c := NewInstrumentsCache(dir, logger.NewNopLogger(), nil)

	instrA := model.Instrument{
		FileId:         "f1",
		InstrumentId:   "i1",
		InstrumentName: "GAD-7",
		Language:       "en",
		Questions: []model.Question{
			{QuestionNo: "1", QuestionText: "Feeling nervous, anxious or on edge", Options: []string{"Not at all", "Several days"}},
		},
	}
	instrB := model.Instrument{
		FileId:         "f1",
		InstrumentId:   "i2",
		InstrumentName: "PHQ-9",
		Questions:      []model.Question{{QuestionNo: "1", QuestionText: "Little interest or pleasure in doing things"}},
	}

	key := c.GenerateKey("raw file content")
	c.Set(key, []model.Instrument{instrA, instrB})
	require.True(t, c.Save())

	fresh := NewInstrumentsCache(dir, logger.NewNopLogger(), nil)
	got, err := fresh.Get(key)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, instrA, got[0])
	assert.Equal(t, instrB, got[1])
}

func TestInstrumentsCache_KeyIgnoresFileName(t *testing.T) {
	c := NewInstrumentsCache(t.TempDir(), logger.NewNopLogger(), nil)

	c.Put("same bytes", []model.Instrument{{InstrumentName: "first upload"}})

	got, ok := c.Lookup("same bytes")
	require.True(t, ok)
	assert.Equal(t, "first upload", got[0].InstrumentName)

	_, ok = c.Lookup("other bytes")
	assert.False(t, ok)
}

func TestInstrumentsCache_ReturnsCopies(t *testing.T) {
	c := NewInstrumentsCache(t.TempDir(), logger.NewNopLogger(), nil)
	c.Put("content", []model.Instrument{{InstrumentName: "original", Questions: []model.Question{{QuestionText: "q"}}}})

	got, ok := c.Lookup("content")
	require.True(t, ok)
	got[0].InstrumentName = "changed"
	got[0].Questions[0].QuestionText = "changed"

	again, _ := c.Lookup("content")
	assert.Equal(t, "original", again[0].InstrumentName)
	assert.Equal(t, "q", again[0].Questions[0].QuestionText)
}
