package catalogue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"harmony-api/internal/model"
	"harmony-api/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalogueFiles map[string][]byte

func sampleCatalogue(t *testing.T) catalogueFiles {
	t.Helper()

	questions, err := json.Marshal([]string{"I feel anxious", "I feel worried", "I cannot sleep"})
	require.NoError(t, err)
	idxs, err := json.Marshal([][]int{{0, 1}, {2}})
	require.NoError(t, err)

	var lines []string
	for _, instrument := range []model.Instrument{
		{InstrumentName: "GAD", Metadata: map[string]interface{}{"source": "studyx"}, Questions: []model.Question{{QuestionText: "I feel anxious"}, {QuestionText: "I feel worried"}}},
		{InstrumentName: "Sleep", Metadata: map[string]interface{}{"source": "studyy"}, Questions: []model.Question{{QuestionText: "I cannot sleep"}}},
	} {
		line, err := json.Marshal(instrument)
		require.NoError(t, err)
		lines = append(lines, string(line))
	}

	return catalogueFiles{
		QuestionsFilename:                        questions,
		InstrumentsFilename:                      []byte(strings.Join(lines, "\n") + "\n"),
		InstrumentQuestionFilename:               idxs,
		EmbeddingsFilename(model.CatalogueModel): EncodeMatrix(Matrix{{1, 0}, {0, 1}, {0.6, 0.8}}),
	}
}

func writeCatalogue(t *testing.T, dir string, files catalogueFiles) {
	t.Helper()
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
}

func serveCatalogue(files catalogueFiles, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		name := strings.TrimPrefix(r.URL.Path, "/"+remotePrefix+"/")
		data, ok := files[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
}

func TestEmbeddingsFilename(t *testing.T) {
	assert.Equal(t,
		"huggingface_sentence_transformers_paraphrase_multilingual_MiniLM_L12_v2_embeddings_all_float32.f32",
		EmbeddingsFilename(model.CatalogueModel))
}

func TestMatrixEncoding(t *testing.T) {
	m := Matrix{{1, 2, 3}, {-1, 0.5, 0}}

	got, err := decodeMatrix(EncodeMatrix(m), 2)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = decodeMatrix(EncodeMatrix(m), 4)
	assert.Error(t, err)
	_, err = decodeMatrix([]byte{1, 2, 3}, 1)
	assert.Error(t, err)
}

func TestDecodeMatrix_RejectsReshapedData(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		rows int
	}{
		{"more rows than questions", EncodeMatrix(Matrix{{1, 0}, {0, 1}, {0.6, 0.8}, {1, 1}, {2, 2}, {3, 3}}), 3},
		{"fewer rows than questions", EncodeMatrix(Matrix{{1, 0, 0, 1}}), 2},
		{"truncated body", EncodeMatrix(Matrix{{1, 0}, {0, 1}})[:12], 2},
		{"zero width", EncodeMatrix(Matrix{{}, {}}), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeMatrix(tt.data, tt.rows)
			assert.Error(t, err)
		})
	}
}

func TestStore_LoadsLocalFiles(t *testing.T) {
	dir := t.TempDir()
	writeCatalogue(t, dir, sampleCatalogue(t))

	store := NewStore(dir, nil, time.Second, logger.NewNopLogger())
	corpus, err := store.Corpus(context.Background(), model.CatalogueModel)
	require.NoError(t, err)

	assert.Equal(t, []string{"I feel anxious", "I feel worried", "I cannot sleep"}, corpus.Questions)
	assert.Equal(t, Matrix{{1, 0}, {0, 1}, {0.6, 0.8}}, corpus.Embeddings)
	require.Len(t, corpus.Instruments, 2)
	assert.Equal(t, "studyx", corpus.Instruments[0].SourceName())
	assert.Equal(t, [][]int{{0, 1}, {2}}, corpus.InstrumentToQuestionIdx)
}

func TestStore_FallsBackToRemoteAndPersists(t *testing.T) {
	var hits int32
	srv := serveCatalogue(sampleCatalogue(t), &hits)
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "catalogue")
	store := NewStore(dir, NewHTTPFetcher(srv.URL), 5*time.Second, logger.NewNopLogger())

	corpus, err := store.Corpus(context.Background(), model.CatalogueModel)
	require.NoError(t, err)
	assert.Len(t, corpus.Questions, 3)
	assert.EqualValues(t, 4, atomic.LoadInt32(&hits))

	for name := range sampleCatalogue(t) {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	again := NewStore(dir, NewHTTPFetcher(srv.URL), 5*time.Second, logger.NewNopLogger())
	_, err = again.Corpus(context.Background(), model.CatalogueModel)
	require.NoError(t, err)
	assert.EqualValues(t, 4, atomic.LoadInt32(&hits), "persisted files should be read locally")
}

func TestStore_UnreachableRemoteYieldsEmptyCorpus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := NewStore(t.TempDir(), NewHTTPFetcher(srv.URL), time.Second, logger.NewNopLogger())

	baseline := store.LoadBaseline(context.Background())
	assert.Empty(t, baseline.Questions)
	assert.Empty(t, baseline.Instruments)

	_, err := store.Corpus(context.Background(), model.CatalogueModel)
	assert.True(t, errors.Is(err, ErrCatalogueUnavailable))
}

func TestStore_NoRemoteConfigured(t *testing.T) {
	store := NewStore(t.TempDir(), nil, time.Second, logger.NewNopLogger())

	assert.Empty(t, store.LoadEmbeddings(context.Background(), model.CatalogueModel))
	_, err := store.Corpus(context.Background(), model.CatalogueModel)
	assert.ErrorIs(t, err, ErrCatalogueUnavailable)
}

func TestStore_ModelWithoutCatalogueEmbeddings(t *testing.T) {
	dir := t.TempDir()
	writeCatalogue(t, dir, sampleCatalogue(t))
	store := NewStore(dir, nil, time.Second, logger.NewNopLogger())

	assert.Empty(t, store.LoadEmbeddings(context.Background(), model.OpenAI3Large))
	_, err := store.Corpus(context.Background(), model.OpenAI3Large)
	assert.ErrorIs(t, err, ErrCatalogueUnavailable)
}

func TestStore_MisalignedEmbeddingsAreRejected(t *testing.T) {
	dir := t.TempDir()
	files := sampleCatalogue(t)
	files[EmbeddingsFilename(model.CatalogueModel)] = EncodeMatrix(Matrix{{1, 0, 0, 1}})
	writeCatalogue(t, dir, files)

	store := NewStore(dir, nil, time.Second, logger.NewNopLogger())
	_, err := store.Corpus(context.Background(), model.CatalogueModel)
	assert.ErrorIs(t, err, ErrCatalogueUnavailable)
}

func TestStore_EvenlyDivisibleButMisalignedEmbeddingsAreRejected(t *testing.T) {
	dir := t.TempDir()
	files := sampleCatalogue(t)
	files[EmbeddingsFilename(model.CatalogueModel)] = EncodeMatrix(Matrix{
		{1, 0}, {0, 1}, {0.6, 0.8}, {1, 1}, {2, 2}, {3, 3},
	})
	writeCatalogue(t, dir, files)

	store := NewStore(dir, nil, time.Second, logger.NewNopLogger())
	assert.Empty(t, store.LoadEmbeddings(context.Background(), model.CatalogueModel))
	_, err := store.Corpus(context.Background(), model.CatalogueModel)
	assert.ErrorIs(t, err, ErrCatalogueUnavailable)
}

func TestStore_CancelledCallerDoesNotPoisonLoad(t *testing.T) {
	dir := t.TempDir()
	writeCatalogue(t, dir, sampleCatalogue(t))
	store := NewStore(dir, nil, time.Second, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	baseline := store.LoadBaseline(ctx)
	assert.Len(t, baseline.Questions, 3)
}

func TestParseInstrumentLines(t *testing.T) {
	data := []byte("{\"instrument_name\":\"a\",\"questions\":[]}\n\n  {\"instrument_name\":\"b\",\"questions\":[{\"question_text\":\"q\"}]}\n")

	got, err := ParseInstrumentLines(data)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1].InstrumentName)
	assert.Equal(t, "q", got[1].Questions[0].QuestionText)

	_, err = ParseInstrumentLines([]byte("{not json"))
	assert.Error(t, err)
}
