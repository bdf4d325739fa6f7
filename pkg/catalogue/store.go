package catalogue

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"harmony-api/internal/model"
	"harmony-api/internal/pkg/logger"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	module = "CATALOGUE"

	QuestionsFilename          = "all_questions_ever_seen.json"
	InstrumentsFilename        = "all_instruments_preprocessed.json"
	InstrumentQuestionFilename = "instrument_idx_to_question_idxs.json"

	remotePrefix = "catalogue_data"
)

// EmbeddingsFilename is the file holding the catalogue embedding matrix of m: a
// uint32 row count and a uint32 row width followed by the float32 values, all
// little-endian, one row per catalogue question.
func EmbeddingsFilename(m model.EmbeddingModel) string {
	name := fmt.Sprintf("%s_%s", m.Framework, m.Model)
	name = strings.NewReplacer("-", "_", "/", "_").Replace(name)
	return name + "_embeddings_all_float32.f32"
}

// HasPrecomputedEmbeddings reports whether m has a catalogue embedding matrix.
func HasPrecomputedEmbeddings(m model.EmbeddingModel) bool {
	return m == model.CatalogueModel
}

// Store loads the baseline catalogue from local files, falling back to a remote object
// store for anything missing. Everything it loads is read-only for the process lifetime.
type Store struct {
	dataPath string
	fetcher  Fetcher
	timeout  time.Duration
	logger   logger.ILogger

	baselineOnce sync.Once
	baseline     *Corpus

	embeddingsMu sync.RWMutex
	embeddings   map[model.EmbeddingModel]Matrix
	loads        singleflight.Group
}

func NewStore(dataPath string, fetcher Fetcher, timeout time.Duration, log logger.ILogger) *Store {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Store{
		dataPath:   dataPath,
		fetcher:    fetcher,
		timeout:    timeout,
		logger:     log,
		embeddings: make(map[model.EmbeddingModel]Matrix),
	}
}

// LoadBaseline returns questions, instruments and the instrument index map, without
// embeddings. On failure it returns an empty corpus.
func (s *Store) LoadBaseline(ctx context.Context) *Corpus {
	s.baselineOnce.Do(func() {
		baseline, err := s.loadBaseline(ctx)
		if err != nil {
			s.logger.Warn(module, "Catalogue baseline unavailable, catalogue features disabled", map[string]interface{}{
				"error": err.Error(),
			})
			baseline = &Corpus{}
		} else {
			s.logger.Info(module, "Catalogue baseline loaded", map[string]interface{}{
				"questions":   len(baseline.Questions),
				"instruments": len(baseline.Instruments),
			})
		}
		s.baseline = baseline
	})
	return s.baseline
}

func (s *Store) loadBaseline(ctx context.Context) (*Corpus, error) {
	// Detached from the caller: the result is kept for the process lifetime.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	var (
		questions   []string
		instruments []model.Instrument
		idxs        [][]int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := s.readOrFetch(gctx, QuestionsFilename)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &questions); err != nil {
			return fmt.Errorf("parse %s: %w", QuestionsFilename, err)
		}
		return nil
	})
	g.Go(func() error {
		data, err := s.readOrFetch(gctx, InstrumentsFilename)
		if err != nil {
			return err
		}
		parsed, err := ParseInstrumentLines(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", InstrumentsFilename, err)
		}
		instruments = parsed
		return nil
	})
	g.Go(func() error {
		data, err := s.readOrFetch(gctx, InstrumentQuestionFilename)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &idxs); err != nil {
			return fmt.Errorf("parse %s: %w", InstrumentQuestionFilename, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Corpus{
		Questions:               questions,
		Instruments:             instruments,
		InstrumentToQuestionIdx: idxs,
	}, nil
}

// LoadEmbeddings returns the catalogue matrix for m. Models without precomputed
// embeddings, and any load failure, yield an empty matrix.
func (s *Store) LoadEmbeddings(ctx context.Context, m model.EmbeddingModel) Matrix {
	if !HasPrecomputedEmbeddings(m) {
		return Matrix{}
	}

	s.embeddingsMu.RLock()
	matrix, ok := s.embeddings[m]
	s.embeddingsMu.RUnlock()
	if ok {
		return matrix
	}

	v, _, _ := s.loads.Do(m.String(), func() (interface{}, error) {
		matrix, err := s.loadEmbeddings(ctx, m)
		if err != nil {
			s.logger.Warn(module, "Catalogue embeddings unavailable", map[string]interface{}{
				"model": m.String(), "error": err.Error(),
			})
			matrix = Matrix{}
		}
		s.embeddingsMu.Lock()
		s.embeddings[m] = matrix
		s.embeddingsMu.Unlock()
		return matrix, nil
	})
	return v.(Matrix)
}

func (s *Store) loadEmbeddings(ctx context.Context, m model.EmbeddingModel) (Matrix, error) {
	rows := len(s.LoadBaseline(ctx).Questions)
	if rows == 0 {
		return nil, errors.New("baseline has no questions")
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	filename := EmbeddingsFilename(m)
	data, err := s.readOrFetch(ctx, filename)
	if err != nil {
		return nil, err
	}
	return decodeMatrix(data, rows)
}

// Corpus returns the full baseline with the embeddings of m. The result shares its
// slices with the store and must not be modified.
func (s *Store) Corpus(ctx context.Context, m model.EmbeddingModel) (*Corpus, error) {
	if !HasPrecomputedEmbeddings(m) {
		return nil, fmt.Errorf("%s: %w", m, ErrCatalogueUnavailable)
	}

	baseline := s.LoadBaseline(ctx)
	embeddings := s.LoadEmbeddings(ctx, m)
	if len(baseline.Questions) == 0 || embeddings.Rows() == 0 {
		return nil, fmt.Errorf("%s: no catalogue data loaded: %w", m, ErrCatalogueUnavailable)
	}

	corpus := &Corpus{
		Questions:               baseline.Questions,
		Embeddings:              embeddings,
		Instruments:             baseline.Instruments,
		InstrumentToQuestionIdx: baseline.InstrumentToQuestionIdx,
	}
	if err := corpus.Validate(); err != nil {
		s.logger.Error(module, "Catalogue data is inconsistent", map[string]interface{}{
			"model": m.String(), "error": err.Error(),
		})
		return nil, fmt.Errorf("%s: %v: %w", m, err, ErrCatalogueUnavailable)
	}
	return corpus, nil
}

// Warm loads the baseline and the embeddings of every catalogue model.
func (s *Store) Warm(ctx context.Context) {
	s.LoadBaseline(ctx)
	for _, m := range model.AllModels {
		s.LoadEmbeddings(ctx, m)
	}
}

// readOrFetch reads filename from the data path, downloading and persisting it first
// when it is not there.
func (s *Store) readOrFetch(ctx context.Context, filename string) ([]byte, error) {
	path := filepath.Join(s.dataPath, filename)
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if s.fetcher == nil {
		return nil, fmt.Errorf("%s missing and no remote configured: %w", filename, ErrRemoteUnavailable)
	}

	s.logger.Info(module, "Downloading catalogue file", map[string]interface{}{"file": filename})
	data, err = s.fetcher.Fetch(ctx, remotePrefix+"/"+filename)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.dataPath, 0o755); err != nil {
		s.logger.Warn(module, "Could not create catalogue dir", map[string]interface{}{"error": err.Error()})
		return data, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Warn(module, "Could not persist downloaded catalogue file", map[string]interface{}{
			"file": filename, "error": err.Error(),
		})
	}
	return data, nil
}

// ParseInstrumentLines reads one JSON instrument per line.
func ParseInstrumentLines(data []byte) ([]model.Instrument, error) {
	var out []model.Instrument
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var instrument model.Instrument
		if err := json.Unmarshal(line, &instrument); err != nil {
			return nil, err
		}
		out = append(out, instrument)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// matrixHeaderSize is the length of the row count and row width that prefix every
// embedding file, both little-endian uint32.
const matrixHeaderSize = 8

// decodeMatrix reads an embedding file and checks it holds exactly rows rows of the
// width its header declares.
func decodeMatrix(data []byte, rows int) (Matrix, error) {
	if len(data) < matrixHeaderSize {
		return nil, fmt.Errorf("embedding data too short for header: %d bytes", len(data))
	}
	declaredRows := int(binary.LittleEndian.Uint32(data[0:4]))
	dim := int(binary.LittleEndian.Uint32(data[4:8]))
	if declaredRows != rows {
		return nil, fmt.Errorf("embedding data has %d rows, catalogue has %d questions", declaredRows, rows)
	}
	if dim == 0 {
		return nil, errors.New("embedding data declares zero width")
	}

	body := data[matrixHeaderSize:]
	if len(body) != rows*dim*4 {
		return nil, fmt.Errorf("embedding data has %d bytes, want %d for %dx%d", len(body), rows*dim*4, rows, dim)
	}

	values := make([]float32, rows*dim)
	if err := binary.Read(bytes.NewReader(body), binary.LittleEndian, values); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}

	matrix := make(Matrix, rows)
	for i := 0; i < rows; i++ {
		matrix[i] = values[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return matrix, nil
}

// EncodeMatrix is the inverse of the on-disk embedding format.
func EncodeMatrix(m Matrix) []byte {
	var buf bytes.Buffer
	dim := 0
	if len(m) > 0 {
		dim = len(m[0])
	}
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint32{uint32(len(m)), uint32(dim)})
	for _, row := range m {
		_ = binary.Write(&buf, binary.LittleEndian, row)
	}
	return buf.Bytes()
}
