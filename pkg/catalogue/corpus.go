// Package catalogue holds the corpus of previously seen instruments and the filter that
// derives a deduplicated, source-restricted view of it.
package catalogue

import (
	"errors"
	"fmt"

	"harmony-api/internal/model"
)

var (
	// ErrCatalogueUnavailable means the catalogue cannot serve the requested model.
	ErrCatalogueUnavailable = errors.New("catalogue features unavailable for this model")
	// ErrRemoteUnavailable means the remote object store could not be reached.
	ErrRemoteUnavailable = errors.New("catalogue remote store unavailable")
)

// Matrix is a row-major embedding matrix.
type Matrix [][]float32

func (m Matrix) Rows() int {
	return len(m)
}

// Corpus is the flat question list with aligned embeddings: Embeddings[i] is the vector
// of Questions[i]. InstrumentToQuestionIdx[j] lists the rows belonging to Instruments[j].
type Corpus struct {
	Questions               []string
	Embeddings              Matrix
	Instruments             []model.Instrument
	InstrumentToQuestionIdx [][]int
}

// Empty reports whether the corpus has nothing to match against.
func (c *Corpus) Empty() bool {
	return c == nil || len(c.Questions) == 0 || c.Embeddings.Rows() == 0
}

// Validate checks row alignment and that no index points past the question list.
func (c *Corpus) Validate() error {
	if len(c.Questions) != c.Embeddings.Rows() {
		return fmt.Errorf("corpus has %d questions but %d embedding rows", len(c.Questions), c.Embeddings.Rows())
	}
	for instrumentIdx, idxs := range c.InstrumentToQuestionIdx {
		for _, idx := range idxs {
			if idx < 0 || idx >= len(c.Questions) {
				return fmt.Errorf("instrument %d references question %d of %d", instrumentIdx, idx, len(c.Questions))
			}
		}
	}
	return nil
}
