package parser

import (
	"context"
	"fmt"
	"strings"

	"harmony-api/internal/model"
)

// Registry dispatches to a parser by file type.
type Registry struct {
	parsers map[string]Parser
}

func NewRegistry() *Registry {
	plain := NewPlainTextParser()
	return &Registry{
		parsers: map[string]Parser{
			"txt": plain,
			"csv": plain,
		},
	}
}

// Register installs p for fileType, replacing any previous parser.
func (r *Registry) Register(fileType string, p Parser) {
	r.parsers[strings.ToLower(fileType)] = p
}

func (r *Registry) Parse(ctx context.Context, file model.RawFile) ([]model.Instrument, error) {
	p, ok := r.parsers[strings.ToLower(file.FileType)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, file.FileType)
	}
	return p.Parse(ctx, file)
}
