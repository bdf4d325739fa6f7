// Package parser turns uploaded questionnaire files into instruments.
package parser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"harmony-api/internal/model"
)

var ErrUnsupportedFileType = errors.New("unsupported file type")

// Parser converts one raw file into the instruments it contains. A single file may
// yield several instruments, one per sheet or section.
type Parser interface {
	Parse(ctx context.Context, file model.RawFile) ([]model.Instrument, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(ctx context.Context, file model.RawFile) ([]model.Instrument, error)

func (f ParserFunc) Parse(ctx context.Context, file model.RawFile) ([]model.Instrument, error) {
	return f(ctx, file)
}

// DecodeContent returns the text of an uploaded file. Content sent as a data URL
// ("data:<mime>;base64,<payload>") is decoded first.
func DecodeContent(content string) (string, error) {
	if !strings.HasPrefix(content, "data:") {
		return content, nil
	}
	comma := strings.Index(content, ",")
	if comma < 0 {
		return "", fmt.Errorf("malformed data url")
	}
	header := content[:comma]
	payload := content[comma+1:]
	if !strings.HasSuffix(header, ";base64") {
		return payload, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 content: %w", err)
	}
	return string(decoded), nil
}
