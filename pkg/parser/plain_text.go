package parser

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"harmony-api/internal/model"
)

// numberPrefix matches list numbering such as "1.", "2)" or "Q3:" at the start of a line.
var numberPrefix = regexp.MustCompile(`^\s*(?:[qQ])?(\d+)\s*[.):](?:\s+|$)`)

// PlainTextParser handles txt and csv uploads: one question per non-empty line, or
// per row's first column for csv.
type PlainTextParser struct{}

func NewPlainTextParser() *PlainTextParser {
	return &PlainTextParser{}
}

func (p *PlainTextParser) Parse(ctx context.Context, file model.RawFile) ([]model.Instrument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := DecodeContent(file.Content)
	if err != nil {
		return nil, err
	}

	var lines []string
	switch strings.ToLower(file.FileType) {
	case "txt":
		lines = strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	case "csv":
		lines, err = firstColumn(text)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, file.FileType)
	}

	instrument := model.Instrument{
		FileId:         file.FileId,
		InstrumentName: strings.TrimSuffix(file.FileName, filepath.Ext(file.FileName)),
		FileName:       file.FileName,
		FileType:       strings.ToLower(file.FileType),
		Language:       "en",
		Questions:      make([]model.Question, 0, len(lines)),
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		questionNo := strconv.Itoa(len(instrument.Questions) + 1)
		if m := numberPrefix.FindStringSubmatch(line); m != nil {
			questionNo = m[1]
			line = strings.TrimSpace(line[len(m[0]):])
			if line == "" {
				continue
			}
		}
		instrument.Questions = append(instrument.Questions, model.Question{
			QuestionNo:   questionNo,
			QuestionText: line,
		})
	}

	return []model.Instrument{instrument}, nil
}

func firstColumn(text string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var out []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		out = append(out, record[0])
	}
	return out, nil
}
