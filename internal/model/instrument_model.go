package model

import (
	"strings"

	"github.com/google/uuid"
)

// Question is a single item of a questionnaire.
type Question struct {
	QuestionNo    string   `json:"question_no,omitempty"`
	QuestionIntro string   `json:"question_intro,omitempty"`
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options,omitempty"`
	SourcePage    int      `json:"source_page,omitempty"`
	InstrumentId  string   `json:"instrument_id,omitempty"`
	// Topics are provenance tags carried over from the catalogue.
	Topics []string `json:"topics,omitempty"`
}

// Instrument is a questionnaire: an ordered set of questions plus file metadata.
type Instrument struct {
	FileId         string                 `json:"file_id,omitempty"`
	InstrumentId   string                 `json:"instrument_id,omitempty"`
	InstrumentName string                 `json:"instrument_name,omitempty"`
	FileName       string                 `json:"file_name,omitempty"`
	FileType       string                 `json:"file_type,omitempty"`
	FileSection    string                 `json:"file_section,omitempty"`
	Language       string                 `json:"language,omitempty"`
	Source         string                 `json:"source,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Questions      []Question             `json:"questions"`
}

// SourceName returns the provenance of the instrument. Catalogue exports keep it
// under metadata.source, uploads carry it on the instrument itself.
func (i *Instrument) SourceName() string {
	if i.Source != "" {
		return i.Source
	}
	if i.Metadata == nil {
		return ""
	}
	if s, ok := i.Metadata["source"].(string); ok {
		return s
	}
	return ""
}

// QuestionTexts returns the literal question texts in order.
func (i *Instrument) QuestionTexts() []string {
	texts := make([]string, 0, len(i.Questions))
	for _, q := range i.Questions {
		texts = append(texts, q.QuestionText)
	}
	return texts
}

// Clone returns a deep copy so callers can mutate ids without touching cached values.
func (i Instrument) Clone() Instrument {
	out := i
	if i.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(i.Metadata))
		for k, v := range i.Metadata {
			out.Metadata[k] = v
		}
	}
	if i.Questions != nil {
		out.Questions = make([]Question, len(i.Questions))
		for idx, q := range i.Questions {
			q.Options = append([]string(nil), q.Options...)
			q.Topics = append([]string(nil), q.Topics...)
			out.Questions[idx] = q
		}
	}
	return out
}

// CloneInstruments deep copies a slice of instruments.
func CloneInstruments(in []Instrument) []Instrument {
	if in == nil {
		return nil
	}
	out := make([]Instrument, len(in))
	for idx, i := range in {
		out[idx] = i.Clone()
	}
	return out
}

// NewId returns a random 32 character hex token.
func NewId() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// AssignMissingIds gives every instrument lacking a file or instrument id a fresh one.
// Ids that are already set are never touched.
func AssignMissingIds(instruments []Instrument) []Instrument {
	for idx := range instruments {
		if instruments[idx].FileId == "" {
			instruments[idx].FileId = NewId()
		}
		if instruments[idx].InstrumentId == "" {
			instruments[idx].InstrumentId = NewId()
		}
	}
	return instruments
}

// RawFile is an uploaded document awaiting parsing.
type RawFile struct {
	FileId   string `json:"file_id,omitempty"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type" validate:"required,oneof=pdf xlsx txt csv docx"`
	Content  string `json:"content" validate:"required"`
}
