package catalogue

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"harmony-api/internal/model"
)

var (
	articlePattern  = regexp.MustCompile(`(?i)the|a`)
	nonAlnumPattern = regexp.MustCompile(`[^a-z0-9]`)
)

// NormalizeText is the dedup comparison form of a question: lowercase, without the
// words "the" and "a", keeping only ASCII letters and digits.
func NormalizeText(text string) string {
	text = strings.ToLower(stripArticles(text))
	return nonAlnumPattern.ReplaceAllString(strings.TrimSpace(text), "")
}

// stripArticles removes "the" and "a" where they stand as whole words. RE2's \b only
// knows ASCII, so the boundary is checked against Unicode letters and numbers here:
// the "a" in "niña" is part of the word.
func stripArticles(text string) string {
	var b strings.Builder
	last := 0
	for _, loc := range articlePattern.FindAllStringIndex(text, -1) {
		if !wordBoundaryBefore(text, loc[0]) || !wordBoundaryAfter(text, loc[1]) {
			continue
		}
		b.WriteString(text[last:loc[0]])
		last = loc[1]
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

func wordBoundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func wordBoundaryAfter(text string, i int) bool {
	if i == len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// NormalizeSources trims and lowercases sources, dropping blanks.
func NormalizeSources(sources []string) map[string]struct{} {
	set := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

type dedupRow struct {
	index    int
	original string
	vector   []float32
}

// Filter keeps only instruments whose source is in sources and rebuilds questions,
// embeddings and the instrument index map over the survivors, collapsing questions
// that normalise to the same text. The input is never modified. With no usable
// sources the input itself is returned.
//
// When two different literal texts normalise alike, both share the vector of the
// first one seen in the baseline.
func Filter(c *Corpus, sources []string) *Corpus {
	allowed := NormalizeSources(sources)
	if len(allowed) == 0 {
		return c
	}

	baselineVectors := make(map[string][]float32, len(c.Questions))
	for i, question := range c.Questions {
		if i >= c.Embeddings.Rows() {
			break
		}
		normalized := NormalizeText(question)
		if _, seen := baselineVectors[normalized]; !seen {
			baselineVectors[normalized] = c.Embeddings[i]
		}
	}

	var surviving []model.Instrument
	for _, instrument := range c.Instruments {
		source := strings.ToLower(strings.TrimSpace(instrument.SourceName()))
		if _, ok := allowed[source]; ok {
			surviving = append(surviving, instrument.Clone())
		}
	}

	rows := make(map[string]*dedupRow)
	var order []*dedupRow
	for _, instrument := range surviving {
		for _, q := range instrument.Questions {
			normalized := NormalizeText(q.QuestionText)
			if _, assigned := rows[normalized]; assigned {
				continue
			}
			row := &dedupRow{
				index:    len(order),
				original: q.QuestionText,
				vector:   baselineVectors[normalized],
			}
			rows[normalized] = row
			order = append(order, row)
		}
	}

	out := &Corpus{
		Questions:               make([]string, 0, len(order)),
		Embeddings:              make(Matrix, 0, len(order)),
		Instruments:             surviving,
		InstrumentToQuestionIdx: make([][]int, 0, len(surviving)),
	}
	for _, row := range order {
		out.Questions = append(out.Questions, row.original)
		out.Embeddings = append(out.Embeddings, append([]float32(nil), row.vector...))
	}

	for _, instrument := range surviving {
		seen := make(map[string]struct{}, len(instrument.Questions))
		idxs := make([]int, 0, len(instrument.Questions))
		for _, q := range instrument.Questions {
			normalized := NormalizeText(q.QuestionText)
			if _, dup := seen[normalized]; dup {
				continue
			}
			seen[normalized] = struct{}{}
			idxs = append(idxs, rows[normalized].index)
		}
		out.InstrumentToQuestionIdx = append(out.InstrumentToQuestionIdx, idxs)
	}

	return out
}
