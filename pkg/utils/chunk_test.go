package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		size  int
		want  [][]string
	}{
		{"empty", nil, 3, nil},
		{"fits", []string{"a", "b"}, 3, [][]string{{"a", "b"}}},
		{"exact", []string{"a", "b", "c", "d"}, 2, [][]string{{"a", "b"}, {"c", "d"}}},
		{"remainder", []string{"a", "b", "c"}, 2, [][]string{{"a", "b"}, {"c"}}},
		{"no limit", []string{"a", "b", "c"}, 0, [][]string{{"a", "b", "c"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chunk(tt.items, tt.size))
		})
	}
}

func TestChunk_AppendDoesNotLeak(t *testing.T) {
	items := []int{1, 2, 3, 4}
	chunks := Chunk(items, 2)

	_ = append(chunks[0], 99)
	assert.Equal(t, []int{1, 2, 3, 4}, items)
}
