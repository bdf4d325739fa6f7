package main

import (
	"bytes"
	"testing"

	"harmony-api/internal/model"
	"harmony-api/internal/pkg/logger"
	"harmony-api/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestStats_YAMLReport(t *testing.T) {
	dir := t.TempDir()
	instruments := memory.NewInstrumentsCache(dir, logger.NewNopLogger(), nil)
	instruments.Put("content", []model.Instrument{{Questions: []model.Question{{QuestionText: "a"}, {QuestionText: "b"}}}})
	require.True(t, instruments.Save())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"stats", "--data", dir, "--output", "yaml"})
	require.NoError(t, rootCmd.Execute())

	var report statsReport
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &report))

	require.Len(t, report.Snapshots, 2)
	assert.Equal(t, "instruments", report.Snapshots[0].Name)
	assert.Equal(t, 1, report.Snapshots[0].Entries)
	assert.True(t, report.Snapshots[0].Exists)
	assert.False(t, report.Snapshots[1].Exists)
	assert.Equal(t, 2, report.Questions)
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", humanBytes(512))
	assert.Equal(t, "1.5 KiB", humanBytes(1536))
	assert.Equal(t, "2.0 MiB", humanBytes(2*1024*1024))
}
