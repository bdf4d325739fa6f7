package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name   string    `json:"name"`
	Values []float32 `json:"values"`
}

func newTestStore(t *testing.T, path string, mirror Mirror) *Store[entry] {
	t.Helper()
	return New[entry](Options{Name: "test", Path: path, Mirror: mirror})
}

func TestGenerateKey(t *testing.T) {
	tests := []struct {
		name   string
		a, b   []string
		wantEq bool
	}{
		{name: "same inputs", a: []string{"huggingface", "modelX", "I feel sad"}, b: []string{"huggingface", "modelX", "I feel sad"}, wantEq: true},
		{name: "different text", a: []string{"huggingface", "modelX", "I feel sad"}, b: []string{"huggingface", "modelX", "I feel happy"}, wantEq: false},
		{name: "different model", a: []string{"huggingface", "modelX", "I feel sad"}, b: []string{"huggingface", "modelY", "I feel sad"}, wantEq: false},
		{name: "shifted boundary", a: []string{"ab", "c"}, b: []string{"a", "bc"}, wantEq: false},
		{name: "concatenation", a: []string{"abc"}, b: []string{"ab", "c"}, wantEq: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka := GenerateKey(tt.a...)
			kb := GenerateKey(tt.b...)
			assert.Len(t, ka, 64)
			assert.Equal(t, tt.wantEq, ka == kb)
		})
	}
}

func TestGenerateKey_StableAcrossRestarts(t *testing.T) {
	// Keys are persisted in snapshots, so the digest must never change.
	assert.Equal(t, "a3a285698dc7dbfe23947339ee187d471f643617f88b4af70209bb1a01edd9d9", GenerateKey("hello"))
	assert.Equal(t, "0249db3ed0a34b692f2910bb883c70d1066cefa08a3878c92ba0f2f0495beb9b", GenerateKey("huggingface", "modelX", "I feel sad"))
}

func TestStore_GetMissingKey(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "cache.json"), nil)

	assert.False(t, s.Has("nope"))
	_, ok := s.Lookup("nope")
	assert.False(t, ok)

	_, err := s.Get("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_SetOverwrites(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "cache.json"), nil)

	s.Set("k", entry{Name: "first"})
	s.Set("k", entry{Name: "second"})

	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name)
	assert.Equal(t, 1, s.Len())
}

func TestStore_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	s := newTestStore(t, path, nil)

	key := GenerateKey("some", "input")
	want := entry{Name: "vector", Values: []float32{0.25, -1.5, 3}}
	s.Set(key, want)
	require.True(t, s.Save())

	reloaded := newTestStore(t, path, nil)
	assert.True(t, reloaded.Has(key))
	got, err := reloaded.Get(key)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_CorruptSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := newTestStore(t, path, nil)

	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Has(GenerateKey("anything")))
	assert.False(t, s.Has(""))
}

func TestStore_MissingSnapshotStartsEmpty(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "absent.json"), nil)
	assert.Equal(t, 0, s.Len())
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")
	s := newTestStore(t, path, nil)
	s.Set("a", entry{Name: "a"})

	require.True(t, s.Save())
	require.True(t, s.Save())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestStore_SaveFailureIsSwallowed(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// The parent of the snapshot path is a regular file, so the directory cannot exist.
	s := newTestStore(t, filepath.Join(blocker, "sub", "cache.json"), nil)
	s.Set("a", entry{Name: "a"})

	assert.NotPanics(t, func() {
		assert.False(t, s.Save())
	})
	assert.True(t, s.Has("a"))
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "cache.json"), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := GenerateKey("k", string(rune('a'+i)), string(rune('a'+j%26)))
				s.Set(key, entry{Name: key})
				s.Has(key)
			}
			s.Save()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8*26, s.Len())
}

type memoryMirror struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryMirror() *memoryMirror {
	return &memoryMirror{data: map[string][]byte{}}
}

func (m *memoryMirror) Put(ctx context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = append([]byte(nil), data...)
	return nil
}

func (m *memoryMirror) Get(ctx context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[name]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func TestStore_RestoresFromMirror(t *testing.T) {
	mirror := newMemoryMirror()

	first := newTestStore(t, filepath.Join(t.TempDir(), "cache.json"), mirror)
	first.Set("k", entry{Name: "mirrored"})
	require.True(t, first.Save())
	assert.Contains(t, mirror.data, "test")

	// Fresh disk: the local snapshot is gone, the mirror still has it.
	second := newTestStore(t, filepath.Join(t.TempDir(), "cache.json"), mirror)
	got, err := second.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "mirrored", got.Name)
}

func TestStore_LocalSnapshotWinsOverMirror(t *testing.T) {
	mirror := newMemoryMirror()
	require.NoError(t, mirror.Put(context.Background(), "test", []byte(`{"k":{"name":"remote"}}`)))

	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"k":{"name":"local"}}`), 0o644))

	s := newTestStore(t, path, mirror)
	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "local", got.Name)
}
