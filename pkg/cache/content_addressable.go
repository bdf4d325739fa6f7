// Package cache implements a content-addressable key/value store whose keys are
// SHA-256 fingerprints of the inputs that produced a value, with JSON snapshots on disk.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"harmony-api/internal/pkg/logger"

	"github.com/gofrs/flock"
	gocache "github.com/patrickmn/go-cache"
)

const module = "CACHE"

var ErrNotFound = errors.New("cache: key not found")

// Mirror keeps a secondary copy of a snapshot, used when the local file is absent.
type Mirror interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

type Options struct {
	// Name identifies the cache in logs, events and the mirror.
	Name string
	// Path is the snapshot file.
	Path   string
	Logger logger.ILogger
	Mirror Mirror
	// LockTimeout bounds how long Save waits for the snapshot file lock.
	LockTimeout time.Duration
}

// Store is a process-wide key/value map. The underlying go-cache instance guards the
// map with a single RWMutex, and entries never expire.
type Store[V any] struct {
	name        string
	path        string
	items       *gocache.Cache
	logger      logger.ILogger
	mirror      Mirror
	lockTimeout time.Duration

	saveMu sync.Mutex
}

// GenerateKey fingerprints the inputs. Each part is length-prefixed before hashing so
// ("ab", "c") and ("a", "bc") never share a key.
func GenerateKey(inputs ...string) string {
	h := sha256.New()
	for _, in := range inputs {
		io.WriteString(h, strconv.Itoa(len(in)))
		io.WriteString(h, ":")
		io.WriteString(h, in)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// New creates the store and loads its snapshot. Loading never fails: a missing or
// unreadable snapshot yields an empty store.
func New[V any](opts Options) *Store[V] {
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 10 * time.Second
	}
	s := &Store[V]{
		name:        opts.Name,
		path:        opts.Path,
		items:       gocache.New(gocache.NoExpiration, 0),
		logger:      opts.Logger,
		mirror:      opts.Mirror,
		lockTimeout: opts.LockTimeout,
	}
	s.load()
	return s
}

func (s *Store[V]) Name() string {
	return s.name
}

func (s *Store[V]) Path() string {
	return s.path
}

func (s *Store[V]) Has(key string) bool {
	_, found := s.items.Get(key)
	return found
}

// Lookup returns the value stored under key.
func (s *Store[V]) Lookup(key string) (V, bool) {
	var zero V
	x, found := s.items.Get(key)
	if !found {
		return zero, false
	}
	v, ok := x.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// Get is Lookup with ErrNotFound for absent keys.
func (s *Store[V]) Get(key string) (V, error) {
	v, ok := s.Lookup(key)
	if !ok {
		return v, fmt.Errorf("%s %s: %w", s.name, key, ErrNotFound)
	}
	return v, nil
}

// Set overwrites unconditionally.
func (s *Store[V]) Set(key string, value V) {
	s.items.Set(key, value, gocache.NoExpiration)
}

func (s *Store[V]) Len() int {
	return s.items.ItemCount()
}

// Snapshot returns a point-in-time copy of the key space. Values are shared with
// the store.
func (s *Store[V]) Snapshot() map[string]V {
	items := s.items.Items()
	out := make(map[string]V, len(items))
	for k, item := range items {
		if v, ok := item.Object.(V); ok {
			out[k] = v
		}
	}
	return out
}

func (s *Store[V]) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn(module, "Could not read cache snapshot, starting empty", map[string]interface{}{
				"cache": s.name, "path": s.path, "error": err.Error(),
			})
			return
		}
		data = s.loadFromMirror()
		if data == nil {
			return
		}
	}

	var parsed map[string]V
	if err := json.Unmarshal(data, &parsed); err != nil {
		s.logger.Warn(module, "Cache snapshot is not valid JSON, starting empty", map[string]interface{}{
			"cache": s.name, "path": s.path, "error": err.Error(),
		})
		return
	}

	for k, v := range parsed {
		s.items.Set(k, v, gocache.NoExpiration)
	}
	s.logger.Info(module, "Cache loaded", map[string]interface{}{
		"cache": s.name, "entries": len(parsed),
	})
}

func (s *Store[V]) loadFromMirror() []byte {
	if s.mirror == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, err := s.mirror.Get(ctx, s.name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn(module, "Could not restore cache from mirror", map[string]interface{}{
				"cache": s.name, "error": err.Error(),
			})
		}
		return nil
	}
	s.logger.Info(module, "Cache restored from mirror", map[string]interface{}{"cache": s.name})
	return data
}

// Save writes the whole map to disk and reports whether the snapshot was written.
// Errors are logged, never returned.
func (s *Store[V]) Save() bool {
	data, err := s.save()
	if err != nil {
		s.logger.Error(module, "Could not save cache", map[string]interface{}{
			"cache": s.name, "path": s.path, "error": err.Error(),
		})
		return false
	}

	if s.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.mirror.Put(ctx, s.name, data); err != nil {
			s.logger.Warn(module, "Could not mirror cache snapshot", map[string]interface{}{
				"cache": s.name, "error": err.Error(),
			})
		}
	}

	s.logger.Info(module, "Cache saved", map[string]interface{}{
		"cache": s.name, "path": s.path, "bytes": len(data),
	})
	return true
}

func (s *Store[V]) save() ([]byte, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir %s: %w", dir, err)
	}

	// Another process pointed at the same data path may be writing too.
	lock := flock.New(s.path + ".lock")
	ctx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("acquire snapshot lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("snapshot lock %s is held by another writer", lock.Path())
	}
	defer lock.Unlock()

	if err := writeFileAtomic(s.path, data); err != nil {
		return nil, err
	}
	return data, nil
}

// writeFileAtomic writes to a temp file next to path and renames it over path, so an
// interrupted write never leaves a truncated snapshot behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}
