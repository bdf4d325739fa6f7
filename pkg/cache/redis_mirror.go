package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisMirror stores a copy of each snapshot under "<prefix>:<cache name>".
// It is a backup for restarts on a fresh disk, not a shared cache: every process
// still serves from its own in-memory map.
type RedisMirror struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisMirror(rdb *redis.Client, prefix string) *RedisMirror {
	if prefix == "" {
		prefix = "harmony:snapshot"
	}
	return &RedisMirror{rdb: rdb, prefix: prefix}
}

func (m *RedisMirror) key(name string) string {
	return fmt.Sprintf("%s:%s", m.prefix, name)
}

func (m *RedisMirror) Put(ctx context.Context, name string, data []byte) error {
	return m.rdb.Set(ctx, m.key(name), data, 0).Err()
}

func (m *RedisMirror) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := m.rdb.Get(ctx, m.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}
