package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shashiranjanraj/canteen/pkg/metrics"
)

type entry struct {
	data    []byte
	expires time.Time
}

// Memory is an in-process Store. Values round-trip through JSON so callers
// see the same behaviour as with Redis.
type Memory struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]entry), now: time.Now}
}

func (m *Memory) live(key string) (entry, bool) {
	e, ok := m.items[key]
	if !ok {
		return entry{}, false
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.items, key)
		return entry{}, false
	}
	return e, true
}

func (m *Memory) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	e, ok := m.live(key)
	m.mu.Unlock()

	if !ok {
		metrics.CacheMisses.WithLabelValues("memory").Inc()
		return false, nil
	}
	if err := json.Unmarshal(e.data, dest); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	metrics.CacheHits.WithLabelValues("memory").Inc()
	return true, nil
}

func (m *Memory) encode(key string, value any, ttl time.Duration) (entry, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return entry{}, fmt.Errorf("cache: encode %s: %w", key, err)
	}
	e := entry{data: data}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	return e, nil
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	e, err := m.encode(key, value, ttl)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	e, err := m.encode(key, value, ttl)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(key); ok {
		return false, nil
	}
	m.items[key] = e
	return true, nil
}

func (m *Memory) CompareAndDelete(_ context.Context, key string, value any) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("cache: encode %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok || !bytes.Equal(e.data, data) {
		return false, nil
	}
	delete(m.items, key)
	return true, nil
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.items, k)
	}
	m.mu.Unlock()
	return nil
}
