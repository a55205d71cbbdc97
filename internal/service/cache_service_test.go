package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/bips-college-api/pkg/errors"
)

type memoryCache struct {
	items   map[string][]byte
	getErr  error
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
			m.deleted = append(m.deleted, key)
		}
	}
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	svc := NewCacheService(newMemoryCache(), NewMetricsService(), time.Minute, nil, true)
	ctx := context.Background()

	var got []string
	assert.False(t, svc.Get(ctx, "sponsors:list", &got))

	svc.Set(ctx, "sponsors:list", []string{"a", "b"}, 0)
	assert.True(t, svc.Get(ctx, "sponsors:list", &got))
	assert.Equal(t, []string{"a", "b"}, got)

	svc.Invalidate(ctx, "sponsors:*")
	assert.False(t, svc.Get(ctx, "sponsors:list", &got))
}

func TestCacheServiceDisabledOrFailing(t *testing.T) {
	ctx := context.Background()
	disabled := NewCacheService(newMemoryCache(), nil, 0, nil, false)
	disabled.Set(ctx, "k", "v", 0)
	var v string
	assert.False(t, disabled.Get(ctx, "k", &v))

	broken := newMemoryCache()
	broken.getErr = errors.New("connection refused")
	svc := NewCacheService(broken, nil, 0, nil, true)
	assert.False(t, svc.Get(ctx, "k", &v))
}
