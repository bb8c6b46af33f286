package cache

import (
	"context"
	"time"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache CachePort в памяти процесса, если Redis не настроен
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{store: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (m *MemoryCache) GetWithTenant(_ context.Context, key string, tenantID string) ([]byte, error) {
	v, ok := m.store.Get(buildKey(key, tenantID))
	if !ok {
		return nil, interfaces.ErrCacheMiss
	}
	return v.([]byte), nil
}

func (m *MemoryCache) SetWithTenant(_ context.Context, key string, value []byte, tenantID string, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = gocache.NoExpiration
	}
	m.store.Set(buildKey(key, tenantID), value, expiration)
	return nil
}

func (m *MemoryCache) Close() error {
	m.store.Flush()
	return nil
}
