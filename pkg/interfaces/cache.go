package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss возвращается, если ключ отсутствует в кэше
var ErrCacheMiss = errors.New("cache miss")

// CachePort определяет интерфейс key-value хранилища для последних отчётов синхронизации
type CachePort interface {
	// GetWithTenant получает значение по ключу в пространстве арендатора.
	// Возвращает ErrCacheMiss, если значение не найдено
	GetWithTenant(ctx context.Context, key string, tenantID string) ([]byte, error)

	// SetWithTenant сохраняет значение; expiration == 0 означает бессрочно
	SetWithTenant(ctx context.Context, key string, value []byte, tenantID string, expiration time.Duration) error

	Close() error
}
