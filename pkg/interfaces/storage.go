package interfaces

import "context"

// StoragePort определяет интерфейс постоянного хранилища
type StoragePort interface {
	// EnsureSchema создаёт необходимые таблицы, если их нет
	EnsureSchema(ctx context.Context) error

	Ping(ctx context.Context) error

	Close() error
}
