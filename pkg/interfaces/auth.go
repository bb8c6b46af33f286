package interfaces

import "context"

// AuthPort проверяет токены вызывающих сторон
type AuthPort interface {
	// ValidateToken проверяет токен и возвращает его subject
	ValidateToken(ctx context.Context, token string) (string, error)
}
