package interfaces

import (
	"context"
	"time"
)

// Message представляет исходящее событие
type Message struct {
	ID          string            `json:"id"`
	Topic       string            `json:"topic"`
	Key         string            `json:"key"`
	Value       []byte            `json:"value"`
	Headers     map[string]string `json:"headers"`
	TenantID    string            `json:"tenant_id"`
	PublishedAt time.Time         `json:"published_at"`
}

// MessagingPort публикует события о завершённых синхронизациях
type MessagingPort interface {
	Publish(ctx context.Context, msg *Message) error

	// Close дожидается доставки буферизованных сообщений и закрывает соединение
	Close() error
}
