package services

import (
	"context"

	"github.com/athebyme/gomarket-sync/pkg/utils"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
)

// IDKind вид идентификатора, которым записи соединяются с деталями
type IDKind string

const (
	IDProduct IDKind = ""
	IDSKU     IDKind = "sku"
)

// Endpoint одна версия списочного эндпоинта поставщика
type Endpoint struct {
	Name        string
	Path        string
	Style       utils.CursorStyle
	MaxPageSize int
	// IDPath путь к ключу соединения в записи
	IDPath string
	// Keys вид значений по IDPath
	Keys IDKind
	// Build формирует тело запроса без полей курсора
	Build func(filter models.Filter, pageSize int) map[string]interface{}
	// Decode разбирает конверт ответа
	Decode func(body []byte) (*Decoded, error)
}

func (e Endpoint) CandidateName() string { return e.Name }

// Decoded содержимое конверта одной страницы
type Decoded struct {
	Records   []models.Record
	NextToken string
	// HasNext nil, если поставщик не сообщает о наличии следующей страницы
	HasNext *bool
}

// DetailEndpoint одна версия пакетного эндпоинта деталей
type DetailEndpoint struct {
	Name   string
	Path   string
	IDPath string
	Build  func(ids []string) map[string]interface{}
	Decode func(body []byte) ([]models.Record, error)
}

func (e DetailEndpoint) CandidateName() string { return e.Name }

// PageFetcher загружает одну страницу списочного эндпоинта
type PageFetcher interface {
	FetchPage(ctx context.Context, account models.Account, ep Endpoint, filter models.Filter, cursor utils.Cursor, pageSize int) (*models.Page, error)
}

// DetailClient загружает детали пачки идентификаторов. Результат индексирован по id
type DetailClient interface {
	FetchDetails(ctx context.Context, account models.Account, ep DetailEndpoint, ids []string) (map[string]models.Record, error)
}

// Sink приёмник нормализованных строк
type Sink interface {
	Name() string
	Deliver(ctx context.Context, batch *models.DispatchBatch) error
}

// ReportPublisher получает отчёт после каждого запуска
type ReportPublisher interface {
	Name() string
	Publish(ctx context.Context, report *models.RunReport) error
}
