package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/services/sync-service/config"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/adapters/cache"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/adapters/messaging"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/adapters/ozon"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/adapters/sink"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/adapters/storage"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/api/handlers"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/services"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/security"
)

type closer struct {
	name string
	fn   func() error
}

// App собранный граф зависимостей сервиса
type App struct {
	Orchestrator *services.Orchestrator
	Accounts     []models.Account
	Domains      []models.Domain
	Reports      *cache.ReportCache
	History      *postgres.RunStorage
	Auth         *security.JWTManager

	logger  interfaces.LoggerPort
	closers []closer
}

// New собирает клиент поставщика, приёмник, публикаторы отчётов и оркестратор.
// Redis, PostgreSQL и Kafka подключаются только если включены в конфигурации.
func New(ctx context.Context, cfg *config.Config, log interfaces.LoggerPort) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{logger: log, Accounts: cfg.Accounts()}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	domains, err := cfg.Domains()
	if err != nil {
		return nil, err
	}
	a.Domains = domains

	client, err := ozon.NewClient(ozon.ClientConfig{
		BaseURL:           cfg.Ozon.BaseURL,
		UserAgent:         cfg.Ozon.UserAgent,
		ProxyURL:          cfg.Ozon.ProxyURL,
		RequestsPerSecond: cfg.Ozon.RequestsPerSecond,
		ProbeTimeout:      cfg.Ozon.ProbeTimeout,
		ListTimeout:       cfg.Ozon.ListTimeout,
		DetailTimeout:     cfg.Ozon.DetailTimeout,
	}, log)
	if err != nil {
		return nil, err
	}

	sheets, err := cfg.DomainSheets()
	if err != nil {
		return nil, err
	}
	schemas, err := cfg.DomainSchemas()
	if err != nil {
		return nil, err
	}
	flows, err := ozon.Flows(ozon.FlowConfig{Sheets: sheets, Schemas: schemas, PageSize: cfg.Ozon.PageSize})
	if err != nil {
		return nil, err
	}

	target, err := newSink(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info("Приёмник выбран", interfaces.LogField{Key: "sink", Value: target.Name()})

	dispatcher := services.NewDispatcher(target, services.DispatcherConfig{
		ChunkSize:    cfg.Sink.ChunkSize,
		ChunkTimeout: cfg.Sink.ChunkTimeout,
		Pause:        cfg.Sink.Pause,
	}, log)

	publishers, err := a.publishers(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Security.JWTSecret != "" {
		a.Auth, err = security.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTExpiration, cfg.Security.JWTIssuer)
		if err != nil {
			return nil, err
		}
	}

	a.Orchestrator = services.NewOrchestrator(client, client, dispatcher, flows, services.OrchestratorConfig{
		MaxPages:          cfg.Sync.MaxPages,
		SalesLookbackDays: cfg.Sync.SalesLookbackDays,
	}, log, publishers...)

	for _, acc := range a.Accounts {
		log.Info("Аккаунт продавца",
			interfaces.LogField{Key: "account", Value: acc.ClientID},
			interfaces.LogField{Key: "key", Value: acc.MaskedKey()},
		)
	}
	ok = true
	return a, nil
}

func newSink(ctx context.Context, cfg *config.Config, log interfaces.LoggerPort) (services.Sink, error) {
	switch cfg.Sink.Type {
	case config.SinkSheets:
		creds, err := credentials(cfg.Sheets.CredentialsJSON)
		if err != nil {
			return nil, err
		}
		sheets, err := sink.NewSheetsSinkFromCredentials(ctx, sink.SheetsConfig{
			SpreadsheetID: cfg.Sheets.SpreadsheetID,
			StartCell:     cfg.Sheets.StartCell,
		}, creds, log)
		if err != nil {
			return nil, err
		}
		return sheets, nil
	default:
		return sink.NewWebhookSink(sink.WebhookConfig{
			URL:     cfg.Sink.WebhookURL,
			Secret:  cfg.Sink.Secret,
			Timeout: cfg.Sink.ChunkTimeout,
		}, nil, log), nil
	}
}

// credentials принимает JSON ключа сервисного аккаунта или путь к файлу с ним
func credentials(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "{") {
		return []byte(value), nil
	}
	raw, err := os.ReadFile(value)
	if err != nil {
		return nil, fmt.Errorf("read google credentials: %w", err)
	}
	return raw, nil
}

func (a *App) publishers(ctx context.Context, cfg *config.Config) ([]services.ReportPublisher, error) {
	var (
		publishers []services.ReportPublisher
		store      interfaces.CachePort
	)

	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closer{"redis", redisCache.Close})
		store = redisCache
		a.logger.Info("Кэш отчётов: Redis")
	} else {
		store = cache.NewMemoryCache()
		a.logger.Info("Кэш отчётов: память процесса")
	}
	a.Reports = cache.NewReportCache(store, cfg.Redis.ReportTTL)
	publishers = append(publishers, a.Reports)

	if cfg.Postgres.Enabled {
		dsn, err := cfg.Postgres.DSN()
		if err != nil {
			return nil, fmt.Errorf("postgres connection string: %w", err)
		}
		db, err := postgres.NewPostgresStorage(ctx, dsn)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closer{"postgres", db.Close})
		if err := prepareStorage(ctx, db); err != nil {
			return nil, err
		}
		a.History = db
		publishers = append(publishers, db)
		a.logger.Info("История запусков: PostgreSQL")
	}

	if cfg.Kafka.Enabled {
		producer, err := messaging.NewKafkaMessaging(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closer{"kafka", producer.Close})
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Topic, 1, 1); err != nil {
			a.logger.Warn("Не удалось создать топик",
				interfaces.LogField{Key: "topic", Value: cfg.Kafka.Topic},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
		publishers = append(publishers, messaging.NewEventPublisher(producer, cfg.Kafka.Topic))
		a.logger.Info("События запусков: Kafka", interfaces.LogField{Key: "topic", Value: cfg.Kafka.Topic})
	}

	return publishers, nil
}

// prepareStorage проверяет соединение и создаёт таблицы истории
func prepareStorage(ctx context.Context, storage interfaces.StoragePort) error {
	if err := storage.Ping(ctx); err != nil {
		return fmt.Errorf("ошибка подключения к PostgreSQL: %w", err)
	}
	return storage.EnsureSchema(ctx)
}

// Request запрос на все настроенные домены всех аккаунтов
func (a *App) Request(trigger string) models.SyncRequest {
	return models.SyncRequest{Domains: a.Domains, Accounts: a.Accounts, Trigger: trigger}
}

// SyncHandler HTTP обработчик поверх оркестратора
func (a *App) SyncHandler() *handlers.SyncHandler {
	var history handlers.RunHistory
	if a.History != nil {
		history = a.History
	}
	return handlers.NewSyncHandler(a.Orchestrator, a.Accounts, a.Domains, a.Reports, history, a.logger)
}

// AuthPort nil, если проверка токенов отключена
func (a *App) AuthPort() interfaces.AuthPort {
	if a.Auth == nil {
		return nil
	}
	return a.Auth
}

// Close закрывает подключения в обратном порядке
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Error("Ошибка при закрытии подключения",
				interfaces.LogField{Key: "dependency", Value: c.name},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
	}
	a.closers = nil
}
