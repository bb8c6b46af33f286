package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-sync/pkg/tx"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sync_runs (
    run_id      TEXT PRIMARY KEY,
    trigger     TEXT NOT NULL DEFAULT '',
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    failed      BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS sync_domain_results (
    run_id        TEXT NOT NULL REFERENCES sync_runs(run_id) ON DELETE CASCADE,
    position      INT NOT NULL,
    account       TEXT NOT NULL,
    client_id     TEXT NOT NULL,
    domain        TEXT NOT NULL,
    sheet         TEXT NOT NULL DEFAULT '',
    endpoints     TEXT[] NOT NULL DEFAULT '{}',
    pages         INT NOT NULL DEFAULT 0,
    rows          INT NOT NULL DEFAULT 0,
    chunks        INT NOT NULL DEFAULT 0,
    failed_chunks INT NOT NULL DEFAULT 0,
    degraded      BOOLEAN NOT NULL DEFAULT FALSE,
    partial       BOOLEAN NOT NULL DEFAULT FALSE,
    error         TEXT NOT NULL DEFAULT '',
    started_at    TIMESTAMPTZ NOT NULL,
    duration_ms   BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs (started_at DESC);
`

// RunSummary краткая запись истории запусков
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Failed     bool      `json:"failed"`
	Rows       int       `json:"rows"`
}

// RunStorage история запусков синхронизации в PostgreSQL
type RunStorage struct {
	pool *pgxpool.Pool
	tx   tx.TxManager
}

// NewPostgresStorage создает новый экземпляр RunStorage
func NewPostgresStorage(ctx context.Context, connectionString string) (*RunStorage, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewPostgresStorageWithPool(ctx, pool)
}

func NewPostgresStorageWithPool(ctx context.Context, pool *pgxpool.Pool) (*RunStorage, error) {
	if pool == nil {
		return nil, errors.New("pool is nil")
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &RunStorage{pool: pool, tx: tx.NewTxManager(pool)}, nil
}

func (r *RunStorage) Name() string { return "postgres" }

func (r *RunStorage) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (r *RunStorage) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close закрывает соединение с БД
func (r *RunStorage) Close() error {
	r.pool.Close()
	return nil
}

type executor interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// getExecutor возвращает исполнителя запросов (транзакцию или пул)
func (r *RunStorage) getExecutor(ctx context.Context) executor {
	if t, ok := tx.FromContext(ctx); ok {
		return t
	}
	return r.pool
}

// Publish сохраняет отчёт как ReportPublisher
func (r *RunStorage) Publish(ctx context.Context, report *models.RunReport) error {
	return r.SaveRun(ctx, report)
}

// SaveRun записывает запуск и результаты доменов одной транзакцией.
// Результат ключуется порядковым номером в отчёте, client_id может быть пустым.
// Повторное сохранение того же запуска перезаписывает результаты
func (r *RunStorage) SaveRun(ctx context.Context, report *models.RunReport) error {
	return r.tx.Do(ctx, func(ctx context.Context) error {
		exec := r.getExecutor(ctx)

		_, err := exec.Exec(ctx, `
			INSERT INTO sync_runs (run_id, trigger, started_at, finished_at, failed)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (run_id) DO UPDATE SET
				trigger = EXCLUDED.trigger,
				finished_at = EXCLUDED.finished_at,
				failed = EXCLUDED.failed`,
			report.RunID, report.Trigger, report.StartedAt, report.FinishedAt, report.Failed(),
		)
		if err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}

		if _, err := exec.Exec(ctx, `DELETE FROM sync_domain_results WHERE run_id = $1`, report.RunID); err != nil {
			return fmt.Errorf("failed to reset run results: %w", err)
		}

		for i, res := range report.Results {
			_, err := exec.Exec(ctx, `
				INSERT INTO sync_domain_results (
					run_id, position, account, client_id, domain, sheet, endpoints, pages, rows,
					chunks, failed_chunks, degraded, partial, error, started_at, duration_ms
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
				resultArgs(report.RunID, i, res)...,
			)
			if err != nil {
				return fmt.Errorf("failed to save %s result for %s: %w", res.Domain, res.Account, err)
			}
		}
		return nil
	})
}

func resultArgs(runID string, position int, res models.DomainResult) []interface{} {
	endpoints := res.Endpoints
	if endpoints == nil {
		endpoints = []string{}
	}
	return []interface{}{
		runID,
		position,
		res.Account,
		res.ClientID,
		string(res.Domain),
		res.Sheet,
		endpoints,
		res.Pages,
		res.Rows,
		res.Chunks,
		res.FailedChunks,
		res.Degraded,
		res.Partial,
		res.Error,
		res.StartedAt,
		res.Duration.Milliseconds(),
	}
}

// RecentRuns последние запуски, новые первыми
func (r *RunStorage) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.getExecutor(ctx).Query(ctx, `
		SELECT r.run_id, r.trigger, r.started_at, r.finished_at, r.failed,
		       COALESCE(SUM(d.rows), 0)::int
		FROM sync_runs r
		LEFT JOIN sync_domain_results d ON d.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.Trigger, &s.StartedAt, &s.FinishedAt, &s.Failed, &s.Rows); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
