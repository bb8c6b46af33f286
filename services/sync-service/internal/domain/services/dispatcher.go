package services

import (
	"context"
	"time"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/metrics"
)

const defaultChunkSize = 1000

// DispatcherConfig параметры отправки в приёмник
type DispatcherConfig struct {
	ChunkSize    int
	ChunkTimeout time.Duration
	// Pause между частями
	Pause time.Duration
}

// Dispatcher режет строки домена на части и отправляет их по очереди.
// Ошибка части логируется и не прерывает отправку остальных.
type Dispatcher struct {
	sink   Sink
	cfg    DispatcherConfig
	logger interfaces.LoggerPort
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(sink Sink, cfg DispatcherConfig, logger interfaces.LoggerPort) *Dispatcher {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	return &Dispatcher{sink: sink, cfg: cfg, logger: logger, sleep: sleepContext}
}

// Dispatch отправляет rows частями по ChunkSize строк. Части нумеруются с нуля;
// приёмник очищает лист при получении части 0.
func (d *Dispatcher) Dispatch(ctx context.Context, template models.DispatchBatch, rows []models.NormalizedRow) []models.ChunkOutcome {
	total := (len(rows) + d.cfg.ChunkSize - 1) / d.cfg.ChunkSize
	outcomes := make([]models.ChunkOutcome, 0, total)

	for i := 0; i < total; i++ {
		start := i * d.cfg.ChunkSize
		end := start + d.cfg.ChunkSize
		if end > len(rows) {
			end = len(rows)
		}

		if i > 0 && d.cfg.Pause > 0 {
			if err := d.sleep(ctx, d.cfg.Pause); err != nil {
				for j := i; j < total; j++ {
					outcomes = append(outcomes, models.ChunkOutcome{Index: j, Err: err})
				}
				break
			}
		}

		batch := template
		batch.Rows = rows[start:end]
		batch.Index = i
		batch.Total = total

		outcome := d.deliver(ctx, &batch)
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

func (d *Dispatcher) deliver(ctx context.Context, batch *models.DispatchBatch) models.ChunkOutcome {
	chunkCtx := ctx
	if d.cfg.ChunkTimeout > 0 {
		var cancel context.CancelFunc
		chunkCtx, cancel = context.WithTimeout(ctx, d.cfg.ChunkTimeout)
		defer cancel()
	}

	start := time.Now()
	err := d.sink.Deliver(chunkCtx, batch)
	outcome := models.ChunkOutcome{
		Index:    batch.Index,
		Rows:     len(batch.Rows),
		Err:      err,
		Duration: time.Since(start),
	}

	fields := []interface{}{
		interfaces.LogField{Key: "sink", Value: d.sink.Name()},
		interfaces.LogField{Key: "sheet", Value: batch.Sheet},
		interfaces.LogField{Key: "chunk", Value: batch.Index + 1},
		interfaces.LogField{Key: "chunks", Value: batch.Total},
		interfaces.LogField{Key: "rows", Value: len(batch.Rows)},
	}
	if err != nil {
		metrics.Chunks.WithLabelValues(string(batch.Domain), "error").Inc()
		d.logger.ErrorWithContext(ctx, "Ошибка отправки части",
			append(fields, interfaces.LogField{Key: "error", Value: err.Error()})...)
		return outcome
	}

	metrics.Chunks.WithLabelValues(string(batch.Domain), "success").Inc()
	d.logger.InfoWithContext(ctx, "Часть отправлена", fields...)
	return outcome
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
