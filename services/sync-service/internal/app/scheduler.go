package app

import (
	"context"
	"errors"
	"time"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/services"
)

// Schedule запускает синхронизацию сразу и затем каждые interval до отмены ctx.
// Запуск, совпавший с идущим (например, из HTTP), пропускается.
func Schedule(ctx context.Context, svc services.SyncService, req models.SyncRequest, interval time.Duration, log interfaces.LoggerPort) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		runOnce(ctx, svc, req, log)

		select {
		case <-ctx.Done():
			log.Info("Планировщик остановлен")
			return
		case <-ticker.C:
		}
	}
}

func runOnce(ctx context.Context, svc services.SyncService, req models.SyncRequest, log interfaces.LoggerPort) {
	if ctx.Err() != nil {
		return
	}
	report, err := svc.TryRun(ctx, req)
	if errors.Is(err, services.ErrRunInProgress) {
		log.Warn("Предыдущая синхронизация ещё выполняется, запуск пропущен")
		return
	}
	if err != nil {
		log.Error("Ошибка синхронизации", interfaces.LogField{Key: "error", Value: err.Error()})
		return
	}

	for domain, t := range report.Totals() {
		log.Info("Итог домена",
			interfaces.LogField{Key: "run_id", Value: report.RunID},
			interfaces.LogField{Key: "domain", Value: domain},
			interfaces.LogField{Key: "rows", Value: t.Rows},
			interfaces.LogField{Key: "pages", Value: t.Pages},
			interfaces.LogField{Key: "errors", Value: t.Errors},
		)
	}
}
