package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
)

// WebhookConfig настройки приёмника на стороне таблицы
type WebhookConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

// webhookPayload тело запроса к скрипту таблицы
type webhookPayload struct {
	RunID   string                 `json:"run_id,omitempty"`
	Sheet   string                 `json:"sheet"`
	Domain  models.Domain          `json:"domain"`
	Headers []string               `json:"headers"`
	Rows    []models.NormalizedRow `json:"rows"`
	Secret  string                 `json:"secret,omitempty"`
	Chunk   int                    `json:"chunk"`
	Chunks  int                    `json:"chunks"`
}

// WebhookSink отправляет пачки строк POST запросом
type WebhookSink struct {
	cfg    WebhookConfig
	client *http.Client
	logger interfaces.LoggerPort
}

func NewWebhookSink(cfg WebhookConfig, client *http.Client, logger interfaces.LoggerPort) *WebhookSink {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	return &WebhookSink{cfg: cfg, client: client, logger: logger}
}

func (w *WebhookSink) Name() string { return "webhook" }

// Deliver считает успехом любой ответ 2xx
func (w *WebhookSink) Deliver(ctx context.Context, batch *models.DispatchBatch) error {
	payload, err := json.Marshal(webhookPayload{
		RunID:   batch.RunID,
		Sheet:   batch.Sheet,
		Domain:  batch.Domain,
		Headers: batch.Headers,
		Rows:    batch.Rows,
		Secret:  w.cfg.Secret,
		Chunk:   batch.Index,
		Chunks:  batch.Total,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return &models.FetchError{Op: "deliver", Endpoint: w.Name(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return &models.FetchError{Op: "deliver", Endpoint: w.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.NewStatusError("deliver", w.Name(), resp.StatusCode, body)
	}

	w.logger.DebugWithContext(ctx, "Пачка принята приёмником",
		interfaces.LogField{Key: "sheet", Value: batch.Sheet},
		interfaces.LogField{Key: "chunk", Value: batch.Index},
		interfaces.LogField{Key: "rows", Value: len(batch.Rows)},
	)
	return nil
}
