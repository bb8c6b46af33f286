package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
)

const lastReportKey = "sync:last_report"

// ReportCache хранит последний отчёт целиком и срезы по каждому аккаунту
type ReportCache struct {
	cache interfaces.CachePort
	ttl   time.Duration
}

func NewReportCache(cache interfaces.CachePort, ttl time.Duration) *ReportCache {
	return &ReportCache{cache: cache, ttl: ttl}
}

func (c *ReportCache) Name() string { return "cache" }

// Publish сохраняет отчёт. Пустой tenant означает отчёт по всем аккаунтам
func (c *ReportCache) Publish(ctx context.Context, report *models.RunReport) error {
	if err := c.store(ctx, report, ""); err != nil {
		return err
	}

	seen := make(map[string]struct{})
	for _, res := range report.Results {
		if res.ClientID == "" {
			continue
		}
		if _, ok := seen[res.ClientID]; ok {
			continue
		}
		seen[res.ClientID] = struct{}{}
		if err := c.store(ctx, report.ForAccount(res.ClientID), res.ClientID); err != nil {
			return err
		}
	}
	return nil
}

// Last возвращает последний отчёт; interfaces.ErrCacheMiss, если запусков не было
func (c *ReportCache) Last(ctx context.Context, tenantID string) (*models.RunReport, error) {
	raw, err := c.cache.GetWithTenant(ctx, lastReportKey, tenantID)
	if err != nil {
		return nil, err
	}
	var report models.RunReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode cached report: %w", err)
	}
	return &report, nil
}

func (c *ReportCache) store(ctx context.Context, report *models.RunReport, tenantID string) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := c.cache.SetWithTenant(ctx, lastReportKey, raw, tenantID, c.ttl); err != nil {
		return fmt.Errorf("store report: %w", err)
	}
	return nil
}
