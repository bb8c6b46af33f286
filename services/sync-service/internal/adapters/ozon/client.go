package ozon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/pkg/utils"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/services"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api-seller.ozon.ru"

	headerClientID = "Client-Id"
	headerAPIKey   = "Api-Key"

	maxResponseBytes = 64 << 20
)

// ClientConfig настройки HTTP клиента Seller API
type ClientConfig struct {
	BaseURL   string
	UserAgent string
	ProxyURL  string
	// RequestsPerSecond темп запросов ко всем эндпоинтам, 0 без ограничения
	RequestsPerSecond float64
	// ProbeTimeout действует для запросов с минимальным размером страницы
	ProbeTimeout  time.Duration
	ListTimeout   time.Duration
	DetailTimeout time.Duration
}

// Client реализует services.PageFetcher и services.DetailClient поверх Seller API
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     interfaces.LoggerPort
}

func NewClient(cfg ClientConfig, logger interfaces.LoggerPort) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 20 * time.Second
	}
	if cfg.ListTimeout <= 0 {
		cfg.ListTimeout = 60 * time.Second
	}
	if cfg.DetailTimeout <= 0 {
		cfg.DetailTimeout = 60 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Transport: transport},
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// FetchPage загружает одну страницу списочного эндпоинта
func (c *Client) FetchPage(ctx context.Context, account models.Account, ep services.Endpoint, filter models.Filter, cursor utils.Cursor, pageSize int) (*models.Page, error) {
	body := ep.Build(filter, pageSize)
	for k, v := range cursor.Params(ep.Style) {
		body[k] = v
	}

	timeout := c.cfg.ListTimeout
	if pageSize <= 1 {
		timeout = c.cfg.ProbeTimeout
	}

	raw, err := c.post(ctx, account, "list", ep.Path, body, timeout)
	if err != nil {
		return nil, err
	}

	decoded, err := ep.Decode(raw)
	if err != nil {
		return nil, &models.FetchError{Op: "list", Endpoint: ep.Path, Body: models.TruncateBody(raw), Err: err}
	}

	records := decoded.Records
	if len(records) > pageSize {
		c.logger.WarnWithContext(ctx, "Поставщик вернул больше записей, чем запрошено",
			interfaces.LogField{Key: "endpoint", Value: ep.Path},
			interfaces.LogField{Key: "limit", Value: pageSize},
			interfaces.LogField{Key: "received", Value: len(records)},
		)
		records = records[:pageSize]
	}

	page := &models.Page{Records: make([]models.BaseRecord, 0, len(records))}
	for _, rec := range records {
		id, _ := rec.Lookup(ep.IDPath)
		page.Records = append(page.Records, models.BaseRecord{ID: models.IDString(id), Fields: rec})
	}

	page.HasMore = len(records) >= pageSize && (decoded.HasNext == nil || *decoded.HasNext)

	token := decoded.NextToken
	if token == "" && ep.Style == utils.StyleLastID && page.HasMore && len(page.Records) > 0 {
		token = page.Records[len(page.Records)-1].ID
	}
	page.Next = cursor.Advance(ep.Style, token, len(records))

	return page, nil
}

// FetchDetails загружает детали пачки идентификаторов одним запросом
func (c *Client) FetchDetails(ctx context.Context, account models.Account, ep services.DetailEndpoint, ids []string) (map[string]models.Record, error) {
	raw, err := c.post(ctx, account, "details", ep.Path, ep.Build(ids), c.cfg.DetailTimeout)
	if err != nil {
		return nil, err
	}

	records, err := ep.Decode(raw)
	if err != nil {
		return nil, &models.FetchError{Op: "details", Endpoint: ep.Path, Body: models.TruncateBody(raw), Err: err}
	}

	out := make(map[string]models.Record, len(records))
	for _, rec := range records {
		id, _ := rec.Lookup(ep.IDPath)
		if key := models.IDString(id); key != "" {
			out[key] = rec
		}
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, account models.Account, op, path string, body interface{}, timeout time.Duration) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &models.FetchError{Op: op, Endpoint: path, Err: err}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", path, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, &models.FetchError{Op: op, Endpoint: path, Err: err}
	}
	req.Header.Set(headerClientID, account.ClientID)
	req.Header.Set(headerAPIKey, account.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.VendorLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.VendorRequests.WithLabelValues(path, "error").Inc()
		return nil, &models.FetchError{Op: op, Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	metrics.VendorRequests.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()
	if err != nil {
		return nil, &models.FetchError{Op: op, Endpoint: path, Err: err}
	}

	c.logger.DebugWithContext(ctx, "Ответ Seller API",
		interfaces.LogField{Key: "endpoint", Value: path},
		interfaces.LogField{Key: "status", Value: resp.StatusCode},
		interfaces.LogField{Key: "account", Value: account.ClientID},
		interfaces.LogField{Key: "key", Value: account.MaskedKey()},
		interfaces.LogField{Key: "duration", Value: time.Since(start).String()},
	)

	if resp.StatusCode != http.StatusOK {
		return nil, models.NewStatusError(op, path, resp.StatusCode, raw)
	}
	return raw, nil
}
