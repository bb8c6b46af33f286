package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/adapters/storage"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/services"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/utils"
	"github.com/go-chi/render"
)

var errUnknownAccountID = errors.New("unknown account")

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// ReportReader источник последнего отчёта
type ReportReader interface {
	Last(ctx context.Context, tenantID string) (*models.RunReport, error)
}

// RunHistory источник истории запусков
type RunHistory interface {
	RecentRuns(ctx context.Context, limit int) ([]postgres.RunSummary, error)
}

// SyncHandler обработчик запросов к синхронизации
type SyncHandler struct {
	sync     services.SyncService
	accounts []models.Account
	domains  []models.Domain
	reports  ReportReader
	history  RunHistory
	logger   interfaces.LoggerPort
}

// NewSyncHandler создает обработчик. reports и history могут быть nil
func NewSyncHandler(
	sync services.SyncService,
	accounts []models.Account,
	domains []models.Domain,
	reports ReportReader,
	history RunHistory,
	logger interfaces.LoggerPort,
) *SyncHandler {
	return &SyncHandler{
		sync:     sync,
		accounts: accounts,
		domains:  domains,
		reports:  reports,
		history:  history,
		logger:   logger,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func renderError(w http.ResponseWriter, r *http.Request, code int, kind, message string) {
	render.Status(r, code)
	render.JSON(w, r, errorResponse{Error: kind, Code: code, Message: message})
}

// Alive ответ на корневой запрос
func (h *SyncHandler) Alive(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{Success: true, Data: map[string]string{"status": "alive"}})
}

// Sync запускает синхронизацию и возвращает отчёт.
// Параметры: domain (через запятую), account (client id или имя), from и to (YYYY-MM-DD).
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	req, status, err := h.parseRequest(r)
	if err != nil {
		kind := "bad_request"
		if status == http.StatusInternalServerError {
			kind = "not_configured"
		}
		h.logger.WarnWithContext(r.Context(), "Запрос синхронизации отклонён",
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, status, kind, err.Error())
		return
	}

	report, err := h.sync.TryRun(r.Context(), req)
	if errors.Is(err, services.ErrRunInProgress) {
		renderError(w, r, http.StatusConflict, "conflict", "Синхронизация уже выполняется")
		return
	}
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка синхронизации",
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка синхронизации")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: !report.Failed(),
		Data:    report,
		Meta:    report.Totals(),
	})
}

func (h *SyncHandler) parseRequest(r *http.Request) (models.SyncRequest, int, error) {
	q := r.URL.Query()
	req := models.SyncRequest{Trigger: "http"}

	if len(h.accounts) == 0 {
		return req, http.StatusInternalServerError, utils.ErrNoAccounts
	}

	req.Domains = h.domains
	if raw := q.Get("domain"); raw != "" {
		domains, err := models.ParseDomains(raw)
		if err != nil {
			return req, http.StatusBadRequest, err
		}
		req.Domains = domains
	}

	req.Accounts = h.accounts
	if raw := strings.TrimSpace(q.Get("account")); raw != "" {
		req.Accounts = h.matchAccounts(raw)
		if len(req.Accounts) == 0 {
			return req, http.StatusBadRequest, errUnknownAccount(raw)
		}
	}

	from, to := q.Get("from"), q.Get("to")
	switch {
	case from == "" && to == "":
	case from == "" || to == "":
		return req, http.StatusBadRequest, fmt.Errorf("%w: both from and to are required", models.ErrInvalidDateRange)
	default:
		rng, err := models.ParseDateRange(from, to)
		if err != nil {
			return req, http.StatusBadRequest, err
		}
		req.Range = rng
	}
	return req, http.StatusOK, nil
}

// matchAccounts аккаунты с client id или именем raw
func (h *SyncHandler) matchAccounts(raw string) []models.Account {
	var out []models.Account
	for _, a := range h.accounts {
		if a.ClientID == raw || a.Name == raw {
			out = append(out, a)
		}
	}
	return out
}

func errUnknownAccount(account string) error {
	return fmt.Errorf("%w: %q", errUnknownAccountID, account)
}

// Last возвращает отчёт последнего запуска, общий или по аккаунту
func (h *SyncHandler) Last(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		renderError(w, r, http.StatusNotFound, "not_found", "Кэш отчётов отключён")
		return
	}

	tenant := strings.TrimSpace(r.URL.Query().Get("account"))
	if tenant != "" {
		matched := h.matchAccounts(tenant)
		if len(matched) == 0 {
			renderError(w, r, http.StatusNotFound, "not_found", errUnknownAccount(tenant).Error())
			return
		}
		tenant = matched[0].ClientID
	}

	report, err := h.reports.Last(r.Context(), tenant)
	if errors.Is(err, interfaces.ErrCacheMiss) {
		renderError(w, r, http.StatusNotFound, "not_found", "Отчёт не найден")
		return
	}
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка чтения отчёта",
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка чтения отчёта")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{Success: !report.Failed(), Data: report, Meta: report.Totals()})
}

// Runs возвращает историю запусков
func (h *SyncHandler) Runs(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		renderError(w, r, http.StatusNotFound, "not_found", "История запусков отключена")
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultRunsLimit
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs, err := h.history.RecentRuns(r.Context(), limit)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка чтения истории",
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка чтения истории")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{Success: true, Data: runs, Meta: map[string]int{"limit": limit}})
}
