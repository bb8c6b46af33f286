package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/pkg/utils"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/schema"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/metrics"
	"github.com/google/uuid"
)

var (
	ErrRunInProgress = errors.New("sync run already in progress")
	ErrNoFlow        = errors.New("domain is not configured")
)

const (
	// probePageSize минимальный размер страницы для проверки версии эндпоинта
	probePageSize   = 1
	publishTimeout  = 10 * time.Second
	accountTemplate = "{account}"
)

// ListSource списочный источник домена с упорядоченными версиями эндпоинта
type ListSource struct {
	Name       string
	Candidates []Endpoint
	// PageSize 0 означает максимальный размер выбранной версии
	PageSize int
	// Expand разворачивает запись в несколько строк (отправление -> товары)
	Expand func(models.BaseRecord) []models.BaseRecord
}

// Flow описание выгрузки одного домена
type Flow struct {
	Domain models.Domain
	// Sheet имя листа; {account} заменяется именем аккаунта
	Sheet   string
	Sources []ListSource
	Details []DetailSource
	Schema  schema.Schema
}

// OrchestratorConfig параметры запуска
type OrchestratorConfig struct {
	// MaxPages предел страниц одного источника, 0 без ограничения
	MaxPages int
	// SalesLookbackDays окно продаж, если диапазон не задан
	SalesLookbackDays int
}

// SyncService интерфейс запуска синхронизации
type SyncService interface {
	// Run выполняет запрос и возвращает отчёт. Ошибки доменов попадают в отчёт
	Run(ctx context.Context, req models.SyncRequest) *models.RunReport

	// TryRun как Run, но возвращает ErrRunInProgress, если запуск уже идёт
	TryRun(ctx context.Context, req models.SyncRequest) (*models.RunReport, error)
}

// Orchestrator проводит домены через выборку, объединение, нормализацию и отправку
type Orchestrator struct {
	fetcher    PageFetcher
	details    DetailClient
	dispatcher *Dispatcher
	normalizer *Normalizer
	flows      map[models.Domain]Flow
	publishers []ReportPublisher
	cfg        OrchestratorConfig
	logger     interfaces.LoggerPort
	now        func() time.Time
	running    atomic.Bool
}

func NewOrchestrator(
	fetcher PageFetcher,
	details DetailClient,
	dispatcher *Dispatcher,
	flows []Flow,
	cfg OrchestratorConfig,
	logger interfaces.LoggerPort,
	publishers ...ReportPublisher,
) *Orchestrator {
	byDomain := make(map[models.Domain]Flow, len(flows))
	for _, f := range flows {
		byDomain[f.Domain] = f
	}
	return &Orchestrator{
		fetcher:    fetcher,
		details:    details,
		dispatcher: dispatcher,
		normalizer: NewNormalizer(logger),
		flows:      byDomain,
		publishers: publishers,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

func (o *Orchestrator) TryRun(ctx context.Context, req models.SyncRequest) (*models.RunReport, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer o.running.Store(false)
	return o.Run(ctx, req), nil
}

// Run обрабатывает аккаунты последовательно, домены в порядке запроса.
// Аккаунт без учётных данных пропускается целиком, остальные продолжают работу.
func (o *Orchestrator) Run(ctx context.Context, req models.SyncRequest) *models.RunReport {
	report := &models.RunReport{
		RunID:     uuid.New().String(),
		Trigger:   req.Trigger,
		StartedAt: o.now(),
	}
	ctx = context.WithValue(ctx, interfaces.RunIDKey, report.RunID)

	domains := req.Domains
	if len(domains) == 0 {
		domains = models.AllDomains()
	}

	o.logger.InfoWithContext(ctx, "Запуск синхронизации",
		interfaces.LogField{Key: "accounts", Value: len(req.Accounts)},
		interfaces.LogField{Key: "domains", Value: domains},
		interfaces.LogField{Key: "trigger", Value: req.Trigger},
	)

	resolver := NewResolver(o.logger)
	for _, account := range req.Accounts {
		if err := account.Validate(); err != nil {
			o.logger.ErrorWithContext(ctx, "Учётные данные не заданы, аккаунт пропущен",
				interfaces.LogField{Key: "account", Value: account.Label()},
				interfaces.LogField{Key: "key", Value: account.MaskedKey()},
			)
			for _, d := range domains {
				report.Results = append(report.Results, models.DomainResult{
					Account:   account.Label(),
					ClientID:  account.ClientID,
					Domain:    d,
					Error:     err.Error(),
					StartedAt: o.now(),
				})
			}
			continue
		}

		for _, d := range domains {
			if ctx.Err() != nil {
				report.Results = append(report.Results, models.DomainResult{
					Account: account.Label(), ClientID: account.ClientID, Domain: d,
					Error: ctx.Err().Error(), StartedAt: o.now(),
				})
				continue
			}
			report.Results = append(report.Results, o.syncDomain(ctx, resolver, account, d, req.Range))
		}
	}

	report.FinishedAt = o.now()
	status := "ok"
	if report.Failed() {
		status = "failed"
	}
	metrics.Runs.WithLabelValues(req.Trigger, status).Inc()
	o.publish(ctx, report)

	o.logger.InfoWithContext(ctx, "Синхронизация завершена",
		interfaces.LogField{Key: "duration", Value: report.FinishedAt.Sub(report.StartedAt).String()},
		interfaces.LogField{Key: "failed", Value: report.Failed()},
	)
	return report
}

func (o *Orchestrator) syncDomain(ctx context.Context, resolver *Resolver, account models.Account, domain models.Domain, rng *models.DateRange) (res models.DomainResult) {
	log := o.logger.WithTenant(account.ClientID).WithFields(
		interfaces.LogField{Key: "account", Value: account.Label()},
		interfaces.LogField{Key: "key", Value: account.MaskedKey()},
		interfaces.LogField{Key: "domain", Value: string(domain)},
	)

	res = models.DomainResult{
		Account:   account.Label(),
		ClientID:  account.ClientID,
		Domain:    domain,
		StartedAt: o.now(),
	}
	defer func() {
		res.Duration = o.now().Sub(res.StartedAt)
		status := "success"
		if !res.OK() {
			status = "error"
		}
		metrics.DomainDuration.WithLabelValues(string(domain), status).Observe(res.Duration.Seconds())
	}()

	flow, ok := o.flows[domain]
	if !ok {
		res.Error = ErrNoFlow.Error()
		log.ErrorWithContext(ctx, "Домен не настроен")
		return res
	}
	res.Sheet = strings.ReplaceAll(flow.Sheet, accountTemplate, account.Label())

	filter := models.Filter{Range: rng}
	if domain == models.DomainSales && filter.Range == nil {
		filter.Range = models.LastDays(o.now(), o.cfg.SalesLookbackDays)
	}

	log.InfoWithContext(ctx, "Выгрузка домена")

	merger := NewMerger(o.details, resolver, log)
	var (
		rows []models.NormalizedRow
		errs []error
	)
	for _, src := range flow.Sources {
		collected, err := o.collect(ctx, resolver, merger, account, flow, src, filter, &res)
		rows = append(rows, collected...)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
			log.ErrorWithContext(ctx, "Ошибка выгрузки источника",
				interfaces.LogField{Key: "source", Value: src.Name},
				interfaces.LogField{Key: "rows", Value: len(collected)},
				interfaces.LogField{Key: "pages", Value: res.Pages},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
	}
	if len(errs) > 0 {
		res.Error = errors.Join(errs...).Error()
		res.Partial = len(rows) > 0
	}
	res.Rows = len(rows)
	metrics.Rows.WithLabelValues(string(domain)).Add(float64(len(rows)))

	if len(rows) == 0 {
		log.WarnWithContext(ctx, "Нет данных для отправки")
		return res
	}

	outcomes := o.dispatcher.Dispatch(ctx, models.DispatchBatch{
		RunID:   runID(ctx),
		Sheet:   res.Sheet,
		Domain:  domain,
		Headers: flow.Schema.Headers(),
	}, rows)
	res.Chunks = len(outcomes)
	for _, out := range outcomes {
		if out.Failed() {
			res.FailedChunks++
		}
	}

	log.InfoWithContext(ctx, "Домен выгружен",
		interfaces.LogField{Key: "rows", Value: res.Rows},
		interfaces.LogField{Key: "pages", Value: res.Pages},
		interfaces.LogField{Key: "chunks", Value: res.Chunks},
		interfaces.LogField{Key: "failed_chunks", Value: res.FailedChunks},
		interfaces.LogField{Key: "degraded", Value: res.Degraded},
	)
	return res
}

// collect проходит по страницам источника. Выборка останавливается на пустой
// или неполной странице, при отсутствии следующего курсора и на первой ошибке.
// При ошибке возвращаются строки уже загруженных страниц.
func (o *Orchestrator) collect(
	ctx context.Context,
	resolver *Resolver,
	merger *Merger,
	account models.Account,
	flow Flow,
	src ListSource,
	filter models.Filter,
	res *models.DomainResult,
) ([]models.NormalizedRow, error) {
	op := fmt.Sprintf("%s.%s", flow.Domain, src.Name)
	ep, err := resolve(ctx, resolver, account.ClientID, op, src.Candidates, func(ctx context.Context, ep Endpoint) error {
		_, err := o.fetcher.FetchPage(ctx, account, ep, filter, utils.Cursor{}, probePageSize)
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Endpoints = append(res.Endpoints, ep.Name)

	details, skipped := detailsFor(flow.Details, ep.Keys)
	if len(skipped) > 0 {
		o.logger.InfoWithContext(ctx, "Детали не поддерживают ключи эндпоинта",
			interfaces.LogField{Key: "endpoint", Value: ep.Name},
			interfaces.LogField{Key: "keys", Value: string(ep.Keys)},
			interfaces.LogField{Key: "skipped", Value: skipped},
		)
	}

	size := src.PageSize
	if size <= 0 || (ep.MaxPageSize > 0 && size > ep.MaxPageSize) {
		size = ep.MaxPageSize
	}
	if size <= 0 {
		size = 100
	}

	var rows []models.NormalizedRow
	cursor := utils.Cursor{}
	for pages := 0; ; {
		if o.cfg.MaxPages > 0 && pages >= o.cfg.MaxPages {
			o.logger.WarnWithContext(ctx, "Достигнут предел страниц",
				interfaces.LogField{Key: "operation", Value: op},
				interfaces.LogField{Key: "pages", Value: pages},
			)
			break
		}

		page, err := o.fetcher.FetchPage(ctx, account, ep, filter, cursor, size)
		if err != nil {
			return rows, fmt.Errorf("%s page %d: %w", ep.Name, pages+1, err)
		}
		if len(page.Records) == 0 {
			break
		}
		pages++
		res.Pages++
		metrics.Pages.WithLabelValues(string(flow.Domain)).Inc()

		base := page.Records
		if src.Expand != nil {
			base = expandAll(base, src.Expand)
		}

		merged := merger.Merge(ctx, account, base, details)
		if len(merged.Failed) > 0 {
			res.Degraded = true
		}
		for _, b := range base {
			rec, ok := merged.Records[b.ID]
			if !ok {
				rec = skeleton(b)
			}
			rows = append(rows, o.normalizer.Normalize(rec, flow.Schema))
		}

		if len(page.Records) < size || !page.HasMore {
			break
		}
		if ep.Style.IsToken() && (page.Next.Token == "" || page.Next.Token == cursor.Token) {
			break
		}
		cursor = page.Next
	}

	return rows, nil
}

func expandAll(records []models.BaseRecord, expand func(models.BaseRecord) []models.BaseRecord) []models.BaseRecord {
	out := make([]models.BaseRecord, 0, len(records))
	for _, r := range records {
		out = append(out, expand(r)...)
	}
	return out
}

func (o *Orchestrator) publish(ctx context.Context, report *models.RunReport) {
	if len(o.publishers) == 0 {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	for _, p := range o.publishers {
		if err := p.Publish(pubCtx, report); err != nil {
			o.logger.ErrorWithContext(ctx, "Ошибка публикации отчёта",
				interfaces.LogField{Key: "publisher", Value: p.Name()},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
	}
}

func runID(ctx context.Context) string {
	id, _ := ctx.Value(interfaces.RunIDKey).(string)
	return id
}
