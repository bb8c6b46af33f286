package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики для Prometheus
var (
	VendorRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_vendor_requests_total",
		Help: "Количество запросов к API поставщика",
	}, []string{"endpoint", "status"})

	VendorLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_vendor_request_duration_seconds",
		Help:    "Длительность запросов к API поставщика",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	EndpointFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_endpoint_fallbacks_total",
		Help: "Количество отклонённых кандидатов при выборе версии эндпоинта",
	}, []string{"operation", "endpoint"})

	Pages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_pages_total",
		Help: "Количество загруженных страниц",
	}, []string{"domain"})

	Rows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_rows_total",
		Help: "Количество нормализованных строк",
	}, []string{"domain"})

	Chunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_chunks_total",
		Help: "Количество отправленных в приёмник частей",
	}, []string{"domain", "status"})

	DomainDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_domain_duration_seconds",
		Help:    "Длительность синхронизации домена",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"domain", "status"})
)

// HTTP метрики API
var (
	HTTPDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_durations_seconds",
		Help:    "Длительность HTTP запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method", "status"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Общее количество HTTP запросов",
	}, []string{"path", "method", "status"})

	HTTPActiveRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "http_active_requests",
		Help: "Количество активных HTTP запросов",
	})

	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_runs_total",
		Help: "Количество запусков синхронизации",
	}, []string{"trigger", "status"})
)
