package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/schema"
	"github.com/spf13/viper"
)

const (
	SinkWebhook = "webhook"
	SinkSheets  = "sheets"
)

var (
	ErrUnknownSinkType    = errors.New("unknown sink type")
	ErrWebhookURLMissing  = errors.New("webhook sink requires sink.webhookUrl")
	ErrSpreadsheetMissing = errors.New("sheets sink requires sheets.spreadsheetId and sheets.credentialsJson")
	ErrInvalidChunkSize   = errors.New("sink.chunkSize must be positive")
	ErrInvalidInterval    = errors.New("sync.interval must be positive")

	ErrPostgresHost     = errors.New("postgres.host is empty")
	ErrPostgresPort     = errors.New("postgres.port is invalid")
	ErrPostgresUser     = errors.New("postgres.user is empty")
	ErrPostgresDatabase = errors.New("postgres.dbname is empty")
	ErrPostgresSSLMode  = errors.New("postgres.sslmode is invalid")
	ErrPostgresTimeout  = errors.New("postgres.timeout is invalid")
	ErrPostgresPoolSize = errors.New("postgres.poolSize is invalid")
)

var sslModes = map[string]struct{}{
	"disable": {}, "allow": {}, "prefer": {}, "require": {}, "verify-ca": {}, "verify-full": {},
}

// Config содержит все настройки сервиса
type Config struct {
	AppName  string
	Version  string
	LogLevel string
	ENV      string

	Server struct {
		Host            string
		Port            int
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration // синхронный /sync держит соединение до конца запуска
		ShutdownTimeout time.Duration
	}

	Ozon struct {
		BaseURL           string
		ClientID          string
		APIKey            string
		Accounts          []models.Account
		RequestsPerSecond float64
		PageSize          int // 0 означает максимум версии эндпоинта
		ProbeTimeout      time.Duration
		ListTimeout       time.Duration
		DetailTimeout     time.Duration
		UserAgent         string
		ProxyURL          string
	}

	Sync struct {
		Domains           string // через запятую, пусто означает все домены
		Interval          time.Duration
		SalesLookbackDays int
		MaxPages          int
		Sheets            map[string]string
	}

	Sink struct {
		Type         string
		WebhookURL   string
		Secret       string
		ChunkSize    int
		ChunkTimeout time.Duration
		Pause        time.Duration
	}

	Sheets struct {
		SpreadsheetID   string
		CredentialsJSON string
		StartCell       string
	}

	// Schemas переопределяет колонки домена
	Schemas map[string][]schema.ColumnSpec

	Redis struct {
		Enabled   bool
		Host      string
		Port      int
		Password  string
		DB        int
		ReportTTL time.Duration
	}

	Postgres PostgresConfig

	Kafka struct {
		Enabled  bool
		Brokers  []string
		Topic    string
		ClientID string
	}

	Metrics struct {
		Enabled  bool
		Port     int
		Endpoint string
	}

	Security struct {
		JWTSecret     string
		JWTIssuer     string
		JWTExpiration time.Duration
	}
}

// PostgresConfig подключение к истории запусков
type PostgresConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Timeout  time.Duration
	PoolSize int // размер пула соединений
}

// DSN строка подключения pgxpool в виде URL.
// connect_timeout округляется вверх до секунды, ноль в pgx означает ожидание без предела
func (p PostgresConfig) DSN() (string, error) {
	switch {
	case p.Host == "":
		return "", ErrPostgresHost
	case p.Port <= 0 || p.Port > 65535:
		return "", ErrPostgresPort
	case p.User == "":
		return "", ErrPostgresUser
	case p.DBName == "":
		return "", ErrPostgresDatabase
	case p.Timeout < 0:
		return "", ErrPostgresTimeout
	case p.PoolSize < 0:
		return "", ErrPostgresPoolSize
	}
	if _, ok := sslModes[p.SSLMode]; !ok {
		return "", fmt.Errorf("%w: %q", ErrPostgresSSLMode, p.SSLMode)
	}

	query := url.Values{"sslmode": {p.SSLMode}}
	if p.Timeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(int(math.Ceil(p.Timeout.Seconds()))))
	}
	if p.PoolSize > 0 {
		query.Set("pool_max_conns", strconv.Itoa(p.PoolSize))
	}

	user := url.User(p.User)
	if p.Password != "" {
		user = url.UserPassword(p.User, p.Password)
	}
	dsn := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.DBName,
		RawQuery: query.Encode(),
	}
	return dsn.String(), nil
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" && strings.ContainsAny(configPath, "/.") {
		v.SetConfigFile(configPath)
	} else {
		configFile := "config"
		if configPath != "" {
			configFile = configPath
		}
		v.SetConfigName(configFile)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		// без файла используются только переменные окружения
	}

	setDefaults(v)
	if err := bindEnvVariables(v); err != nil {
		return nil, fmt.Errorf("ошибка привязки переменных окружения: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка десериализации конфигурации: %w", err)
	}

	cfg.Sink.Type = strings.ToLower(strings.TrimSpace(cfg.Sink.Type))
	if cfg.Sink.Type == "" {
		cfg.Sink.Type = SinkWebhook
		if cfg.Sheets.SpreadsheetID != "" && cfg.Sheets.CredentialsJSON != "" {
			cfg.Sink.Type = SinkSheets
		}
	}

	return &cfg, nil
}

// setDefaults устанавливает значения по умолчанию
func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "sync-service")
	v.SetDefault("version", "1.0.0")
	v.SetDefault("logLevel", "info")
	v.SetDefault("env", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "30m")
	v.SetDefault("server.shutdownTimeout", "10s")

	v.SetDefault("ozon.baseUrl", "https://api-seller.ozon.ru")
	v.SetDefault("ozon.clientId", "")
	v.SetDefault("ozon.apiKey", "")
	v.SetDefault("ozon.requestsPerSecond", 2)
	v.SetDefault("ozon.pageSize", 0)
	v.SetDefault("ozon.probeTimeout", "20s")
	v.SetDefault("ozon.listTimeout", "60s")
	v.SetDefault("ozon.detailTimeout", "60s")
	v.SetDefault("ozon.userAgent", "gomarket-sync/1.0")
	v.SetDefault("ozon.proxyUrl", "")

	v.SetDefault("sync.domains", "")
	v.SetDefault("sync.interval", "6h")
	v.SetDefault("sync.salesLookbackDays", 30)
	v.SetDefault("sync.maxPages", 1000)

	v.SetDefault("sink.type", "")
	v.SetDefault("sink.webhookUrl", "")
	v.SetDefault("sink.secret", "")
	v.SetDefault("sink.chunkSize", 1000)
	v.SetDefault("sink.chunkTimeout", "60s")
	v.SetDefault("sink.pause", "1s")

	v.SetDefault("sheets.spreadsheetId", "")
	v.SetDefault("sheets.credentialsJson", "")
	v.SetDefault("sheets.startCell", "O1")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.reportTtl", "168h")

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "postgres")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timeout", "5s")
	v.SetDefault("postgres.poolSize", 4)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "gomarket.sync.events")
	v.SetDefault("kafka.clientId", "sync-service")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.endpoint", "/metrics")

	v.SetDefault("security.jwtSecret", "")
	v.SetDefault("security.jwtIssuer", "gomarket-sync")
	v.SetDefault("security.jwtExpiration", "24h")
}

// bindEnvVariables привязывает переменные окружения к конфигурации
func bindEnvVariables(v *viper.Viper) error {
	bindings := map[string][]string{
		"appName":  {"APP_NAME"},
		"version":  {"APP_VERSION"},
		"logLevel": {"LOG_LEVEL"},
		"env":      {"APP_ENV"},

		"server.host":            {"SERVER_HOST"},
		"server.port":            {"SERVER_PORT", "PORT"},
		"server.readTimeout":     {"SERVER_READ_TIMEOUT"},
		"server.writeTimeout":    {"SERVER_WRITE_TIMEOUT"},
		"server.shutdownTimeout": {"SERVER_SHUTDOWN_TIMEOUT"},

		"ozon.baseUrl":           {"OZON_BASE_URL"},
		"ozon.clientId":          {"OZON_CLIENT_ID"},
		"ozon.apiKey":            {"OZON_API_KEY"},
		"ozon.requestsPerSecond": {"OZON_REQUESTS_PER_SECOND"},
		"ozon.pageSize":          {"OZON_PAGE_SIZE"},
		"ozon.probeTimeout":      {"OZON_PROBE_TIMEOUT"},
		"ozon.listTimeout":       {"OZON_LIST_TIMEOUT"},
		"ozon.detailTimeout":     {"OZON_DETAIL_TIMEOUT"},
		"ozon.userAgent":         {"OZON_USER_AGENT"},
		"ozon.proxyUrl":          {"PROXY_URL", "OZON_PROXY_URL"},

		"sync.domains":           {"SYNC_DOMAINS"},
		"sync.interval":          {"SYNC_INTERVAL"},
		"sync.salesLookbackDays": {"SYNC_SALES_LOOKBACK_DAYS"},
		"sync.maxPages":          {"SYNC_MAX_PAGES"},

		"sink.type":         {"SINK_TYPE"},
		"sink.webhookUrl":   {"WEBHOOK_URL", "SINK_WEBHOOK_URL"},
		"sink.secret":       {"WEBHOOK_SECRET", "SINK_SECRET"},
		"sink.chunkSize":    {"SINK_CHUNK_SIZE"},
		"sink.chunkTimeout": {"SINK_CHUNK_TIMEOUT"},
		"sink.pause":        {"SINK_PAUSE"},

		"sheets.spreadsheetId":   {"SPREADSHEET_ID"},
		"sheets.credentialsJson": {"GOOGLE_CREDS_JSON"},
		"sheets.startCell":       {"SHEETS_START_CELL"},

		"redis.enabled":   {"REDIS_ENABLED"},
		"redis.host":      {"REDIS_HOST"},
		"redis.port":      {"REDIS_PORT"},
		"redis.password":  {"REDIS_PASSWORD"},
		"redis.db":        {"REDIS_DB"},
		"redis.reportTtl": {"REDIS_REPORT_TTL"},

		"postgres.enabled":  {"POSTGRES_ENABLED"},
		"postgres.host":     {"POSTGRES_HOST"},
		"postgres.port":     {"POSTGRES_PORT"},
		"postgres.user":     {"POSTGRES_USER"},
		"postgres.password": {"POSTGRES_PASSWORD"},
		"postgres.dbname":   {"POSTGRES_DBNAME"},
		"postgres.sslmode":  {"POSTGRES_SSLMODE"},
		"postgres.timeout":  {"POSTGRES_TIMEOUT"},
		"postgres.poolSize": {"POSTGRES_POOL_SIZE"},

		"kafka.enabled":  {"KAFKA_ENABLED"},
		"kafka.brokers":  {"KAFKA_BROKERS"},
		"kafka.topic":    {"KAFKA_TOPIC"},
		"kafka.clientId": {"KAFKA_CLIENT_ID"},

		"metrics.enabled":  {"METRICS_ENABLED"},
		"metrics.port":     {"METRICS_PORT"},
		"metrics.endpoint": {"METRICS_ENDPOINT"},

		"security.jwtSecret":     {"JWT_SECRET"},
		"security.jwtIssuer":     {"JWT_ISSUER"},
		"security.jwtExpiration": {"JWT_EXPIRATION"},
	}

	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	switch c.Sink.Type {
	case SinkWebhook:
		if c.Sink.WebhookURL == "" {
			return ErrWebhookURLMissing
		}
	case SinkSheets:
		if c.Sheets.SpreadsheetID == "" || c.Sheets.CredentialsJSON == "" {
			return ErrSpreadsheetMissing
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSinkType, c.Sink.Type)
	}

	if c.Sink.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.Sync.Interval <= 0 {
		return ErrInvalidInterval
	}
	if _, err := c.Domains(); err != nil {
		return err
	}
	if _, err := c.DomainSchemas(); err != nil {
		return err
	}
	if c.Postgres.Enabled {
		if _, err := c.Postgres.DSN(); err != nil {
			return err
		}
	}
	return nil
}

// Accounts объединяет аккаунт по умолчанию со списком ozon.accounts.
// Дубликаты по ClientID отбрасываются, первый выигрывает
func (c *Config) Accounts() []models.Account {
	var out []models.Account
	seen := make(map[string]struct{})

	add := func(a models.Account) {
		a.ClientID = strings.TrimSpace(a.ClientID)
		a.APIKey = strings.TrimSpace(a.APIKey)
		if a.ClientID == "" && a.APIKey == "" {
			return
		}
		if a.ClientID != "" {
			if _, ok := seen[a.ClientID]; ok {
				return
			}
			seen[a.ClientID] = struct{}{}
		}
		out = append(out, a)
	}

	add(models.Account{Name: "default", ClientID: c.Ozon.ClientID, APIKey: c.Ozon.APIKey})
	for _, a := range c.Ozon.Accounts {
		add(a)
	}
	return out
}

// Domains домены из sync.domains
func (c *Config) Domains() ([]models.Domain, error) {
	return models.ParseDomains(c.Sync.Domains)
}

// DomainSheets имена листов по доменам из sync.sheets
func (c *Config) DomainSheets() (map[models.Domain]string, error) {
	out := make(map[models.Domain]string, len(c.Sync.Sheets))
	for k, v := range c.Sync.Sheets {
		d, err := models.ParseDomain(k)
		if err != nil {
			return nil, fmt.Errorf("sync.sheets: %w", err)
		}
		out[d] = v
	}
	return out, nil
}

// DomainSchemas переопределения колонок по доменам
func (c *Config) DomainSchemas() (map[models.Domain][]schema.ColumnSpec, error) {
	out := make(map[models.Domain][]schema.ColumnSpec, len(c.Schemas))
	for k, specs := range c.Schemas {
		d, err := models.ParseDomain(k)
		if err != nil {
			return nil, fmt.Errorf("schemas: %w", err)
		}
		if _, err := schema.FromSpecs(d, specs); err != nil {
			return nil, err
		}
		out[d] = specs
	}
	return out, nil
}
