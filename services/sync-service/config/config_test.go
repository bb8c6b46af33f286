package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
appName: sync-test
ozon:
  clientId: "111"
  apiKey: key-111
  accounts:
    - name: second
      clientId: "222"
      apiKey: key-222
    - name: duplicate
      clientId: "111"
      apiKey: other
sync:
  domains: stock,catalog
  interval: 2h
  sheets:
    stock: "Остатки {account}"
sink:
  webhookUrl: https://script.example/exec
  chunkSize: 500
schemas:
  stock:
    - name: SKU
      sources: [sku]
    - name: Остаток
      kind: number
      skipZero: true
      sources: ["match(stocks; type=fbo; present)", free_to_sell_amount]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sync-test", cfg.AppName)
	assert.Equal(t, 2*time.Hour, cfg.Sync.Interval)
	assert.Equal(t, 500, cfg.Sink.ChunkSize)
	assert.Equal(t, SinkWebhook, cfg.Sink.Type)
	assert.Equal(t, "O1", cfg.Sheets.StartCell)
	assert.Equal(t, 30, cfg.Sync.SalesLookbackDays)

	domains, err := cfg.Domains()
	require.NoError(t, err)
	assert.Equal(t, []models.Domain{models.DomainCatalog, models.DomainStock}, domains)

	sheets, err := cfg.DomainSheets()
	require.NoError(t, err)
	assert.Equal(t, "Остатки {account}", sheets[models.DomainStock])

	schemas, err := cfg.DomainSchemas()
	require.NoError(t, err)
	s, err := schema.FromSpecs(models.DomainStock, schemas[models.DomainStock])
	require.NoError(t, err)
	assert.Equal(t, []string{"SKU", "Остаток"}, s.Headers())
	assert.True(t, s.Columns[1].SkipZero)
	assert.Equal(t, schema.KindNumber, s.Columns[1].Kind)
}

func TestAccountsMergeAndDeduplicate(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	accounts := cfg.Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, "111", accounts[0].ClientID)
	assert.Equal(t, "key-111", accounts[0].APIKey)
	assert.Equal(t, "second", accounts[1].Name)
	assert.Equal(t, "key-222", accounts[1].APIKey)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("OZON_CLIENT_ID", "999")
	t.Setenv("OZON_API_KEY", "env-key")
	t.Setenv("SPREADSHEET_ID", "sheet-1")
	t.Setenv("GOOGLE_CREDS_JSON", `{"type":"service_account"}`)
	t.Setenv("PROXY_URL", "http://proxy:3128")
	t.Setenv("SYNC_INTERVAL", "30m")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, SinkSheets, cfg.Sink.Type)
	assert.Equal(t, "sheet-1", cfg.Sheets.SpreadsheetID)
	assert.Equal(t, "http://proxy:3128", cfg.Ozon.ProxyURL)
	assert.Equal(t, 30*time.Minute, cfg.Sync.Interval)
	require.NoError(t, cfg.Validate())

	accounts := cfg.Accounts()
	require.Len(t, accounts, 1)
	assert.Equal(t, "999", accounts[0].ClientID)
}

func TestAccountsEmptyWithoutCredentials(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Accounts())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, sampleYAML))
		require.NoError(t, err)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		err    error
	}{
		{"unknown sink", func(c *Config) { c.Sink.Type = "ftp" }, ErrUnknownSinkType},
		{"webhook without url", func(c *Config) { c.Sink.WebhookURL = "" }, ErrWebhookURLMissing},
		{"sheets without id", func(c *Config) { c.Sink.Type = SinkSheets }, ErrSpreadsheetMissing},
		{"chunk size", func(c *Config) { c.Sink.ChunkSize = 0 }, ErrInvalidChunkSize},
		{"interval", func(c *Config) { c.Sync.Interval = 0 }, ErrInvalidInterval},
		{"domain", func(c *Config) { c.Sync.Domains = "orders" }, models.ErrUnknownDomain},
		{"schema", func(c *Config) {
			c.Schemas = map[string][]schema.ColumnSpec{"catalog": {{Name: "x", Sources: []string{"a b"}}}}
		}, schema.ErrInvalidSource},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.err)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	pg := PostgresConfig{
		Host:     "db",
		Port:     5432,
		User:     "sync",
		Password: "p@ss word",
		DBName:   "gomarket",
		SSLMode:  "disable",
		Timeout:  1500 * time.Millisecond,
		PoolSize: 8,
	}

	dsn, err := pg.DSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://sync:p%40ss%20word@db:5432/gomarket?connect_timeout=2&pool_max_conns=8&sslmode=disable", dsn)

	pg.Password, pg.Timeout, pg.PoolSize = "", 0, 0
	dsn, err = pg.DSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://sync@db:5432/gomarket?sslmode=disable", dsn)
}

func TestPostgresDSNValidation(t *testing.T) {
	valid := PostgresConfig{Host: "h", Port: 5432, User: "u", DBName: "d", SSLMode: "require"}

	cases := []struct {
		name   string
		mutate func(*PostgresConfig)
		err    error
	}{
		{"host", func(p *PostgresConfig) { p.Host = "" }, ErrPostgresHost},
		{"port", func(p *PostgresConfig) { p.Port = 70000 }, ErrPostgresPort},
		{"user", func(p *PostgresConfig) { p.User = "" }, ErrPostgresUser},
		{"database", func(p *PostgresConfig) { p.DBName = "" }, ErrPostgresDatabase},
		{"sslmode", func(p *PostgresConfig) { p.SSLMode = "sometimes" }, ErrPostgresSSLMode},
		{"timeout", func(p *PostgresConfig) { p.Timeout = -time.Second }, ErrPostgresTimeout},
		{"pool", func(p *PostgresConfig) { p.PoolSize = -1 }, ErrPostgresPoolSize},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pg := valid
			tc.mutate(&pg)
			_, err := pg.DSN()
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestValidateChecksPostgresWhenEnabled(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	cfg.Postgres.Enabled = true
	require.NoError(t, cfg.Validate())

	cfg.Postgres.SSLMode = ""
	assert.ErrorIs(t, cfg.Validate(), ErrPostgresSSLMode)
}
