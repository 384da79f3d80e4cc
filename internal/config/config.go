package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/otaviosalomao/FundValidation/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Feed      FeedConfig      `yaml:"feed"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Run       RunConfig       `yaml:"run"`
	Output    OutputConfig    `yaml:"output"`
	Recorder  struct {
		SQLitePath string `yaml:"sqlite_path" env:"RECORDER_SQLITE_PATH"`
	} `yaml:"recorder"`
	Telegram struct {
		BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
	} `yaml:"telegram"`
	Schedule struct {
		RunCron string `yaml:"run_cron" env:"CRON_RUN"`
	} `yaml:"schedule"`
	Proxy string `yaml:"proxy" env:"HTTPS_PROXY"`
}

type LogConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL"`
	Encoding    string `yaml:"encoding" env:"LOG_ENCODING"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT"`
}

type FeedConfig struct {
	BaseURL            string            `yaml:"base_url" env:"FEED_BASE_URL"`
	FixedParams        map[string]string `yaml:"fixed_params" env:"FEED_FIXED_PARAMS"`
	Timeout            time.Duration     `yaml:"timeout" env:"FEED_TIMEOUT"`
	MaxRetries         int               `yaml:"max_retries" env:"FEED_MAX_RETRIES"`
	RetryBackoff       time.Duration     `yaml:"retry_backoff" env:"FEED_RETRY_BACKOFF"`
	InsecureSkipVerify bool              `yaml:"insecure_skip_verify" env:"FEED_INSECURE_SKIP_VERIFY"`
	Concurrency        int               `yaml:"concurrency" env:"FEED_CONCURRENCY"`
}

type DatabaseConfig struct {
	Driver     string   `yaml:"driver" env:"DB_DRIVER"` // "postgres" or "sqlite"
	Postgres   DBConfig `yaml:"postgres"`
	SQLitePath string   `yaml:"sqlite_path" env:"DB_SQLITE_PATH"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	Name     string `yaml:"name" env:"DB_NAME"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE"`
	MinConns int    `yaml:"min_conns" env:"DB_MIN_CONNS"`
	MaxConns int    `yaml:"max_conns" env:"DB_MAX_CONNS"`
}

type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" env:"CACHE_ENABLED"`
	Backend       string        `yaml:"backend" env:"CACHE_BACKEND"` // "file" or "redis"
	Dir           string        `yaml:"dir" env:"CACHE_DIR"`
	RedisAddr     string        `yaml:"redis_addr" env:"CACHE_REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"CACHE_REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"CACHE_REDIS_DB"`
	FeedTTL       time.Duration `yaml:"feed_ttl" env:"CACHE_FEED_TTL"`
	DBTTL         time.Duration `yaml:"db_ttl" env:"CACHE_DB_TTL"`
}

type ReconcileConfig struct {
	// Tolerance is expressed in percentage points.
	Tolerance          float64        `yaml:"tolerance" env:"RECONCILE_TOLERANCE"`
	PeriodDescriptions map[int]string `yaml:"period_descriptions"`
}

type RunConfig struct {
	Instruments []int64 `yaml:"instruments" env:"RUN_INSTRUMENTS"`
	Periods     []int   `yaml:"periods" env:"RUN_PERIODS"`
}

type OutputConfig struct {
	FeedCSV   string `yaml:"feed_csv" env:"OUTPUT_FEED_CSV"`
	BankCSV   string `yaml:"bank_csv" env:"OUTPUT_BANK_CSV"`
	ReportCSV string `yaml:"report_csv" env:"OUTPUT_REPORT_CSV"`
}

// DefaultInstruments are the funds checked when none are configured.
var DefaultInstruments = []int64{314, 315, 316, 771, 1103, 1104, 1105, 1136, 1138, 1142, 1143, 1144, 1145, 1232, 1246, 1292}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	// Negative means unset, so an explicit 0 disables retries.
	cfg := &Config{}
	cfg.Feed.MaxRetries = -1

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "console"
	}
	if c.Feed.FixedParams == nil {
		c.Feed.FixedParams = map[string]string{
			"ProdutoSelecionado":     "4",
			"BenchmarkSelecionado":   "0",
			"MaximoPontosRetornados": "365",
		}
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = 30 * time.Second
	}
	if c.Feed.MaxRetries < 0 {
		c.Feed.MaxRetries = 5
	}
	if c.Feed.RetryBackoff == 0 {
		c.Feed.RetryBackoff = time.Second
	}
	if c.Feed.Concurrency == 0 {
		c.Feed.Concurrency = 4
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/fund_values.db"
	}
	if c.Database.Postgres.Port == 0 {
		c.Database.Postgres.Port = 5432
	}
	if c.Database.Postgres.SSLMode == "" {
		c.Database.Postgres.SSLMode = "prefer"
	}
	if c.Database.Postgres.MaxConns == 0 {
		c.Database.Postgres.MaxConns = 4
	}
	if c.Database.Postgres.MinConns == 0 {
		c.Database.Postgres.MinConns = 1
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "file"
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = "cache"
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "localhost:6379"
	}
	if c.Cache.FeedTTL == 0 {
		c.Cache.FeedTTL = 24 * time.Hour
	}
	if c.Cache.DBTTL == 0 {
		c.Cache.DBTTL = 12 * time.Hour
	}
	if c.Reconcile.Tolerance == 0 {
		c.Reconcile.Tolerance = 0.10
	}
	if len(c.Run.Instruments) == 0 {
		c.Run.Instruments = append([]int64(nil), DefaultInstruments...)
	}
	if len(c.Run.Periods) == 0 {
		for _, p := range model.AllPeriods {
			c.Run.Periods = append(c.Run.Periods, int(p))
		}
	}
	if c.Output.FeedCSV == "" {
		c.Output.FeedCSV = "output/feed_returns.csv"
	}
	if c.Output.BankCSV == "" {
		c.Output.BankCSV = "output/bank_returns.csv"
	}
	if c.Output.ReportCSV == "" {
		c.Output.ReportCSV = "output/reconciliation_report.csv"
	}
	if c.Schedule.RunCron == "" {
		c.Schedule.RunCron = "0 0 7 * * 1-5"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if err := c.ValidateCompare(); err != nil {
		return err
	}
	if err := c.ValidateCache(); err != nil {
		return err
	}
	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed.base_url is required")
	}
	if c.Feed.Concurrency < 1 {
		return fmt.Errorf("feed.concurrency must be positive")
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" || c.Database.Postgres.Name == "" {
			return fmt.Errorf("database.postgres host and name are required")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	for _, p := range c.Run.Periods {
		if !model.PeriodID(p).Valid() {
			return fmt.Errorf("run.periods: unknown period %d", p)
		}
	}
	return nil
}

// ValidateCompare checks what reconciling snapshots already on disk needs.
func (c *Config) ValidateCompare() error {
	if c.Reconcile.Tolerance <= 0 {
		return fmt.Errorf("reconcile.tolerance must be positive")
	}
	if c.Output.FeedCSV == "" || c.Output.BankCSV == "" || c.Output.ReportCSV == "" {
		return fmt.Errorf("output feed_csv, bank_csv and report_csv are required")
	}
	return nil
}

// ValidateCache checks the cache backend selection.
func (c *Config) ValidateCache() error {
	if c.Cache.Backend != "file" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be file or redis, got %q", c.Cache.Backend)
	}
	return nil
}

// ValidateServe checks the extra fields required by the long-running mode.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}

// PeriodIDs returns the configured periods as typed ids.
func (c *Config) PeriodIDs() []model.PeriodID {
	ids := make([]model.PeriodID, len(c.Run.Periods))
	for i, p := range c.Run.Periods {
		ids[i] = model.PeriodID(p)
	}
	return ids
}

// PeriodDescriptions merges configured labels over the defaults.
func (c *Config) PeriodDescriptions() map[model.PeriodID]string {
	out := make(map[model.PeriodID]string, len(model.DefaultPeriodDescriptions))
	for k, v := range model.DefaultPeriodDescriptions {
		out[k] = v
	}
	for k, v := range c.Reconcile.PeriodDescriptions {
		out[model.PeriodID(k)] = v
	}
	return out
}
