package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Import   ImportConfig
	Sync     SyncConfig
	Recovery RecoveryConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Sync.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ZENTIK_APP_ENV" required:"true"`
	Port         string `envconfig:"ZENTIK_APP_PORT" default:"6041"`
	LogLevel     string `envconfig:"ZENTIK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ZENTIK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Path            string        `envconfig:"ZENTIK_DB_PATH" default:"zentik.db"`
	BusyTimeout     time.Duration `envconfig:"ZENTIK_DB_BUSY_TIMEOUT" default:"5s"`
	MaxOpenConns    int           `envconfig:"ZENTIK_DB_MAX_OPEN_CONNS" default:"1"`
	MaxIdleConns    int           `envconfig:"ZENTIK_DB_MAX_IDLE_CONNS" default:"1"`
	ConnMaxLifetime time.Duration `envconfig:"ZENTIK_DB_CONN_MAX_LIFETIME" default:"1h"`
}

// DSN renders the sqlite connection string with the busy timeout applied.
func (db DBConfig) DSN() string {
	timeoutMS := int64(db.BusyTimeout / time.Millisecond)
	if timeoutMS <= 0 {
		timeoutMS = 5000
	}
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprintf("%d", timeoutMS))
	q.Set("_journal_mode", "WAL")
	return fmt.Sprintf("%s?%s", db.Path, q.Encode())
}

type RedisConfig struct {
	URL          string        `envconfig:"ZENTIK_REDIS_URL"`
	Address      string        `envconfig:"ZENTIK_REDIS_ADDR"`
	Password     string        `envconfig:"ZENTIK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ZENTIK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ZENTIK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ZENTIK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ZENTIK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ZENTIK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ZENTIK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type ImportConfig struct {
	BatchSize  int           `envconfig:"ZENTIK_IMPORT_BATCH_SIZE" default:"100"`
	BatchDelay time.Duration `envconfig:"ZENTIK_IMPORT_BATCH_DELAY" default:"100ms"`
}

type SyncConfig struct {
	Enabled  bool          `envconfig:"ZENTIK_SYNC_ENABLED" default:"true"`
	Endpoint string        `envconfig:"ZENTIK_SYNC_ENDPOINT"`
	Timeout  time.Duration `envconfig:"ZENTIK_SYNC_TIMEOUT" default:"30s"`
}

func (s SyncConfig) validate() error {
	if s.Enabled && strings.TrimSpace(s.Endpoint) == "" {
		return fmt.Errorf("%s is required when startup sync is enabled", EnvSyncEndpoint)
	}
	return nil
}

type RecoveryConfig struct {
	Channel string `envconfig:"ZENTIK_RECOVERY_CHANNEL" default:"zentik-recovery"`
}
