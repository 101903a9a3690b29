package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App         AppConfig
	DB          DBConfig
	Redis       RedisConfig
	Pricing     PricingConfig
	Reconcile   ReconcileConfig
	Marketplace MarketplaceConfig
	Cron        CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VELES_APP_ENV" required:"true"`
	Port         string `envconfig:"VELES_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VELES_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VELES_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VELES_DB_DSN"`
	Driver string `envconfig:"VELES_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VELES_DB_HOST"`
	LegacyPort     int    `envconfig:"VELES_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VELES_DB_USER"`
	LegacyPassword string `envconfig:"VELES_DB_PASSWORD"`
	LegacyName     string `envconfig:"VELES_DB_NAME"`
	LegacySSLMode  string `envconfig:"VELES_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VELES_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VELES_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VELES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VELES_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"VELES_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VELES_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VELES_REDIS_ADDR"`
	Password     string        `envconfig:"VELES_REDIS_PASSWORD"`
	DB           int           `envconfig:"VELES_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VELES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VELES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VELES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VELES_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VELES_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// PricingConfig supplies fallbacks for the order minimums when the
// settings store has no override rows.
type PricingConfig struct {
	DefaultMinRetailOrder    string `envconfig:"VELES_MIN_RETAIL_ORDER" default:"0"`
	DefaultMinWholesaleOrder string `envconfig:"VELES_MIN_WHOLESALE_ORDER" default:"5000"`
}

type ReconcileConfig struct {
	// MaxChangePercent caps a single-step price correction. Large jumps
	// trip marketplace anti-fraud quarantines, so corrections walk toward
	// the target across runs instead.
	MaxChangePercent  float64       `envconfig:"VELES_RECONCILE_MAX_CHANGE_PERCENT" default:"25"`
	AboveMaxTolerance float64       `envconfig:"VELES_RECONCILE_ABOVE_MAX_TOLERANCE" default:"50"`
	FetchConcurrency  int           `envconfig:"VELES_RECONCILE_FETCH_CONCURRENCY" default:"8"`
	ReportCacheTTL    time.Duration `envconfig:"VELES_RECONCILE_REPORT_TTL" default:"24h"`
}

type MarketplaceConfig struct {
	RequestTimeout time.Duration `envconfig:"VELES_MARKETPLACE_REQUEST_TIMEOUT" default:"30s"`

	WildberriesPricesBaseURL string `envconfig:"VELES_WB_PRICES_BASE_URL" default:"https://discounts-prices-api.wildberries.ru"`
	WildberriesStatsBaseURL  string `envconfig:"VELES_WB_STATS_BASE_URL" default:"https://statistics-api.wildberries.ru"`
	OzonBaseURL              string `envconfig:"VELES_OZON_BASE_URL" default:"https://api-seller.ozon.ru"`
}

type CronConfig struct {
	SweepInterval time.Duration `envconfig:"VELES_CRON_SWEEP_INTERVAL" default:"10m"`
	LockTTL       time.Duration `envconfig:"VELES_CRON_LOCK_TTL" default:"15m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

const (
	EnvPrefix = "veles"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv   = "VELES_APP_ENV"
	EnvPort     = "VELES_APP_PORT"
	EnvDBDSN    = "VELES_DB_DSN"
	EnvDBHost   = "VELES_DB_HOST"
	EnvDBUser   = "VELES_DB_USER"
	EnvDBName   = "VELES_DB_NAME"
	EnvRedisURL = "VELES_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
