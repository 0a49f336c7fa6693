package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable read by the service.
	EnvPrefix = "labelworks"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv   = "LABELWORKS_APP_ENV"
	EnvDBDSN    = "LABELWORKS_DB_DSN"
	EnvRedisURL = "LABELWORKS_REDIS_URL"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Stripe       StripeConfig
	Postmark     PostmarkConfig
	Billing      BillingConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DB.DSN == "" {
		return nil, fmt.Errorf("%s is required", EnvDBDSN)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LABELWORKS_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"LABELWORKS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LABELWORKS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LABELWORKS_SERVICE_KIND" default:"cron-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"LABELWORKS_DB_DSN"`
	Driver string `envconfig:"LABELWORKS_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"LABELWORKS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LABELWORKS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LABELWORKS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LABELWORKS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LABELWORKS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LABELWORKS_REDIS_ADDR"`
	Password     string        `envconfig:"LABELWORKS_REDIS_PASSWORD"`
	DB           int           `envconfig:"LABELWORKS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LABELWORKS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LABELWORKS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LABELWORKS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LABELWORKS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LABELWORKS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey  string        `envconfig:"LABELWORKS_STRIPE_API_KEY"`
	Env     string        `envconfig:"LABELWORKS_STRIPE_ENV" default:"test"`
	Timeout time.Duration `envconfig:"LABELWORKS_STRIPE_TIMEOUT" default:"15s"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type PostmarkConfig struct {
	ServerToken  string `envconfig:"LABELWORKS_POSTMARK_SERVER_TOKEN"`
	AccountToken string `envconfig:"LABELWORKS_POSTMARK_ACCOUNT_TOKEN"`
	FromEmail    string `envconfig:"LABELWORKS_POSTMARK_FROM_EMAIL" default:"billing@labelworks.io"`
}

type BillingConfig struct {
	CoolingOffDays        int           `envconfig:"LABELWORKS_BILLING_COOLING_OFF_DAYS" default:"3"`
	TrialDays             int           `envconfig:"LABELWORKS_BILLING_TRIAL_DAYS" default:"14"`
	Currency              string        `envconfig:"LABELWORKS_BILLING_CURRENCY" default:"USD"`
	UsageWarningThreshold int           `envconfig:"LABELWORKS_BILLING_USAGE_WARNING_THRESHOLD" default:"80"`
	UsageWarningInterval  time.Duration `envconfig:"LABELWORKS_BILLING_USAGE_WARNING_INTERVAL" default:"168h"`
	PlanPriceMap          string        `envconfig:"LABELWORKS_BILLING_PLAN_PRICE_MAP" default:"Pro:price_pro_monthly,Enterprise:price_enterprise_monthly"`
}

// PlanPrices parses the configured plan name to gateway price reference map.
// The raw format is "PlanName:price_ref" pairs separated by commas.
func (b BillingConfig) PlanPrices() (map[string]string, error) {
	prices := make(map[string]string)
	if strings.TrimSpace(b.PlanPriceMap) == "" {
		return prices, nil
	}
	for _, pair := range strings.Split(b.PlanPriceMap, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, price, found := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		price = strings.TrimSpace(price)
		if !found || name == "" || price == "" {
			return nil, fmt.Errorf("invalid plan price mapping %q", pair)
		}
		prices[name] = price
	}
	return prices, nil
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"LABELWORKS_CRON_INTERVAL" default:"1h"`
	BatchLimit int           `envconfig:"LABELWORKS_CRON_BATCH_LIMIT" default:"250"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LABELWORKS_AUTO_MIGRATE" default:"false"`
}
