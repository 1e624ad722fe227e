package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Webhook      WebhookConfig
	Ledger       LedgerConfig
	Cron         CronConfig
	Idempotency  IdempotencyConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Ledger.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AFFILIATE_APP_ENV" required:"true"`
	Port         string `envconfig:"AFFILIATE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"AFFILIATE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AFFILIATE_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"AFFILIATE_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"AFFILIATE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"AFFILIATE_DB_DSN"`
	Driver string `envconfig:"AFFILIATE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AFFILIATE_DB_HOST"`
	LegacyPort     int    `envconfig:"AFFILIATE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AFFILIATE_DB_USER"`
	LegacyPassword string `envconfig:"AFFILIATE_DB_PASSWORD"`
	LegacyName     string `envconfig:"AFFILIATE_DB_NAME"`
	LegacySSLMode  string `envconfig:"AFFILIATE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AFFILIATE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AFFILIATE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AFFILIATE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AFFILIATE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite engine.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"AFFILIATE_REDIS_URL"`
	Address      string        `envconfig:"AFFILIATE_REDIS_ADDR"`
	Password     string        `envconfig:"AFFILIATE_REDIS_PASSWORD"`
	DB           int           `envconfig:"AFFILIATE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AFFILIATE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AFFILIATE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AFFILIATE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AFFILIATE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AFFILIATE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"AFFILIATE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AFFILIATE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"AFFILIATE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type WebhookConfig struct {
	Secret          string            `envconfig:"AFFILIATE_WEBHOOK_SECRET" required:"true"`
	ProviderSecrets map[string]string `envconfig:"AFFILIATE_WEBHOOK_PROVIDER_SECRETS"`
	MaxDrift        time.Duration     `envconfig:"AFFILIATE_WEBHOOK_MAX_DRIFT" default:"5m"`
	MaxBodyBytes    int64             `envconfig:"AFFILIATE_WEBHOOK_MAX_BODY_BYTES" default:"1048576"`
}

// SecretFor returns the signing secret for provider, falling back to the shared secret.
func (w WebhookConfig) SecretFor(provider string) string {
	key := strings.TrimSpace(provider)
	for name, secret := range w.ProviderSecrets {
		if strings.EqualFold(name, key) && secret != "" {
			return secret
		}
	}
	return w.Secret
}

type LedgerConfig struct {
	HoldPeriod          time.Duration `envconfig:"AFFILIATE_LEDGER_HOLD_PERIOD" default:"168h"`
	Currency            string        `envconfig:"AFFILIATE_LEDGER_CURRENCY" default:"EUR"`
	DerivationBatchSize int           `envconfig:"AFFILIATE_LEDGER_DERIVATION_BATCH_SIZE" default:"200"`
	ReplayGrace         time.Duration `envconfig:"AFFILIATE_LEDGER_REPLAY_GRACE" default:"10m"`
	ReplayBatchSize     int           `envconfig:"AFFILIATE_LEDGER_REPLAY_BATCH_SIZE" default:"50"`
}

func (l LedgerConfig) validate() error {
	if l.HoldPeriod < 0 {
		return fmt.Errorf("%s must not be negative", EnvLedgerHoldPeriod)
	}
	if strings.TrimSpace(l.Currency) == "" {
		return fmt.Errorf("%s must not be empty", EnvLedgerCurrency)
	}
	return nil
}

type CronConfig struct {
	Interval time.Duration `envconfig:"AFFILIATE_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"AFFILIATE_CRON_LOCK_TTL" default:"10m"`
}

type IdempotencyConfig struct {
	WithdrawalTTL time.Duration `envconfig:"AFFILIATE_IDEMPOTENCY_WITHDRAWAL_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AFFILIATE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
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
