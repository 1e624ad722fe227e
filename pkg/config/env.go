package config

const EnvPrefix = "AFFILIATE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	DefaultSQLiteDSN = "file:affiliate-ledger.db?_busy_timeout=5000"
)

const (
	EnvAppEnv  = "AFFILIATE_APP_ENV"
	EnvAppPort = "AFFILIATE_APP_PORT"

	EnvDBDSN    = "AFFILIATE_DB_DSN"
	EnvDBDriver = "AFFILIATE_DB_DRIVER"
	EnvDBHost   = "AFFILIATE_DB_HOST"
	EnvDBUser   = "AFFILIATE_DB_USER"
	EnvDBName   = "AFFILIATE_DB_NAME"

	EnvRedisURL = "AFFILIATE_REDIS_URL"

	EnvJWTSecret = "AFFILIATE_JWT_SECRET"
	EnvJWTIssuer = "AFFILIATE_JWT_ISSUER"

	EnvWebhookSecret          = "AFFILIATE_WEBHOOK_SECRET"
	EnvWebhookProviderSecrets = "AFFILIATE_WEBHOOK_PROVIDER_SECRETS"

	EnvLedgerHoldPeriod = "AFFILIATE_LEDGER_HOLD_PERIOD"
	EnvLedgerCurrency   = "AFFILIATE_LEDGER_CURRENCY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
