package config

// EnvPrefix is passed to envconfig; every field carries an explicit key.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

const (
	EnvAppEnv      = "LABFUNDS_APP_ENV"
	EnvPort        = "LABFUNDS_APP_PORT"
	EnvDBDSN       = "LABFUNDS_DB_DSN"
	EnvDBDriver    = "LABFUNDS_DB_DRIVER"
	EnvDBHost      = "LABFUNDS_DB_HOST"
	EnvDBUser      = "LABFUNDS_DB_USER"
	EnvDBName      = "LABFUNDS_DB_NAME"
	EnvRedisURL    = "LABFUNDS_REDIS_URL"
	EnvLockBackend = "LABFUNDS_LOCK_BACKEND"
	EnvCurrency    = "LABFUNDS_CURRENCY"
	EnvMaxAttachMB = "LABFUNDS_MAX_ATTACHMENT_MB"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
