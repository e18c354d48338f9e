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
	DB           DBConfig
	Redis        RedisConfig
	Locks        LocksConfig
	Finance      FinanceConfig
	Storage      StorageConfig
	Kafka        KafkaConfig
	Cron         CronConfig
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
	if err := cfg.Locks.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LABFUNDS_APP_ENV" required:"true"`
	Port         string `envconfig:"LABFUNDS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LABFUNDS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LABFUNDS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"LABFUNDS_LOG_WARN_STACK" default:"false"`
	// PlatformPort is the bare PORT a hosting platform injects.
	PlatformPort string `envconfig:"PORT"`

	CORSOrigins     []string      `envconfig:"LABFUNDS_CORS_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `envconfig:"LABFUNDS_SHUTDOWN_TIMEOUT" default:"15s"`
}

// ListenAddr prefers the platform-assigned port over the configured one.
func (a AppConfig) ListenAddr() string {
	if port := strings.TrimSpace(a.PlatformPort); port != "" {
		return ":" + port
	}
	return ":" + a.Port
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LABFUNDS_DB_DSN"`
	Driver string `envconfig:"LABFUNDS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LABFUNDS_DB_HOST"`
	LegacyPort     int    `envconfig:"LABFUNDS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LABFUNDS_DB_USER"`
	LegacyPassword string `envconfig:"LABFUNDS_DB_PASSWORD"`
	LegacyName     string `envconfig:"LABFUNDS_DB_NAME"`
	LegacySSLMode  string `envconfig:"LABFUNDS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LABFUNDS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LABFUNDS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LABFUNDS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LABFUNDS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver targets SQLite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"LABFUNDS_REDIS_URL"`
	Address      string        `envconfig:"LABFUNDS_REDIS_ADDR"`
	Password     string        `envconfig:"LABFUNDS_REDIS_PASSWORD"`
	DB           int           `envconfig:"LABFUNDS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LABFUNDS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LABFUNDS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LABFUNDS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LABFUNDS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LABFUNDS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

// LocksConfig selects how ledger-mutating operations are serialized.
type LocksConfig struct {
	Backend      string        `envconfig:"LABFUNDS_LOCK_BACKEND" default:"local"`
	TTL          time.Duration `envconfig:"LABFUNDS_LOCK_TTL" default:"30s"`
	WaitTimeout  time.Duration `envconfig:"LABFUNDS_LOCK_WAIT_TIMEOUT" default:"10s"`
	PollInterval time.Duration `envconfig:"LABFUNDS_LOCK_POLL_INTERVAL" default:"50ms"`
}

func (l LocksConfig) UsesRedis() bool {
	return strings.EqualFold(l.Backend, LockBackendRedis)
}

func (l LocksConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(l.Backend)) {
	case LockBackendLocal, LockBackendRedis:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvLockBackend, LockBackendLocal, LockBackendRedis)
	}
}

type FinanceConfig struct {
	Currency            string   `envconfig:"LABFUNDS_CURRENCY" default:"TWD"`
	MaxAttachmentMB     int      `envconfig:"LABFUNDS_MAX_ATTACHMENT_MB" default:"5"`
	AttachmentMimeTypes []string `envconfig:"LABFUNDS_ATTACHMENT_MIME_TYPES" default:"image/jpeg,image/jpg,image/png,application/pdf"`
	SalaryPaymentDay    int      `envconfig:"LABFUNDS_SALARY_PAYMENT_DAY" default:"5"`
	MaxRequestMB        int      `envconfig:"LABFUNDS_MAX_REQUEST_MB" default:"32"`
}

// MaxAttachmentBytes converts the configured MiB limit into bytes.
func (f FinanceConfig) MaxAttachmentBytes() int64 {
	if f.MaxAttachmentMB <= 0 {
		return 0
	}
	return int64(f.MaxAttachmentMB) << 20
}

// MaxRequestBytes caps a whole multipart expense submission.
func (f FinanceConfig) MaxRequestBytes() int64 {
	if f.MaxRequestMB <= 0 {
		return 32 << 20
	}
	return int64(f.MaxRequestMB) << 20
}

type StorageConfig struct {
	AttachmentDir string `envconfig:"LABFUNDS_ATTACHMENT_DIR" default:"./data/attachments"`
}

// KafkaConfig enables relaying notifications to a Kafka topic.
type KafkaConfig struct {
	Brokers      []string      `envconfig:"LABFUNDS_KAFKA_BROKERS"`
	Topic        string        `envconfig:"LABFUNDS_KAFKA_NOTIFICATIONS_TOPIC" default:"lab-notifications"`
	WriteTimeout time.Duration `envconfig:"LABFUNDS_KAFKA_WRITE_TIMEOUT" default:"5s"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// CronConfig drives the maintenance worker.
type CronConfig struct {
	Interval                  time.Duration `envconfig:"LABFUNDS_CRON_INTERVAL" default:"24h"`
	LockTTL                   time.Duration `envconfig:"LABFUNDS_CRON_LOCK_TTL" default:"30m"`
	NotificationRetentionDays int           `envconfig:"LABFUNDS_NOTIFICATION_RETENTION_DAYS" default:"90"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LABFUNDS_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
