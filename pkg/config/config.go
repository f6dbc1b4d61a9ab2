package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Stripe        StripeConfig
	Notifications NotificationsConfig
	Reconcile     ReconcileConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TUTORHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"TUTORHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TUTORHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TUTORHUB_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"TUTORHUB_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TUTORHUB_DB_DSN"`
	Driver string `envconfig:"TUTORHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TUTORHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"TUTORHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TUTORHUB_DB_USER"`
	LegacyPassword string `envconfig:"TUTORHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"TUTORHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"TUTORHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TUTORHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TUTORHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TUTORHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TUTORHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TUTORHUB_REDIS_URL"`
	Address      string        `envconfig:"TUTORHUB_REDIS_ADDR"`
	Password     string        `envconfig:"TUTORHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"TUTORHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TUTORHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TUTORHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TUTORHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TUTORHUB_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"TUTORHUB_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TUTORHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TUTORHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TUTORHUB_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey          string `envconfig:"TUTORHUB_STRIPE_API_KEY"`
	WebhookSecret   string `envconfig:"TUTORHUB_STRIPE_WEBHOOK_SECRET"`
	Env             string `envconfig:"TUTORHUB_STRIPE_ENV" default:"test"`
	SuccessURL      string `envconfig:"TUTORHUB_STRIPE_SUCCESS_URL" default:"http://localhost:3000/student/schedule?checkout=success"`
	CancelURL       string `envconfig:"TUTORHUB_STRIPE_CANCEL_URL" default:"http://localhost:3000/student/schedule?checkout=cancelled"`
	DefaultCurrency string `envconfig:"TUTORHUB_STRIPE_CURRENCY" default:"usd"`
	// MaxWebhookBytes caps the raw webhook body read before verification.
	MaxWebhookBytes int64 `envconfig:"TUTORHUB_STRIPE_MAX_WEBHOOK_BYTES" default:"65536"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// Currency returns the lower-cased ISO currency used for new checkouts.
func (s StripeConfig) Currency() string {
	currency := strings.TrimSpace(strings.ToLower(s.DefaultCurrency))
	if currency == "" {
		return "usd"
	}
	return currency
}

type NotificationsConfig struct {
	Workers        int           `envconfig:"TUTORHUB_NOTIFICATIONS_WORKERS" default:"4"`
	QueueSize      int           `envconfig:"TUTORHUB_NOTIFICATIONS_QUEUE_SIZE" default:"256"`
	MaxAttempts    uint64        `envconfig:"TUTORHUB_NOTIFICATIONS_MAX_ATTEMPTS" default:"5"`
	BaseBackoff    time.Duration `envconfig:"TUTORHUB_NOTIFICATIONS_BASE_BACKOFF" default:"200ms"`
	EnqueueTimeout time.Duration `envconfig:"TUTORHUB_NOTIFICATIONS_ENQUEUE_TIMEOUT" default:"250ms"`
	DeliverTimeout time.Duration `envconfig:"TUTORHUB_NOTIFICATIONS_DELIVER_TIMEOUT" default:"5s"`
	PushChannel    string        `envconfig:"TUTORHUB_NOTIFICATIONS_PUSH_CHANNEL" default:"notifications"`
	RetentionDays  int           `envconfig:"TUTORHUB_NOTIFICATIONS_RETENTION_DAYS" default:"90"`
}

type ReconcileConfig struct {
	Interval        time.Duration `envconfig:"TUTORHUB_RECONCILE_INTERVAL" default:"5m"`
	BatchLimit      int           `envconfig:"TUTORHUB_RECONCILE_BATCH_LIMIT" default:"200"`
	GracePeriod     time.Duration `envconfig:"TUTORHUB_RECONCILE_GRACE_PERIOD" default:"2m"`
	WebhookEventTTL time.Duration `envconfig:"TUTORHUB_RECONCILE_WEBHOOK_EVENT_TTL" default:"72h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TUTORHUB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TUTORHUB_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = "file:tutorhub.db?_busy_timeout=5000"
		}
		return nil
	}
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
