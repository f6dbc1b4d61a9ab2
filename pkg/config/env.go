package config

const (
	EnvPrefix = "TUTORHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv               = "TUTORHUB_APP_ENV"
	EnvPort                 = "TUTORHUB_APP_PORT"
	EnvDBDSN                = "TUTORHUB_DB_DSN"
	EnvDBHost               = "TUTORHUB_DB_HOST"
	EnvDBUser               = "TUTORHUB_DB_USER"
	EnvDBName               = "TUTORHUB_DB_NAME"
	EnvRedisURL             = "TUTORHUB_REDIS_URL"
	EnvJWTSecret            = "TUTORHUB_JWT_SECRET"
	EnvJWTIssuer            = "TUTORHUB_JWT_ISSUER"
	EnvStripeWebhookSecret  = "TUTORHUB_STRIPE_WEBHOOK_SECRET"
	EnvStripeAPIKey         = "TUTORHUB_STRIPE_API_KEY"
	EnvUseSQLite            = "TUTORHUB_USE_SQLITE"
	EnvNotificationsWorkers = "TUTORHUB_NOTIFICATIONS_WORKERS"
	EnvReconcileGracePeriod = "TUTORHUB_RECONCILE_GRACE_PERIOD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
