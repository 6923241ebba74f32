package config

const EnvPrefix = "PARTQUOTE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv         = "PARTQUOTE_APP_ENV"
	EnvPort           = "PARTQUOTE_PORT"
	EnvDBPath         = "PARTQUOTE_DB_PATH"
	EnvMigrationsDir  = "PARTQUOTE_MIGRATIONS_DIR"
	EnvAdminEmail     = "PARTQUOTE_ADMIN_EMAIL"
	EnvAdminPassword  = "PARTQUOTE_ADMIN_PASSWORD"
	EnvSessionSecret  = "PARTQUOTE_SESSION_SECRET"
	EnvLogLevel       = "PARTQUOTE_LOG_LEVEL"
	EnvLogFormat      = "PARTQUOTE_LOG_FORMAT"
	EnvLogWarnStack   = "PARTQUOTE_LOG_WARN_STACK"
	EnvModelManifest  = "PARTQUOTE_MODEL_MANIFEST"
	EnvModelURL       = "PARTQUOTE_MODEL_URL"
	EnvModelTimeout   = "PARTQUOTE_MODEL_TIMEOUT"
	EnvAggregate      = "PARTQUOTE_AGGREGATE"
	EnvFallback       = "PARTQUOTE_FALLBACK"
	EnvPriceDecimals  = "PARTQUOTE_PRICE_DECIMALS"
	EnvLogSinkURL     = "PARTQUOTE_LOG_SINK_URL"
	EnvLogSinkRetries = "PARTQUOTE_LOG_SINK_RETRIES"
)
