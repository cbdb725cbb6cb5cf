package config

const (
	EnvPrefix = "ARTMARKET"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "ARTMARKET_APP_ENV"
	EnvPort      = "ARTMARKET_APP_PORT"
	EnvDBDSN     = "ARTMARKET_DB_DSN"
	EnvDBHost    = "ARTMARKET_DB_HOST"
	EnvDBUser    = "ARTMARKET_DB_USER"
	EnvDBName    = "ARTMARKET_DB_NAME"
	EnvUseSQLite = "ARTMARKET_USE_SQLITE"
	EnvRedisURL  = "ARTMARKET_REDIS_URL"
	EnvJWTSecret = "ARTMARKET_JWT_SECRET"
	EnvJWTIssuer = "ARTMARKET_JWT_ISSUER"

	EnvDeliveryAvgHours  = "ARTMARKET_DELIVERY_AVG_HOURS"
	EnvDeliveryAvgRating = "ARTMARKET_DELIVERY_AVG_RATING"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
