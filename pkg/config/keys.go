package config

// EnvPrefix is passed to envconfig; every variable below carries the full
// name explicitly so the prefix only matters for auto-derived fields.
const EnvPrefix = "yori"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv                 = "YORI_APP_ENV"
	EnvPort                   = "YORI_APP_PORT"
	EnvDBDSN                  = "YORI_DB_DSN"
	EnvDBHost                 = "YORI_DB_HOST"
	EnvDBUser                 = "YORI_DB_USER"
	EnvDBName                 = "YORI_DB_NAME"
	EnvRedisURL               = "YORI_REDIS_URL"
	EnvJWTSecret              = "YORI_JWT_SECRET"
	EnvJWTIssuer              = "YORI_JWT_ISSUER"
	EnvJWTExpMins             = "YORI_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "YORI_REFRESH_TOKEN_TTL_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
