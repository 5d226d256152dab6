package config

// EnvPrefix is the envconfig prefix for every variable.
const EnvPrefix = "CRAFTVAULT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "CRAFTVAULT_APP_ENV"
	EnvPort                   = "CRAFTVAULT_APP_PORT"
	EnvDBDSN                  = "CRAFTVAULT_DB_DSN"
	EnvDBHost                 = "CRAFTVAULT_DB_HOST"
	EnvDBUser                 = "CRAFTVAULT_DB_USER"
	EnvDBName                 = "CRAFTVAULT_DB_NAME"
	EnvRedisURL               = "CRAFTVAULT_REDIS_URL"
	EnvJWTSecret              = "CRAFTVAULT_JWT_SECRET"
	EnvJWTIssuer              = "CRAFTVAULT_JWT_ISSUER"
	EnvJWTExpMins             = "CRAFTVAULT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CRAFTVAULT_REFRESH_TOKEN_TTL_MINUTES"
	EnvRconServers            = "CRAFTVAULT_RCON_SERVERS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
