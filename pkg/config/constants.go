package config

// EnvPrefix is the envconfig prefix shared by every VESTRA_* variable.
const EnvPrefix = "VESTRA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "VESTRA_APP_ENV"
	EnvPort                   = "VESTRA_APP_PORT"
	EnvDBDSN                  = "VESTRA_DB_DSN"
	EnvDBHost                 = "VESTRA_DB_HOST"
	EnvDBUser                 = "VESTRA_DB_USER"
	EnvDBName                 = "VESTRA_DB_NAME"
	EnvRedisURL               = "VESTRA_REDIS_URL"
	EnvJWTSecret              = "VESTRA_JWT_SECRET"
	EnvJWTIssuer              = "VESTRA_JWT_ISSUER"
	EnvJWTExpMins             = "VESTRA_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "VESTRA_REFRESH_TOKEN_TTL_MINUTES"
	EnvDeliveryFee            = "VESTRA_CHECKOUT_DELIVERY_FEE"
	EnvCheckoutCurrency       = "VESTRA_CHECKOUT_CURRENCY"
	EnvStripeAPIKey           = "VESTRA_STRIPE_API_KEY"
)

// legacyDBEnvVars are the discrete connection variables accepted when the
// full DSN is not provided.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
