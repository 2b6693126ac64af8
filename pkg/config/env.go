package config

const (
	EnvPrefix = "BAKEHOUSE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "BAKEHOUSE_APP_ENV"
	EnvPort   = "BAKEHOUSE_APP_PORT"

	EnvDBDSN  = "BAKEHOUSE_DB_DSN"
	EnvDBHost = "BAKEHOUSE_DB_HOST"
	EnvDBUser = "BAKEHOUSE_DB_USER"
	EnvDBName = "BAKEHOUSE_DB_NAME"

	EnvRedisURL               = "BAKEHOUSE_REDIS_URL"
	EnvJWTSecret              = "BAKEHOUSE_JWT_SECRET"
	EnvJWTIssuer              = "BAKEHOUSE_JWT_ISSUER"
	EnvJWTExpMins             = "BAKEHOUSE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "BAKEHOUSE_REFRESH_TOKEN_TTL_MINUTES"

	EnvUPIPayeeID      = "BAKEHOUSE_UPI_PAYEE_ID"
	EnvActionSecret    = "BAKEHOUSE_PAYMENTS_ACTION_SECRET"
	EnvActionTokenTTL  = "BAKEHOUSE_PAYMENTS_ACTION_TOKEN_TTL"
	EnvQRCacheBackend  = "BAKEHOUSE_PAYMENTS_QR_CACHE"
	EnvTrustOnSubmit   = "BAKEHOUSE_PAYMENTS_TRUST_ON_SUBMIT"
	EnvMailOperator    = "BAKEHOUSE_MAIL_OPERATOR"
	EnvCheckoutTaxRate = "BAKEHOUSE_CHECKOUT_TAX_RATE"

	QRCacheMemory = "memory"
	QRCacheRedis  = "redis"
)

