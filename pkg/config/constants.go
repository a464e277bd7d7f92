package config

const (
	EnvPrefix = "SEEDSHOP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "SEEDSHOP_APP_ENV"
	EnvPort     = "SEEDSHOP_APP_PORT"
	EnvDBDSN    = "SEEDSHOP_DB_DSN"
	EnvDBHost   = "SEEDSHOP_DB_HOST"
	EnvDBUser   = "SEEDSHOP_DB_USER"
	EnvDBName   = "SEEDSHOP_DB_NAME"
	EnvRedisURL = "SEEDSHOP_REDIS_URL"

	EnvJWTSecret              = "SEEDSHOP_JWT_SECRET"
	EnvJWTIssuer              = "SEEDSHOP_JWT_ISSUER"
	EnvJWTExpMins             = "SEEDSHOP_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "SEEDSHOP_REFRESH_TOKEN_TTL_MINUTES"

	EnvShippingFlatCents  = "SEEDSHOP_SHIPPING_FLAT_CENTS"
	EnvFreeShippingCents  = "SEEDSHOP_FREE_SHIPPING_THRESHOLD_CENTS"
	EnvTaxRate            = "SEEDSHOP_TAX_RATE"
	EnvTaxedStates        = "SEEDSHOP_TAXED_STATES"
	EnvCartSessionTTL     = "SEEDSHOP_CART_SESSION_TTL"
	EnvGCPProjectID       = "SEEDSHOP_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic  = "SEEDSHOP_PUBSUB_ORDERS_TOPIC"
	EnvSquareAccessToken  = "SEEDSHOP_SQUARE_ACCESS_TOKEN"
	EnvSquareLocationID   = "SEEDSHOP_SQUARE_LOCATION_ID"
	EnvStripeAPIKey       = "SEEDSHOP_STRIPE_API_KEY"
	EnvCheckoutProcessors = "SEEDSHOP_CHECKOUT_PROCESSORS"
	EnvBigQueryDataset    = "SEEDSHOP_BIGQUERY_DATASET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
