package config

// EnvPrefix is the envconfig prefix; individual fields carry fully
// qualified names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "MOTORMART_APP_ENV"
	EnvPort   = "MOTORMART_APP_PORT"

	EnvDBDSN  = "MOTORMART_DB_DSN"
	EnvDBHost = "MOTORMART_DB_HOST"
	EnvDBUser = "MOTORMART_DB_USER"
	EnvDBName = "MOTORMART_DB_NAME"

	EnvRedisURL = "MOTORMART_REDIS_URL"

	EnvJWTSecret              = "MOTORMART_JWT_SECRET"
	EnvJWTIssuer              = "MOTORMART_JWT_ISSUER"
	EnvJWTExpMins             = "MOTORMART_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "MOTORMART_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID = "MOTORMART_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic     = "MOTORMART_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub       = "MOTORMART_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubNotificationSub = "MOTORMART_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvNETSBaseURL           = "MOTORMART_NETS_BASE_URL"
)

// legacyDBEnvVars are the discrete connection variables accepted when
// MOTORMART_DB_DSN is not set.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
