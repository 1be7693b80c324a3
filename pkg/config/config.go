package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Stripe       StripeConfig
	NETS         NETSConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Eventing     EventingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MOTORMART_APP_ENV" required:"true"`
	Port         string `envconfig:"MOTORMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MOTORMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MOTORMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MOTORMART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MOTORMART_DB_DSN"`
	Driver string `envconfig:"MOTORMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MOTORMART_DB_HOST"`
	LegacyPort     int    `envconfig:"MOTORMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MOTORMART_DB_USER"`
	LegacyPassword string `envconfig:"MOTORMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"MOTORMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"MOTORMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MOTORMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MOTORMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MOTORMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MOTORMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MOTORMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MOTORMART_REDIS_ADDR"`
	Password     string        `envconfig:"MOTORMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"MOTORMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MOTORMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MOTORMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MOTORMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MOTORMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MOTORMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"MOTORMART_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"MOTORMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"MOTORMART_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"MOTORMART_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// RateLimitConfig throttles the money-moving surfaces.
type RateLimitConfig struct {
	CheckoutWindow    time.Duration `envconfig:"MOTORMART_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutUserLimit int           `envconfig:"MOTORMART_RATE_LIMIT_CHECKOUT_USER_LIMIT" default:"10"`
	CheckoutIPLimit   int           `envconfig:"MOTORMART_RATE_LIMIT_CHECKOUT_IP_LIMIT" default:"60"`
	TopUpWindow       time.Duration `envconfig:"MOTORMART_RATE_LIMIT_TOPUP_WINDOW" default:"1m"`
	TopUpUserLimit    int           `envconfig:"MOTORMART_RATE_LIMIT_TOPUP_USER_LIMIT" default:"5"`
	TopUpIPLimit      int           `envconfig:"MOTORMART_RATE_LIMIT_TOPUP_IP_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MOTORMART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MOTORMART_AUTO_MIGRATE" default:"false"`
}

// CheckoutConfig holds the settlement pricing knobs. Basis points keep the
// fee and tax rates exact in integer math.
type CheckoutConfig struct {
	PlatformFeeBps   int `envconfig:"MOTORMART_CHECKOUT_PLATFORM_FEE_BPS" default:"1000"`
	TaxBps           int `envconfig:"MOTORMART_CHECKOUT_TAX_BPS" default:"1000"`
	SellerShareBps   int `envconfig:"MOTORMART_CHECKOUT_SELLER_SHARE_BPS" default:"9000"`
	MaxLinesPerOrder int `envconfig:"MOTORMART_CHECKOUT_MAX_LINES" default:"50"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"MOTORMART_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"MOTORMART_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"MOTORMART_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// NETSConfig configures the bank QR rail client and its status poller.
type NETSConfig struct {
	BaseURL      string        `envconfig:"MOTORMART_NETS_BASE_URL"`
	APIKey       string        `envconfig:"MOTORMART_NETS_API_KEY"`
	ProjectID    string        `envconfig:"MOTORMART_NETS_PROJECT_ID"`
	PollInterval time.Duration `envconfig:"MOTORMART_NETS_POLL_INTERVAL" default:"5s"`
	MaxPolls     int           `envconfig:"MOTORMART_NETS_MAX_POLLS" default:"60"`
	QRExpiry     time.Duration `envconfig:"MOTORMART_NETS_QR_EXPIRY" default:"5m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MOTORMART_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"MOTORMART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MOTORMART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"MOTORMART_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription       string `envconfig:"MOTORMART_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"MOTORMART_PUBSUB_NOTIFICATION_TOPIC" default:"mm-notification-events"`
	NotificationSubscription string `envconfig:"MOTORMART_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MOTORMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MOTORMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MOTORMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"MOTORMART_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
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
