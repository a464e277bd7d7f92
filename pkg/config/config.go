package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Cart         CartConfig
	Checkout     CheckoutConfig
	Square       SquareConfig
	Stripe       StripeConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Analytics    AnalyticsConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	CORS         CORSConfig
	RateLimit    AuthRateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SEEDSHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"SEEDSHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SEEDSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SEEDSHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SEEDSHOP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SEEDSHOP_DB_DSN"`
	Driver string `envconfig:"SEEDSHOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SEEDSHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"SEEDSHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SEEDSHOP_DB_USER"`
	LegacyPassword string `envconfig:"SEEDSHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"SEEDSHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"SEEDSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SEEDSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SEEDSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SEEDSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SEEDSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SEEDSHOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SEEDSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"SEEDSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"SEEDSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SEEDSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SEEDSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SEEDSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SEEDSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SEEDSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SEEDSHOP_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SEEDSHOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SEEDSHOP_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SEEDSHOP_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SEEDSHOP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SEEDSHOP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SEEDSHOP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SEEDSHOP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SEEDSHOP_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SEEDSHOP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SEEDSHOP_AUTO_MIGRATE" default:"false"`
}

type CartConfig struct {
	SessionTTL  time.Duration `envconfig:"SEEDSHOP_CART_SESSION_TTL" default:"720h"`
	MaxLines    int           `envconfig:"SEEDSHOP_CART_MAX_LINES" default:"100"`
	MaxQuantity int           `envconfig:"SEEDSHOP_CART_MAX_QUANTITY" default:"999"`
}

// CheckoutConfig holds the shipping and tax policy applied when an order leaves the cart.
type CheckoutConfig struct {
	ShippingFlatCents          int64         `envconfig:"SEEDSHOP_SHIPPING_FLAT_CENTS" default:"495"`
	FreeShippingThresholdCents int64         `envconfig:"SEEDSHOP_FREE_SHIPPING_THRESHOLD_CENTS" default:"0"`
	TaxRate                    string        `envconfig:"SEEDSHOP_TAX_RATE" default:"0"`
	TaxedStates                []string      `envconfig:"SEEDSHOP_TAXED_STATES"`
	Processors                 []string      `envconfig:"SEEDSHOP_CHECKOUT_PROCESSORS" default:"square"`
	PaymentIdempotencyTTL      time.Duration `envconfig:"SEEDSHOP_PAYMENT_IDEMPOTENCY_TTL" default:"24h"`
}

// TaxRateDecimal parses TaxRate. Load has already rejected malformed values.
func (c CheckoutConfig) TaxRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

// Taxes reports whether orders shipped to the given "US-OR" style region are taxed.
func (c CheckoutConfig) Taxes(region string) bool {
	for _, s := range c.TaxedStates {
		if strings.EqualFold(strings.TrimSpace(s), region) {
			return true
		}
	}
	return false
}

func (c CheckoutConfig) validate() error {
	if c.ShippingFlatCents < 0 {
		return fmt.Errorf("%s must not be negative", EnvShippingFlatCents)
	}
	if c.FreeShippingThresholdCents < 0 {
		return fmt.Errorf("%s must not be negative", EnvFreeShippingCents)
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return fmt.Errorf("%s: %w", EnvTaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be within [0,1)", EnvTaxRate)
	}
	return nil
}

type SquareConfig struct {
	AccessToken string `envconfig:"SEEDSHOP_SQUARE_ACCESS_TOKEN"`
	LocationID  string `envconfig:"SEEDSHOP_SQUARE_LOCATION_ID"`
	Env         string `envconfig:"SEEDSHOP_SQUARE_ENV" default:"sandbox"`
}

// Enabled reports whether enough settings exist to build a Square client.
func (s SquareConfig) Enabled() bool {
	return strings.TrimSpace(s.AccessToken) != "" && strings.TrimSpace(s.LocationID) != ""
}

type StripeConfig struct {
	APIKey   string `envconfig:"SEEDSHOP_STRIPE_API_KEY"`
	Env      string `envconfig:"SEEDSHOP_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"SEEDSHOP_STRIPE_CURRENCY" default:"usd"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SEEDSHOP_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SEEDSHOP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SEEDSHOP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic           string `envconfig:"SEEDSHOP_PUBSUB_ORDERS_TOPIC" default:"seedshop-order-events"`
	AnalyticsSubscription string `envconfig:"SEEDSHOP_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"seedshop-order-events-analytics"`
}

// BigQueryConfig locates the sales fact table. An empty dataset disables analytics.
type BigQueryConfig struct {
	Dataset    string `envconfig:"SEEDSHOP_BIGQUERY_DATASET"`
	SalesTable string `envconfig:"SEEDSHOP_BIGQUERY_SALES_TABLE" default:"sales_events"`
}

// Enabled reports whether a dataset is configured.
func (b BigQueryConfig) Enabled() bool {
	return strings.TrimSpace(b.Dataset) != ""
}

type AnalyticsConfig struct {
	DedupeTTL      time.Duration `envconfig:"SEEDSHOP_ANALYTICS_DEDUPE_TTL" default:"168h"`
	MaxOutstanding int           `envconfig:"SEEDSHOP_ANALYTICS_MAX_OUTSTANDING" default:"10"`
	MaxQueryWindow time.Duration `envconfig:"SEEDSHOP_ANALYTICS_MAX_QUERY_WINDOW" default:"8784h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SEEDSHOP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SEEDSHOP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SEEDSHOP_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// CronConfig drives the maintenance worker.
type CronConfig struct {
	Interval        time.Duration `envconfig:"SEEDSHOP_CRON_INTERVAL" default:"15m"`
	PendingOrderTTL time.Duration `envconfig:"SEEDSHOP_PENDING_ORDER_TTL" default:"72h"`
	ExpireBatchSize int           `envconfig:"SEEDSHOP_ORDER_EXPIRE_BATCH_SIZE" default:"100"`
	OutboxRetention time.Duration `envconfig:"SEEDSHOP_OUTBOX_RETENTION" default:"720h"`
}

// AuthRateLimitConfig throttles the credential endpoints per IP and per email.
type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SEEDSHOP_LOGIN_RATE_WINDOW" default:"15m"`
	LoginIPLimit       int           `envconfig:"SEEDSHOP_LOGIN_RATE_IP_LIMIT" default:"30"`
	LoginEmailLimit    int           `envconfig:"SEEDSHOP_LOGIN_RATE_EMAIL_LIMIT" default:"10"`
	RegisterWindow     time.Duration `envconfig:"SEEDSHOP_REGISTER_RATE_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"SEEDSHOP_REGISTER_RATE_IP_LIMIT" default:"10"`
	RegisterEmailLimit int           `envconfig:"SEEDSHOP_REGISTER_RATE_EMAIL_LIMIT" default:"3"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SEEDSHOP_CORS_ALLOWED_ORIGINS" default:"*"`
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
