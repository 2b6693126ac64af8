package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Checkout      CheckoutConfig
	Payments      PaymentsConfig
	Mail          MailConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Payments.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string   `envconfig:"BAKEHOUSE_APP_ENV" required:"true"`
	Port          string   `envconfig:"BAKEHOUSE_APP_PORT" required:"true"`
	PublicBaseURL string   `envconfig:"BAKEHOUSE_PUBLIC_BASE_URL" default:"http://localhost:8080"`
	CORSOrigins   []string `envconfig:"BAKEHOUSE_CORS_ORIGINS" default:"http://localhost:3000"`
	LogLevel      string   `envconfig:"BAKEHOUSE_LOG_LEVEL" default:"info"`
	LogWarnStack  bool     `envconfig:"BAKEHOUSE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN string `envconfig:"BAKEHOUSE_DB_DSN"`

	LegacyHost     string `envconfig:"BAKEHOUSE_DB_HOST"`
	LegacyPort     int    `envconfig:"BAKEHOUSE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAKEHOUSE_DB_USER"`
	LegacyPassword string `envconfig:"BAKEHOUSE_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAKEHOUSE_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAKEHOUSE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAKEHOUSE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAKEHOUSE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAKEHOUSE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAKEHOUSE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAKEHOUSE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BAKEHOUSE_REDIS_ADDR"`
	Password     string        `envconfig:"BAKEHOUSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAKEHOUSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAKEHOUSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAKEHOUSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAKEHOUSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAKEHOUSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAKEHOUSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BAKEHOUSE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BAKEHOUSE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"BAKEHOUSE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"BAKEHOUSE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BAKEHOUSE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BAKEHOUSE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BAKEHOUSE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BAKEHOUSE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BAKEHOUSE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"BAKEHOUSE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"BAKEHOUSE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"BAKEHOUSE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BAKEHOUSE_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"BAKEHOUSE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"BAKEHOUSE_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"BAKEHOUSE_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"BAKEHOUSE_PUBSUB_ORDERS_TOPIC" default:"bh-order-events"`
	NotificationSubscription string `envconfig:"BAKEHOUSE_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"bh-order-events-notifications"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BAKEHOUSE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BAKEHOUSE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BAKEHOUSE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// CheckoutConfig holds the pricing rules applied when an order is created.
// Amounts are whole rupees.
type CheckoutConfig struct {
	FreeDeliveryThreshold int64   `envconfig:"BAKEHOUSE_CHECKOUT_FREE_DELIVERY_THRESHOLD" default:"500"`
	DeliveryFee           int64   `envconfig:"BAKEHOUSE_CHECKOUT_DELIVERY_FEE" default:"50"`
	TaxRate               float64 `envconfig:"BAKEHOUSE_CHECKOUT_TAX_RATE" default:"0.05"`
	// TimeZone decides which calendar day "today" is for delivery dates.
	TimeZone              string  `envconfig:"BAKEHOUSE_CHECKOUT_TIMEZONE" default:"Asia/Kolkata"`
}

type PaymentsConfig struct {
	UPIPayeeID        string        `envconfig:"BAKEHOUSE_UPI_PAYEE_ID" required:"true"`
	UPIPayeeName      string        `envconfig:"BAKEHOUSE_UPI_PAYEE_NAME" default:"Bakehouse"`
	TrustOnSubmit     bool          `envconfig:"BAKEHOUSE_PAYMENTS_TRUST_ON_SUBMIT" default:"true"`
	ActionSecret      string        `envconfig:"BAKEHOUSE_PAYMENTS_ACTION_SECRET" required:"true"`
	ActionTokenTTL    time.Duration `envconfig:"BAKEHOUSE_PAYMENTS_ACTION_TOKEN_TTL" default:"168h"`
	QRCacheBackend    string        `envconfig:"BAKEHOUSE_PAYMENTS_QR_CACHE" default:"memory"`
	QRCacheTTL        time.Duration `envconfig:"BAKEHOUSE_PAYMENTS_QR_CACHE_TTL" default:"5m"`
	QRCacheMaxEntries int           `envconfig:"BAKEHOUSE_PAYMENTS_QR_CACHE_MAX_ENTRIES" default:"1024"`
}

func (p PaymentsConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(p.QRCacheBackend)) {
	case QRCacheMemory, QRCacheRedis:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvQRCacheBackend, QRCacheMemory, QRCacheRedis)
	}
	if p.ActionTokenTTL < 0 {
		return fmt.Errorf("%s must not be negative", EnvActionTokenTTL)
	}
	return nil
}

type MailConfig struct {
	SMTPHost      string `envconfig:"BAKEHOUSE_SMTP_HOST"`
	SMTPPort      int    `envconfig:"BAKEHOUSE_SMTP_PORT" default:"587"`
	SMTPUser      string `envconfig:"BAKEHOUSE_SMTP_USER"`
	SMTPPassword  string `envconfig:"BAKEHOUSE_SMTP_PASSWORD"`
	FromAddress   string `envconfig:"BAKEHOUSE_MAIL_FROM" default:"orders@bakehouse.local"`
	OperatorEmail string `envconfig:"BAKEHOUSE_MAIL_OPERATOR" required:"true"`
}

// ensureDSN assembles a postgres URL from the discrete BAKEHOUSE_DB_* parts
// when no DSN is set.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	for _, part := range []struct{ env, value string }{
		{EnvDBHost, db.LegacyHost},
		{EnvDBUser, db.LegacyUser},
		{EnvDBName, db.LegacyName},
	} {
		if part.value == "" {
			missing = append(missing, part.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	dsn := url.URL{
		Scheme: "postgres",
		User:   url.User(db.LegacyUser),
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   db.LegacyName,
	}
	if db.LegacyPassword != "" {
		dsn.User = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	if db.LegacySSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	db.DSN = dsn.String()
	return nil
}
