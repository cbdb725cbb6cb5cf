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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Delivery     DeliveryConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string        `envconfig:"ARTMARKET_APP_ENV" required:"true"`
	Port         string        `envconfig:"ARTMARKET_APP_PORT" required:"true"`
	LogLevel     string        `envconfig:"ARTMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool          `envconfig:"ARTMARKET_LOG_WARN_STACK" default:"false"`
	LogFormat    string        `envconfig:"ARTMARKET_LOG_FORMAT" default:"json"`
	CORSOrigins  []string      `envconfig:"ARTMARKET_CORS_ORIGINS"`
	ShutdownWait time.Duration `envconfig:"ARTMARKET_SHUTDOWN_TIMEOUT" default:"15s"`
	// MetricsPort serves /metrics for the background workers; the API mounts it on its router.
	MetricsPort string `envconfig:"ARTMARKET_METRICS_PORT" default:"9090"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ARTMARKET_DB_DSN"`
	Driver string `envconfig:"ARTMARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ARTMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"ARTMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ARTMARKET_DB_USER"`
	LegacyPassword string `envconfig:"ARTMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"ARTMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"ARTMARKET_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"ARTMARKET_SQLITE_PATH" default:"artmarket.db"`

	MaxOpenConns    int           `envconfig:"ARTMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ARTMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ARTMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ARTMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"ARTMARKET_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ARTMARKET_REDIS_URL"`
	Address      string        `envconfig:"ARTMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"ARTMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"ARTMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ARTMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ARTMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ARTMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ARTMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ARTMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"ARTMARKET_REDIS_KEY_PREFIX" default:"am"`
}

// JWTConfig holds the verification side of access tokens. Tokens are minted
// by the auth service; this backend only checks them.
type JWTConfig struct {
	Secret            string `envconfig:"ARTMARKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ARTMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ARTMARKET_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ARTMARKET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ARTMARKET_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"ARTMARKET_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ARTMARKET_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ARTMARKET_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ARTMARKET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"ARTMARKET_PUBSUB_NOTIFICATION_TOPIC" default:"am-notification-events"`
	NotificationSubscription string `envconfig:"ARTMARKET_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
	DeliveryTopic            string `envconfig:"ARTMARKET_PUBSUB_DELIVERY_TOPIC" default:"am-delivery-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"ARTMARKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"ARTMARKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"ARTMARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"ARTMARKET_OUTBOX_RETENTION" default:"168h"`
}

// DeliveryConfig tunes the delivery dashboard and the notification dispatcher.
type DeliveryConfig struct {
	NotificationWorkers   int           `envconfig:"ARTMARKET_DELIVERY_NOTIFICATION_WORKERS" default:"4"`
	NotificationQueueSize int           `envconfig:"ARTMARKET_DELIVERY_NOTIFICATION_QUEUE" default:"256"`
	NotificationTimeout   time.Duration `envconfig:"ARTMARKET_DELIVERY_NOTIFICATION_TIMEOUT" default:"5s"`
	NotificationSink      string        `envconfig:"ARTMARKET_DELIVERY_NOTIFICATION_SINK" default:"outbox"`
	AverageDeliveryHours  float64       `envconfig:"ARTMARKET_DELIVERY_AVG_HOURS" default:"48"`
	AverageRating         float64       `envconfig:"ARTMARKET_DELIVERY_AVG_RATING" default:"4.5"`
	IdempotencyTTL        time.Duration `envconfig:"ARTMARKET_DELIVERY_IDEMPOTENCY_TTL" default:"24h"`
	TransitionRateLimit   int           `envconfig:"ARTMARKET_DELIVERY_TRANSITION_RATE_LIMIT" default:"60"`
	TransitionRateWindow  time.Duration `envconfig:"ARTMARKET_DELIVERY_TRANSITION_RATE_WINDOW" default:"1m"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
