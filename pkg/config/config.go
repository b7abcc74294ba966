package config

import (
	"fmt"
	"net/url"
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
	Store         StoreConfig
	PromptPay     PromptPayConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"NINEKRUA_APP_ENV" required:"true"`
	Port         string `envconfig:"NINEKRUA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NINEKRUA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NINEKRUA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"NINEKRUA_DB_DSN"`
	Driver string `envconfig:"NINEKRUA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NINEKRUA_DB_HOST"`
	LegacyPort     int    `envconfig:"NINEKRUA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NINEKRUA_DB_USER"`
	LegacyPassword string `envconfig:"NINEKRUA_DB_PASSWORD"`
	LegacyName     string `envconfig:"NINEKRUA_DB_NAME"`
	LegacySSLMode  string `envconfig:"NINEKRUA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NINEKRUA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NINEKRUA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NINEKRUA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NINEKRUA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NINEKRUA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NINEKRUA_REDIS_ADDR"`
	Password     string        `envconfig:"NINEKRUA_REDIS_PASSWORD"`
	DB           int           `envconfig:"NINEKRUA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NINEKRUA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NINEKRUA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NINEKRUA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NINEKRUA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NINEKRUA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"NINEKRUA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"NINEKRUA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"NINEKRUA_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"NINEKRUA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"NINEKRUA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"NINEKRUA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"NINEKRUA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"NINEKRUA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"NINEKRUA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"NINEKRUA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit int           `envconfig:"NINEKRUA_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"NINEKRUA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"NINEKRUA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"NINEKRUA_AUTO_MIGRATE" default:"false"`
}

// StoreConfig carries the merchant identity stamped onto receipts and QR payloads.
type StoreConfig struct {
	Name     string `envconfig:"NINEKRUA_STORE_NAME" default:"Nine Krua POS"`
	City     string `envconfig:"NINEKRUA_STORE_CITY" default:"Bangkok"`
	Timezone string `envconfig:"NINEKRUA_STORE_TZ" default:"Asia/Bangkok"`
}

type PromptPayConfig struct {
	Target string `envconfig:"NINEKRUA_PROMPTPAY_TARGET"`
}

type PubSubConfig struct {
	ProjectID          string `envconfig:"NINEKRUA_GCP_PROJECT_ID" required:"true"`
	OrdersTopic        string `envconfig:"NINEKRUA_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription string `envconfig:"NINEKRUA_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"NINEKRUA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"NINEKRUA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"NINEKRUA_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
