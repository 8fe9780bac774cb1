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
	Checkout      CheckoutConfig
	Chat          ChatConfig
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
	Env          string `envconfig:"YORI_APP_ENV" required:"true"`
	Port         string `envconfig:"YORI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"YORI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"YORI_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"YORI_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"YORI_DB_DSN"`
	Driver string `envconfig:"YORI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"YORI_DB_HOST"`
	LegacyPort     int    `envconfig:"YORI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"YORI_DB_USER"`
	LegacyPassword string `envconfig:"YORI_DB_PASSWORD"`
	LegacyName     string `envconfig:"YORI_DB_NAME"`
	LegacySSLMode  string `envconfig:"YORI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"YORI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"YORI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"YORI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"YORI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"YORI_REDIS_URL" required:"true"`
	Address      string        `envconfig:"YORI_REDIS_ADDR"`
	Password     string        `envconfig:"YORI_REDIS_PASSWORD"`
	DB           int           `envconfig:"YORI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"YORI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"YORI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"YORI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"YORI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"YORI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"YORI_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"YORI_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"YORI_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"YORI_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"YORI_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"YORI_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"YORI_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"YORI_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"YORI_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"YORI_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"YORI_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"YORI_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"YORI_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"YORI_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"YORI_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"YORI_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"YORI_AUTO_MIGRATE" default:"false"`
}

type CheckoutConfig struct {
	// ShippingFee is the flat fee added to every order, in the store currency.
	ShippingFee     int64  `envconfig:"YORI_CHECKOUT_SHIPPING_FEE" default:"30000"`
	OrderCodePrefix string `envconfig:"YORI_CHECKOUT_ORDER_CODE_PREFIX" default:"YORI-"`
}

type ChatConfig struct {
	WriteTimeout   time.Duration `envconfig:"YORI_CHAT_WRITE_TIMEOUT" default:"10s"`
	PongTimeout    time.Duration `envconfig:"YORI_CHAT_PONG_TIMEOUT" default:"60s"`
	MaxMessageSize int64         `envconfig:"YORI_CHAT_MAX_MESSAGE_SIZE" default:"4096"`
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
