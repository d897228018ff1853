package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	OTP           OTPConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Sendgrid      SendgridConfig
	Twilio        TwilioConfig
	Cron          CronConfig
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
	Env          string   `envconfig:"ASPIDA_APP_ENV" required:"true"`
	Port         string   `envconfig:"ASPIDA_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"ASPIDA_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"ASPIDA_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"ASPIDA_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"ASPIDA_DB_DSN"`

	Host     string `envconfig:"ASPIDA_DB_HOST"`
	Port     int    `envconfig:"ASPIDA_DB_PORT" default:"5432"`
	User     string `envconfig:"ASPIDA_DB_USER"`
	Password string `envconfig:"ASPIDA_DB_PASSWORD"`
	Name     string `envconfig:"ASPIDA_DB_NAME"`
	SSLMode  string `envconfig:"ASPIDA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ASPIDA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ASPIDA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ASPIDA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ASPIDA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ASPIDA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ASPIDA_REDIS_ADDR"`
	Password     string        `envconfig:"ASPIDA_REDIS_PASSWORD"`
	DB           int           `envconfig:"ASPIDA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ASPIDA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ASPIDA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ASPIDA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ASPIDA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ASPIDA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ASPIDA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ASPIDA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"ASPIDA_JWT_EXPIRATION_MINUTES" default:"15"`
	RefreshTokenTTLMinutes int    `envconfig:"ASPIDA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ASPIDA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ASPIDA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ASPIDA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ASPIDA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ASPIDA_ARGON_KEY_LEN" default:"32"`

	MinLength int `envconfig:"ASPIDA_PASSWORD_MIN_LENGTH" default:"8"`
}

type OTPConfig struct {
	TTL time.Duration `envconfig:"ASPIDA_OTP_TTL" default:"10m"`
}

type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"ASPIDA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIDLimit     int           `envconfig:"ASPIDA_AUTH_RATE_LIMIT_LOGIN_ID_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"ASPIDA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	OTPWindow        time.Duration `envconfig:"ASPIDA_AUTH_RATE_LIMIT_OTP_WINDOW" default:"5m"`
	OTPChannelLimit  int           `envconfig:"ASPIDA_AUTH_RATE_LIMIT_OTP_CHANNEL_LIMIT" default:"3"`
	OTPIPLimit       int           `envconfig:"ASPIDA_AUTH_RATE_LIMIT_OTP_IP_LIMIT" default:"20"`
	RegisterWindow   time.Duration `envconfig:"ASPIDA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterIDLimit  int           `envconfig:"ASPIDA_AUTH_RATE_LIMIT_REGISTER_ID_LIMIT" default:"3"`
	RegisterIPLimit  int           `envconfig:"ASPIDA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ASPIDA_AUTO_MIGRATE" default:"false"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"ASPIDA_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"ASPIDA_SENDGRID_FROM_EMAIL"`
}

type TwilioConfig struct {
	AccountSID string `envconfig:"ASPIDA_TWILIO_ACCOUNT_SID"`
	AuthToken  string `envconfig:"ASPIDA_TWILIO_AUTH_TOKEN"`
	FromNumber string `envconfig:"ASPIDA_TWILIO_FROM_NUMBER"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"ASPIDA_CRON_INTERVAL" default:"1h"`
	LockKey  string        `envconfig:"ASPIDA_CRON_LOCK_KEY" default:"aspida:cron:lock"`
	LockTTL  time.Duration `envconfig:"ASPIDA_CRON_LOCK_TTL" default:"2h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := map[string]string{
		"ASPIDA_DB_HOST": db.Host,
		"ASPIDA_DB_USER": db.User,
		"ASPIDA_DB_NAME": db.Name,
	}
	for _, key := range []string{"ASPIDA_DB_HOST", "ASPIDA_DB_USER", "ASPIDA_DB_NAME"} {
		if required[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either ASPIDA_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
