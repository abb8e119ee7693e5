package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "troopsales"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "TROOPSALES_DB_DSN"
	EnvDBHost = "TROOPSALES_DB_HOST"
	EnvDBUser = "TROOPSALES_DB_USER"
	EnvDBName = "TROOPSALES_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Authz        AuthzConfig
	Invites      InvitesConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"TROOPSALES_APP_ENV" required:"true"`
	Port         string `envconfig:"TROOPSALES_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TROOPSALES_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TROOPSALES_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TROOPSALES_DB_DSN"`
	Driver string `envconfig:"TROOPSALES_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TROOPSALES_DB_HOST"`
	LegacyPort     int    `envconfig:"TROOPSALES_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TROOPSALES_DB_USER"`
	LegacyPassword string `envconfig:"TROOPSALES_DB_PASSWORD"`
	LegacyName     string `envconfig:"TROOPSALES_DB_NAME"`
	LegacySSLMode  string `envconfig:"TROOPSALES_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TROOPSALES_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TROOPSALES_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TROOPSALES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TROOPSALES_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TROOPSALES_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TROOPSALES_REDIS_ADDR"`
	Password     string        `envconfig:"TROOPSALES_REDIS_PASSWORD"`
	DB           int           `envconfig:"TROOPSALES_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TROOPSALES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TROOPSALES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TROOPSALES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TROOPSALES_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TROOPSALES_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TROOPSALES_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TROOPSALES_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TROOPSALES_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TROOPSALES_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AuthzConfig tunes the permission decision cache and the recheck policy
// used by grant-then-use flows. The cache trades freshness for read volume,
// so revocations may lag by up to CacheTTL on non-sensitive paths.
type AuthzConfig struct {
	CacheTTL        time.Duration `envconfig:"TROOPSALES_AUTHZ_CACHE_TTL" default:"5s"`
	RetryBase       time.Duration `envconfig:"TROOPSALES_AUTHZ_RETRY_BASE" default:"250ms"`
	RetryMaxElapsed time.Duration `envconfig:"TROOPSALES_AUTHZ_RETRY_MAX_ELAPSED" default:"5s"`
}

type InvitesConfig struct {
	MaxTTL     time.Duration `envconfig:"TROOPSALES_INVITE_MAX_TTL" default:"168h"`
	DefaultTTL time.Duration `envconfig:"TROOPSALES_INVITE_DEFAULT_TTL" default:"72h"`

	// Redemption throttling; codes arrive over URLs and get retried by
	// humans, so the limits are generous per IP and tight per code.
	RedeemRateWindow time.Duration `envconfig:"TROOPSALES_INVITE_REDEEM_RATE_WINDOW" default:"1m"`
	RedeemIPLimit    int           `envconfig:"TROOPSALES_INVITE_REDEEM_IP_LIMIT" default:"30"`
	RedeemCodeLimit  int           `envconfig:"TROOPSALES_INVITE_REDEEM_CODE_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TROOPSALES_AUTO_MIGRATE" default:"false"`
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
