package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "PARCELDROP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PARCELDROP_DB_DSN"
	EnvDBHost = "PARCELDROP_DB_HOST"
	EnvDBUser = "PARCELDROP_DB_USER"
	EnvDBName = "PARCELDROP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Cache         CacheConfig
	Search        SearchConfig
	Dispatch      DispatchConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	GoogleMaps    GoogleMapsConfig
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
	Env          string `envconfig:"PARCELDROP_APP_ENV" required:"true"`
	Port         string `envconfig:"PARCELDROP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PARCELDROP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PARCELDROP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PARCELDROP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PARCELDROP_DB_DSN"`
	Driver string `envconfig:"PARCELDROP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PARCELDROP_DB_HOST"`
	LegacyPort     int    `envconfig:"PARCELDROP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PARCELDROP_DB_USER"`
	LegacyPassword string `envconfig:"PARCELDROP_DB_PASSWORD"`
	LegacyName     string `envconfig:"PARCELDROP_DB_NAME"`
	LegacySSLMode  string `envconfig:"PARCELDROP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PARCELDROP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PARCELDROP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PARCELDROP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PARCELDROP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PARCELDROP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PARCELDROP_REDIS_ADDR"`
	Password     string        `envconfig:"PARCELDROP_REDIS_PASSWORD"`
	DB           int           `envconfig:"PARCELDROP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PARCELDROP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PARCELDROP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PARCELDROP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PARCELDROP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PARCELDROP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PARCELDROP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PARCELDROP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PARCELDROP_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PARCELDROP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PARCELDROP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PARCELDROP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PARCELDROP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PARCELDROP_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"PARCELDROP_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"PARCELDROP_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"PARCELDROP_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

// CacheConfig bounds the staleness of every derived read view.
type CacheConfig struct {
	NearbyTTL        time.Duration `envconfig:"PARCELDROP_CACHE_NEARBY_TTL" default:"30s"`
	ListTTL          time.Duration `envconfig:"PARCELDROP_CACHE_LIST_TTL" default:"2m"`
	AuthTTL          time.Duration `envconfig:"PARCELDROP_CACHE_AUTH_TTL" default:"10m"`
	SweepInterval    time.Duration `envconfig:"PARCELDROP_CACHE_SWEEP_INTERVAL" default:"5m"`
	SweepTimeout     time.Duration `envconfig:"PARCELDROP_CACHE_SWEEP_TIMEOUT" default:"30s"`
	LocationDecimals int           `envconfig:"PARCELDROP_CACHE_LOCATION_DECIMALS" default:"3"`
}

type SearchConfig struct {
	QueryTimeout   time.Duration `envconfig:"PARCELDROP_SEARCH_QUERY_TIMEOUT" default:"5s"`
	DefaultRadiusM float64       `envconfig:"PARCELDROP_SEARCH_DEFAULT_RADIUS_M" default:"10000"`
	MaxRadiusM     float64       `envconfig:"PARCELDROP_SEARCH_MAX_RADIUS_M" default:"50000"`

	// CandidateFetchCap bounds how many bounding-box candidates one search may
	// pull from the store. A box holding more open offers than the cap yields a
	// truncated candidate set, so result totals under-report past this bound;
	// the matcher logs a warning when a query hits it.
	CandidateFetchCap int `envconfig:"PARCELDROP_SEARCH_CANDIDATE_FETCH_CAP" default:"2000"`
}

// DispatchConfig tunes the derived estimates attached to offers at creation.
type DispatchConfig struct {
	MeanSpeedMps float64 `envconfig:"PARCELDROP_DISPATCH_MEAN_SPEED_MPS" default:"8.3"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PARCELDROP_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PARCELDROP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PARCELDROP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"PARCELDROP_PUBSUB_NOTIFICATION_TOPIC" default:"pd-notification-events"`
	NotificationSubscription string `envconfig:"PARCELDROP_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type GoogleMapsConfig struct {
	APIKey string `envconfig:"PARCELDROP_GOOGLE_MAPS_API_KEY"`
}

// AccessTokenTTL returns the configured access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
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
