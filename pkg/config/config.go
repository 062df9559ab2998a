package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "ECOCHAMP"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "ECOCHAMP_APP_ENV"
	EnvPort   = "ECOCHAMP_APP_PORT"
	EnvDBDSN  = "ECOCHAMP_DB_DSN"
	EnvDBHost = "ECOCHAMP_DB_HOST"
	EnvDBUser = "ECOCHAMP_DB_USER"
	EnvDBName = "ECOCHAMP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Storage       StorageConfig
	OpenAI        OpenAIConfig
	Uploads       UploadsConfig
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
	Env          string `envconfig:"ECOCHAMP_APP_ENV" required:"true"`
	Port         string `envconfig:"ECOCHAMP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ECOCHAMP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ECOCHAMP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ECOCHAMP_DB_DSN"`
	Driver string `envconfig:"ECOCHAMP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ECOCHAMP_DB_HOST"`
	LegacyPort     int    `envconfig:"ECOCHAMP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ECOCHAMP_DB_USER"`
	LegacyPassword string `envconfig:"ECOCHAMP_DB_PASSWORD"`
	LegacyName     string `envconfig:"ECOCHAMP_DB_NAME"`
	LegacySSLMode  string `envconfig:"ECOCHAMP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ECOCHAMP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ECOCHAMP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ECOCHAMP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ECOCHAMP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ECOCHAMP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ECOCHAMP_REDIS_ADDR"`
	Password     string        `envconfig:"ECOCHAMP_REDIS_PASSWORD"`
	DB           int           `envconfig:"ECOCHAMP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ECOCHAMP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ECOCHAMP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ECOCHAMP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ECOCHAMP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ECOCHAMP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ECOCHAMP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ECOCHAMP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ECOCHAMP_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"ECOCHAMP_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the server-side session TTL configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ECOCHAMP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ECOCHAMP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ECOCHAMP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ECOCHAMP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ECOCHAMP_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"ECOCHAMP_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"ECOCHAMP_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"ECOCHAMP_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"ECOCHAMP_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"ECOCHAMP_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"ECOCHAMP_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ECOCHAMP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ECOCHAMP_AUTO_MIGRATE" default:"false"`
}

type StorageConfig struct {
	BucketName             string `envconfig:"ECOCHAMP_STORAGE_BUCKET_NAME"`
	LocalDir               string `envconfig:"ECOCHAMP_STORAGE_LOCAL_DIR" default:"uploads"`
	CredentialsJSON        string `envconfig:"ECOCHAMP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ECOCHAMP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type OpenAIConfig struct {
	APIKey  string        `envconfig:"ECOCHAMP_OPENAI_API_KEY"`
	Model   string        `envconfig:"ECOCHAMP_OPENAI_MODEL" default:"gpt-4"`
	BaseURL string        `envconfig:"ECOCHAMP_OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	Timeout time.Duration `envconfig:"ECOCHAMP_OPENAI_TIMEOUT" default:"30s"`
}

type UploadsConfig struct {
	MaxUploadMB    int `envconfig:"ECOCHAMP_MAX_UPLOAD_MB" default:"10"`
	QueueSize      int `envconfig:"ECOCHAMP_UPLOAD_QUEUE_SIZE" default:"64"`
	Workers        int `envconfig:"ECOCHAMP_UPLOAD_WORKERS" default:"2"`
	PDFPoints      int `envconfig:"ECOCHAMP_UPLOAD_PDF_POINTS" default:"25"`
	ImagePoints    int `envconfig:"ECOCHAMP_UPLOAD_IMAGE_POINTS" default:"20"`
	MaxExtractText int `envconfig:"ECOCHAMP_UPLOAD_MAX_EXTRACT_TEXT" default:"1000"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"ECOCHAMP_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"ECOCHAMP_CRON_LOCK_TTL" default:"25h"`
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
