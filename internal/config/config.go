package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Object store providers
const (
	StorageProviderR2    = "r2"
	StorageProviderMinIO = "minio"
)

// Push providers
const (
	PushProviderExpo = "expo"
	PushProviderFCM  = "fcm"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Mongo       MongoConfig       `yaml:"mongo"`
	Redis       RedisConfig       `yaml:"redis"`
	Auth        AuthConfig        `yaml:"auth"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Push        PushConfig        `yaml:"push"`
	Worker      WorkerConfig      `yaml:"worker"`
	Logger      LoggerConfig      `yaml:"logger"`
}

type ServerConfig struct {
	Port            string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"15s"`
	// MaxBodyBytes bounds JSON request bodies; five inline images fit comfortably.
	MaxBodyBytes   int64    `yaml:"max_body_bytes" env:"SERVER_MAX_BODY_BYTES" env-default:"41943040"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
}

type PostgresConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"adsboard"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSLMODE" env-default:"require"`
}

// DSN returns the lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

type MongoConfig struct {
	URI            string        `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Username       string        `yaml:"username" env:"MONGO_USER"`
	Password       string        `yaml:"password" env:"MONGO_PASSWORD"`
	Database       string        `yaml:"database" env:"MONGO_DATABASE" env-default:"adsboard"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"MONGO_CONNECT_TIMEOUT" env-default:"10s"`
	MaxPoolSize    uint64        `yaml:"max_pool_size" env:"MONGO_MAX_POOL_SIZE" env-default:"50"`
}

// RedisConfig is optional. With an empty URL the fan-out runs in-process.
type RedisConfig struct {
	URL             string        `yaml:"url" env:"REDIS_URL"`
	ProfileCacheTTL time.Duration `yaml:"profile_cache_ttl" env:"PROFILE_CACHE_TTL" env-default:"10m"`
}

type AuthConfig struct {
	JWTSecret          string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenMaxAge  int    `yaml:"access_token_max_age" env:"ACCESS_TOKEN_MAX_AGE" env-default:"900"`
	RefreshTokenMaxAge int    `yaml:"refresh_token_max_age" env:"REFRESH_TOKEN_MAX_AGE" env-default:"2592000"`

	// Dead refresh tokens are kept this long for reuse detection, then pruned.
	RefreshTokenRetention time.Duration `yaml:"refresh_token_retention" env:"REFRESH_TOKEN_RETENTION" env-default:"168h"`
	PruneInterval         time.Duration `yaml:"prune_interval" env:"REFRESH_TOKEN_PRUNE_INTERVAL" env-default:"24h"`
}

type ObjectStoreConfig struct {
	Provider  string `yaml:"provider" env:"STORAGE_PROVIDER" env-default:"r2"`
	Bucket    string `yaml:"bucket" env:"STORAGE_BUCKET"`
	PublicURL string `yaml:"public_url" env:"STORAGE_PUBLIC_URL"`

	R2AccountID       string `yaml:"r2_account_id" env:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `yaml:"r2_access_key_id" env:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `yaml:"r2_secret_access_key" env:"R2_SECRET_ACCESS_KEY"`

	MinIOEndpoint  string `yaml:"minio_endpoint" env:"MINIO_ENDPOINT"`
	MinIOAccessKey string `yaml:"minio_access_key" env:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `yaml:"minio_secret_key" env:"MINIO_SECRET_KEY"`
	MinIOUseSSL    bool   `yaml:"minio_use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
}

type PushConfig struct {
	Provider     string        `yaml:"provider" env:"PUSH_PROVIDER" env-default:"expo"`
	ExpoEndpoint string        `yaml:"expo_endpoint" env:"EXPO_PUSH_URL" env-default:"https://exp.host/--/api/v2/push/send"`
	Timeout      time.Duration `yaml:"timeout" env:"PUSH_TIMEOUT" env-default:"10s"`

	FCMProjectID   string `yaml:"fcm_project_id" env:"FCM_PROJECT_ID"`
	FCMClientEmail string `yaml:"fcm_client_email" env:"FCM_CLIENT_EMAIL"`
	FCMPrivateKey  string `yaml:"fcm_private_key" env:"FCM_PRIVATE_KEY"`
}

type WorkerConfig struct {
	Count        int           `yaml:"count" env:"WORKER_COUNT" env-default:"2"`
	BatchSize    int64         `yaml:"batch_size" env:"WORKER_BATCH_SIZE" env-default:"10"`
	BlockTimeout time.Duration `yaml:"block_timeout" env:"WORKER_BLOCK_TIMEOUT" env-default:"5s"`
	// FanoutTimeout bounds one detached notification fan-out.
	FanoutTimeout time.Duration `yaml:"fanout_timeout" env:"FANOUT_TIMEOUT" env-default:"2m"`
	// StreamMaxLen approximately trims the ads stream. 0 disables trimming.
	StreamMaxLen int64 `yaml:"stream_max_len" env:"STREAM_MAX_LEN" env-default:"10000"`
}

type LoggerConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding   string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
	TimeFormat string `yaml:"time_format" env:"LOG_TIME_FORMAT"`
}

// LoadConfig reads .env (if present), then an optional YAML file named by
// CONFIG_PATH, then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.ObjectStore.Provider {
	case StorageProviderR2, StorageProviderMinIO:
	default:
		return fmt.Errorf("unknown STORAGE_PROVIDER %q", c.ObjectStore.Provider)
	}
	switch c.Push.Provider {
	case PushProviderExpo, PushProviderFCM:
	default:
		return fmt.Errorf("unknown PUSH_PROVIDER %q", c.Push.Provider)
	}
	if c.Auth.AccessTokenMaxAge <= 0 {
		c.Auth.AccessTokenMaxAge = 900
	}
	if c.Auth.RefreshTokenMaxAge <= 0 {
		c.Auth.RefreshTokenMaxAge = 2592000
	}
	if c.Auth.PruneInterval <= 0 {
		c.Auth.PruneInterval = 24 * time.Hour
	}
	return nil
}
