package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Uploads  UploadsConfig
	Engine   EngineConfig
	Queue    QueueConfig
	QACache  QACacheConfig
	Worker   WorkerConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// UploadsConfig controls the local staging area for uploaded documents.
type UploadsConfig struct {
	Dir              string
	MaxFileSizeBytes int64
}

// EngineConfig points at the external RAG processing engine.
type EngineConfig struct {
	BaseURL       string
	QueryTimeout  time.Duration
	UploadTimeout time.Duration
	DeleteTimeout time.Duration
}

// QueueConfig names the Redis list carrying processing jobs.
type QueueConfig struct {
	Name        string
	PopTimeout  time.Duration
	PushTimeout time.Duration
}

// QACacheConfig tunes the question/answer response cache.
type QACacheConfig struct {
	TTL time.Duration
}

// WorkerConfig configures the queue worker binary.
type WorkerConfig struct {
	CallbackURL string
	RetryDelay  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUploadSize := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 25 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		Dir:              v.GetString("UPLOADS_DIR"),
		MaxFileSizeBytes: maxUploadSize,
	}

	cfg.Engine = EngineConfig{
		BaseURL:       v.GetString("ENGINE_BASE_URL"),
		QueryTimeout:  parseDuration(v.GetString("ENGINE_QUERY_TIMEOUT"), 30*time.Second),
		UploadTimeout: parseDuration(v.GetString("ENGINE_UPLOAD_TIMEOUT"), 10*time.Minute),
		DeleteTimeout: parseDuration(v.GetString("ENGINE_DELETE_TIMEOUT"), 15*time.Second),
	}

	cfg.Queue = QueueConfig{
		Name:        v.GetString("PROCESSING_QUEUE"),
		PopTimeout:  parseDuration(v.GetString("QUEUE_POP_TIMEOUT"), 5*time.Second),
		PushTimeout: parseDuration(v.GetString("QUEUE_PUSH_TIMEOUT"), 5*time.Second),
	}

	cfg.QACache = QACacheConfig{
		TTL: parseDuration(v.GetString("QA_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Worker = WorkerConfig{
		CallbackURL: v.GetString("WORKER_CALLBACK_URL"),
		RetryDelay:  parseDuration(v.GetString("WORKER_RETRY_DELAY"), 5*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8081)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "docqa")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("UPLOADS_DIR", "./temp-uploads")
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 25*1024*1024)

	v.SetDefault("ENGINE_BASE_URL", "http://localhost:8000")
	v.SetDefault("ENGINE_QUERY_TIMEOUT", "30s")
	v.SetDefault("ENGINE_UPLOAD_TIMEOUT", "10m")
	v.SetDefault("ENGINE_DELETE_TIMEOUT", "15s")

	v.SetDefault("PROCESSING_QUEUE", "doc-processing-queue")
	v.SetDefault("QUEUE_POP_TIMEOUT", "5s")
	v.SetDefault("QUEUE_PUSH_TIMEOUT", "5s")

	v.SetDefault("QA_CACHE_TTL", "5m")

	v.SetDefault("WORKER_CALLBACK_URL", "http://localhost:8081/api/v1/documents/callback/status")
	v.SetDefault("WORKER_RETRY_DELAY", "5s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
