package config

import (
	"os"
	"strconv"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for the page content blobs.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RedisConfig holds settings for the optional read-through page cache.
// The cache is disabled when Addr is empty.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// UploadConfig holds the constraints applied to incoming documents.
type UploadConfig struct {
	// MaxSizeBytes is the hard cap on uploaded content. Default 5 MiB.
	MaxSizeBytes int64
	// BaseURL is prepended to generated link paths in responses.
	BaseURL string
}

// CacheConfig tunes the retrieval-path content cache.
type CacheConfig struct {
	// TTLSec caps how long a page stays cached; the effective TTL never
	// exceeds the page's remaining time to expiry.
	TTLSec int
	// MaxEntryBytes is the largest page cached; bigger pages stream from
	// the blob store every time.
	MaxEntryBytes int64
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port              string
	Upload            UploadConfig
	Database          DatabaseConfig
	MinIO             MinIOConfig
	Redis             RedisConfig
	Cache             CacheConfig
	ReaperIntervalSec int
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Port: getEnv("PORT", "8000"),
		Upload: UploadConfig{
			MaxSizeBytes: getEnvInt64("MAX_UPLOAD_SIZE", 5*1024*1024),
			BaseURL:      getEnv("BASE_URL", "http://localhost:8000"),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			TTLSec:        getEnvInt("CACHE_TTL_SEC", 300),
			MaxEntryBytes: getEnvInt64("CACHE_MAX_ENTRY_BYTES", 1024*1024),
		},
		ReaperIntervalSec: getEnvInt("REAPER_INTERVAL_SEC", 3600),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}
