// internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Forecast ForecastConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type AppConfig struct {
	UploadDir string
	DataDir   string
	LogLevel  string
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	BundleTTLSecs int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// ForecastConfig carries the tunable forecast thresholds. Every field
// has a viper-backed default that an environment variable can override.
// The HTTP handlers use the values as loaded; requests cannot override
// them.
type ForecastConfig struct {
	MinDataPoints      int
	MinFeatureCoverage float64
	MinFeatureVariance float64
	MaxRows            int
	SampleRows         int
	KeepRecent         bool
	MaxSKUs            int
	PredictionInterval float64
	MinSpike           float64
	MaxSpike           float64
	MinDelayDays       int
	MaxDelayDays       int
	RandomSeed         int64
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "invforecast")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
		viper.SetDefault("APP_DATA_DIR", "./data/output")
		viper.SetDefault("APP_LOG_LEVEL", "info")

		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_BUNDLE_TTL_SECONDS", 900)

		viper.SetDefault("STORAGE_ENABLED", false)
		viper.SetDefault("STORAGE_ENDPOINT", "127.0.0.1:9000")
		viper.SetDefault("STORAGE_ACCESS_KEY", "")
		viper.SetDefault("STORAGE_SECRET_KEY", "")
		viper.SetDefault("STORAGE_USE_SSL", false)
		viper.SetDefault("STORAGE_BUCKET", "forecast-bundles")

		viper.SetDefault("FORECAST_MIN_DATA_POINTS", 10)
		viper.SetDefault("FORECAST_MIN_FEATURE_COVERAGE", 0.5)
		viper.SetDefault("FORECAST_MIN_FEATURE_VARIANCE", 0.01)
		viper.SetDefault("FORECAST_MAX_ROWS", 500_000)
		viper.SetDefault("FORECAST_SAMPLE_ROWS", 200_000)
		viper.SetDefault("FORECAST_KEEP_RECENT", true)
		viper.SetDefault("FORECAST_MAX_SKUS", 5000)
		viper.SetDefault("FORECAST_PREDICTION_INTERVAL", 0.95)
		viper.SetDefault("FORECAST_MIN_SPIKE", 0.1)
		viper.SetDefault("FORECAST_MAX_SPIKE", 10.0)
		viper.SetDefault("FORECAST_MIN_DELAY_DAYS", 0)
		viper.SetDefault("FORECAST_MAX_DELAY_DAYS", 365)
		viper.SetDefault("FORECAST_RANDOM_SEED", 42)

		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_UPLOAD_DIR"))
		ensureDir(viper.GetString("APP_DATA_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			App: AppConfig{
				UploadDir: viper.GetString("APP_UPLOAD_DIR"),
				DataDir:   viper.GetString("APP_DATA_DIR"),
				LogLevel:  viper.GetString("APP_LOG_LEVEL"),
			},
			Cache: CacheConfig{
				Enabled:       viper.GetBool("CACHE_ENABLED"),
				RedisURL:      viper.GetString("REDIS_URL"),
				RedisHost:     viper.GetString("REDIS_HOST"),
				RedisPort:     viper.GetString("REDIS_PORT"),
				RedisPassword: viper.GetString("REDIS_PASSWORD"),
				RedisDB:       viper.GetInt("REDIS_DB"),
				BundleTTLSecs: viper.GetInt("CACHE_BUNDLE_TTL_SECONDS"),
			},
			Storage: StorageConfig{
				Enabled:   viper.GetBool("STORAGE_ENABLED"),
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
			},
			Forecast: ForecastConfig{
				MinDataPoints:      viper.GetInt("FORECAST_MIN_DATA_POINTS"),
				MinFeatureCoverage: viper.GetFloat64("FORECAST_MIN_FEATURE_COVERAGE"),
				MinFeatureVariance: viper.GetFloat64("FORECAST_MIN_FEATURE_VARIANCE"),
				MaxRows:            viper.GetInt("FORECAST_MAX_ROWS"),
				SampleRows:         viper.GetInt("FORECAST_SAMPLE_ROWS"),
				KeepRecent:         viper.GetBool("FORECAST_KEEP_RECENT"),
				MaxSKUs:            viper.GetInt("FORECAST_MAX_SKUS"),
				PredictionInterval: viper.GetFloat64("FORECAST_PREDICTION_INTERVAL"),
				MinSpike:           viper.GetFloat64("FORECAST_MIN_SPIKE"),
				MaxSpike:           viper.GetFloat64("FORECAST_MAX_SPIKE"),
				MinDelayDays:       viper.GetInt("FORECAST_MIN_DELAY_DAYS"),
				MaxDelayDays:       viper.GetInt("FORECAST_MAX_DELAY_DAYS"),
				RandomSeed:         viper.GetInt64("FORECAST_RANDOM_SEED"),
			},
		}
	})

	return instance
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
