package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Cache     CacheConfig
	Catalogue CatalogueConfig
	Ai        AIConfig
}

type AppConfig struct {
	Title              string
	Version            string
	CommitId           string
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string // empty disables snapshot events
	RedisURL           string // empty disables the snapshot mirror
	JwtSecret          string
}

type CacheConfig struct {
	DataPath         string
	SnapshotInterval time.Duration
}

type CatalogueConfig struct {
	DataPath     string
	BlobBaseURL  string
	FetchTimeout time.Duration
}

// AIConfig carries one typed block per embedding framework.
type AIConfig struct {
	HuggingFace HuggingFaceConfig
	OpenAI      OpenAIConfig
	AzureOpenAI AzureOpenAIConfig
	Google      GoogleConfig
	// RateLimit is the max provider requests per second, 0 for unlimited.
	RateLimit float64
}

type HuggingFaceConfig struct {
	BaseURL  string
	APIToken string
}

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
}

type AzureOpenAIConfig struct {
	Endpoint   string
	APIKey     string
	APIVersion string
}

type GoogleConfig struct {
	BaseURL string
	APIKey  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	cwd, _ := os.Getwd()

	return &Config{
		App: AppConfig{
			Title:              getEnv("APP_TITLE", "Harmony API"),
			Version:            getEnv("VERSION", "2.0"),
			CommitId:           getEnv("COMMIT_ID", "Unknown"),
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("STAGE", getEnv("GO_ENV", "development")),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/harmony-api.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Cache: CacheConfig{
			DataPath:         getEnv("HARMONY_DATA_PATH", cwd),
			SnapshotInterval: getEnvAsDuration("SNAPSHOT_INTERVAL", 12*time.Hour),
		},
		Catalogue: CatalogueConfig{
			DataPath:     getEnv("CATALOGUE_DATA_PATH", cwd),
			BlobBaseURL:  getEnv("CATALOGUE_BLOB_BASE_URL", ""),
			FetchTimeout: getEnvAsDuration("CATALOGUE_FETCH_TIMEOUT", time.Minute),
		},
		Ai: AIConfig{
			HuggingFace: HuggingFaceConfig{
				BaseURL:  getEnv("HUGGINGFACE_BASE_URL", "https://router.huggingface.co/hf-inference"),
				APIToken: getEnv("HUGGINGFACE_API_TOKEN", ""),
			},
			OpenAI: OpenAIConfig{
				BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				APIKey:  getEnv("OPENAI_API_KEY", ""),
			},
			AzureOpenAI: AzureOpenAIConfig{
				Endpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
				APIKey:     getEnv("AZURE_OPENAI_API_KEY", ""),
				APIVersion: getEnv("AZURE_OPENAI_API_VERSION", "2023-12-01-preview"),
			},
			Google: GoogleConfig{
				BaseURL: getEnv("GOOGLE_BASE_URL", "https://generativelanguage.googleapis.com/v1"),
				APIKey:  getEnv("GOOGLE_API_KEY", ""),
			},
			RateLimit: getEnvAsFloat("VECTORISER_RATE_LIMIT", 0),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "prod" || c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
