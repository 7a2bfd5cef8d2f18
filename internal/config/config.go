package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr          string
	DatabaseURL   string
	MigrationsDir string
	CORSOrigin    string
	LogLevel      string
	// Persistence
	PersistenceURL string
	RedisURL       string
	FallbackTTL    time.Duration
	// Editing sessions
	AutosaveDelay  time.Duration
	SessionIdleTTL time.Duration
	HistoryLimit   int
	// Generation
	AIProvider   string
	AIBaseURL    string
	GeminiAPIKey string
	OllamaModel  string
	SetupToken   string
	// Assets - object storage disabled if no endpoint
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string
	// Search
	MeiliURL       string
	MeiliMasterKey string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:           getenv("API_ADDR", ":8787"),
		DatabaseURL:    getenv("DATABASE_URL", "sqlite://./data/newsletter.db"),
		MigrationsDir:  getenv("MIGRATIONS_DIR", "./db/migrations"),
		CORSOrigin:     getenv("CORS_ORIGIN", "*"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		PersistenceURL: getenv("PERSISTENCE_URL", ""),
		// Redis - local fallback cache disabled if empty
		RedisURL:       getenv("REDIS_URL", ""),
		FallbackTTL:    time.Duration(getenvInt("FALLBACK_TTL_SECONDS", 0)) * time.Second,
		AutosaveDelay:  time.Duration(getenvInt("AUTOSAVE_MS", 1500)) * time.Millisecond,
		SessionIdleTTL: time.Duration(getenvInt("SESSION_IDLE_TTL_SECONDS", 1800)) * time.Second,
		HistoryLimit:   getenvInt("HISTORY_LIMIT", 20),
		AIProvider:     getenv("AI_PROVIDER", "gemini"),
		AIBaseURL:      getenv("AI_BASE_URL", ""),
		GeminiAPIKey:   getenv("GEMINI_API_KEY", os.Getenv("API_KEY")),
		OllamaModel:    getenv("OLLAMA_MODEL", ""),
		SetupToken:     getenv("SETUP_TOKEN", ""),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "newsletter-assets"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),
		MinioPublicURL: getenv("MINIO_PUBLIC_URL", ""),
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
