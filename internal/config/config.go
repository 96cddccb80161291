package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Vector    VectorConfig
	Embedding EmbeddingConfig
	LLM       LLMConfig
	Ingest    IngestConfig
	RAG       RAGConfig
	Quota     QuotaConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
}

type AppConfig struct {
	Name               string
	Port               string
	Environment        string
	LogFilePath        string
	HubLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	Provider    string // "jwt" or "google"
	JwtSecret   string
	SecretKey   string // signs conversation share links
	AdminEmails []string
}

type VectorConfig struct {
	Backend        string // "pgvector", "qdrant" or "memory"
	CollectionName string
	QdrantURL      string
	QdrantAPIKey   string
	AllowRecreate  bool
}

type EmbeddingConfig struct {
	Provider      string // "ollama" or "hash"
	OllamaBaseURL string
	OllamaModel   string
	Dimension     int
	Timeout       time.Duration
}

type LLMConfig struct {
	Provider      string // "groq", "ollama" or "" (not configured)
	Model         string
	GroqAPIKey    string
	GroqBaseURL   string
	OllamaBaseURL string
	Temperature   float64
	MaxTokens     int
}

type IngestConfig struct {
	UploadDir         string
	MaxFileSize       int64
	AllowedExtensions []string
	ChunkSize         int
	ChunkOverlap      int
	Workers           int
	Topic             string
	LeaseTTL          time.Duration
}

type RAGConfig struct {
	TopK                int
	SimilarityThreshold float64
	HistoryWindow       int
}

type QuotaConfig struct {
	DailyTokenLimit   int64
	MonthlyTokenLimit int64
	QueryEstimate     int64
}

type RateLimitConfig struct {
	UploadRequests int
	UploadWindow   time.Duration
	QueryRequests  int
	QueryWindow    time.Duration
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Name:               getEnv("APP_NAME", "DocuChat"),
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			HubLogFilePath:     getEnv("HUB_LOG_FILE_PATH", "logs/notification.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			Provider:    getEnv("AUTH_PROVIDER", "jwt"),
			JwtSecret:   getEnv("JWT_SECRET", ""),
			SecretKey:   getEnv("SECRET_KEY", "change-me-in-production"),
			AdminEmails: getEnvAsList("ADMIN_EMAILS", nil, true),
		},
		Vector: VectorConfig{
			Backend:        getEnv("VECTOR_BACKEND", "pgvector"),
			CollectionName: getEnv("VECTOR_COLLECTION_NAME", "documents"),
			QdrantURL:      getEnv("QDRANT_URL", "http://localhost:6333"),
			QdrantAPIKey:   getEnv("QDRANT_API_KEY", ""),
			AllowRecreate:  getEnvAsBool("VECTOR_ALLOW_RECREATE", false),
		},
		Embedding: EmbeddingConfig{
			Provider:      getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:   getEnv("OLLAMA_EMBEDDING_MODEL", "all-minilm"),
			Dimension:     getEnvAsInt("EMBEDDING_DIMENSION", 384),
			Timeout:       time.Duration(getEnvAsInt("EMBEDDING_TIMEOUT_SECONDS", 90)) * time.Second,
		},
		LLM: LLMConfig{
			Provider:      getEnv("LLM_PROVIDER", "groq"),
			Model:         getEnv("DEFAULT_LLM_MODEL", "llama-3.3-70b-versatile"),
			GroqAPIKey:    getEnv("GROQ_API_KEY", ""),
			GroqBaseURL:   getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Temperature:   getEnvAsFloat("LLM_TEMPERATURE", 0.3),
			MaxTokens:     getEnvAsInt("LLM_MAX_TOKENS", 1000),
		},
		Ingest: IngestConfig{
			UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
			MaxFileSize:       int64(getEnvAsInt("MAX_FILE_SIZE", 10*1024*1024)),
			AllowedExtensions: getEnvAsList("ALLOWED_EXTENSIONS", []string{".pdf", ".txt", ".md"}, true),
			ChunkSize:         getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap:      getEnvAsInt("CHUNK_OVERLAP", 200),
			Workers:           getEnvAsInt("INGEST_WORKERS", 2),
			Topic:             getEnv("INGEST_TOPIC_NAME", "document.process"),
			LeaseTTL:          time.Duration(getEnvAsInt("INGEST_LEASE_SECONDS", 600)) * time.Second,
		},
		RAG: RAGConfig{
			TopK:                getEnvAsInt("TOP_K_RESULTS", 5),
			SimilarityThreshold: getEnvAsFloat("SIMILARITY_THRESHOLD", 0.7),
			HistoryWindow:       getEnvAsInt("HISTORY_WINDOW", 6),
		},
		Quota: QuotaConfig{
			DailyTokenLimit:   int64(getEnvAsInt("DAILY_TOKEN_LIMIT", 300000)),
			MonthlyTokenLimit: int64(getEnvAsInt("MONTHLY_TOKEN_LIMIT", 5000000)),
			QueryEstimate:     int64(getEnvAsInt("QUERY_TOKEN_ESTIMATE", 1000)),
		},
		RateLimit: RateLimitConfig{
			UploadRequests: getEnvAsInt("UPLOAD_RATE_LIMIT", 20),
			UploadWindow:   time.Duration(getEnvAsInt("UPLOAD_RATE_WINDOW_SECONDS", 300)) * time.Second,
			QueryRequests:  getEnvAsInt("QUERY_RATE_LIMIT", 20),
			QueryWindow:    time.Duration(getEnvAsInt("QUERY_RATE_WINDOW_SECONDS", 60)) * time.Second,
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma separated value, trimming blanks.
func getEnvAsList(key string, fallback []string, lower bool) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lower {
			part = strings.ToLower(part)
		}
		out = append(out, part)
	}
	return out
}
