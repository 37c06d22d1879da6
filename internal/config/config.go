package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Keys      APIKeys
	Ai        AIConfig
	Retrieval RetrievalConfig
	Session   SessionConfig
	Fetch     FetchConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string

	// Optional integrations; empty disables them.
	NatsURL  string
	RedisURL string

	EventsTopicName string
}

type APIKeys struct {
	OpenAI string
}

type AIConfig struct {
	LLMProvider       string // "ollama" or "openai"
	LLMModel          string // e.g. "llama3", "gpt-4o-mini"
	EmbeddingProvider string // "ollama" or "openai"
	EmbeddingModel    string // e.g. "nomic-embed-text", "text-embedding-3-small"
	OllamaBaseURL     string
	Temperature       float64
	MaxTokens         int
	RequestTimeoutSec int
}

type RetrievalConfig struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	FetchK       int
	Lambda       float64
}

type SessionConfig struct {
	TimeoutHours         int
	SweepIntervalMinutes int
}

type FetchConfig struct {
	CacheTTLMinutes int

	// APIBaseOverride points every article fetch at a fixed MediaWiki
	// endpoint instead of the per-language wikipedia.org hosts. Tests
	// use this; leave empty in normal deployments.
	APIBaseOverride string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			EventsTopicName:    getEnv("SESSION_EVENTS_TOPIC_NAME", "SESSION_EVENTS"),
		},
		Keys: APIKeys{
			OpenAI: getEnv("OPENAI_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.3),
			MaxTokens:         getEnvAsInt("LLM_MAX_TOKENS", 800),
			RequestTimeoutSec: getEnvAsInt("AI_REQUEST_TIMEOUT_SECONDS", 60),
		},
		Retrieval: RetrievalConfig{
			ChunkSize:    getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", 200),
			TopK:         getEnvAsInt("RETRIEVAL_TOP_K", 6),
			FetchK:       getEnvAsInt("RETRIEVAL_FETCH_K", 12),
			Lambda:       getEnvAsFloat("RETRIEVAL_LAMBDA", 0.7),
		},
		Session: SessionConfig{
			TimeoutHours:         getEnvAsInt("SESSION_TIMEOUT_HOURS", 24),
			SweepIntervalMinutes: getEnvAsInt("SESSION_SWEEP_INTERVAL_MINUTES", 60),
		},
		Fetch: FetchConfig{
			CacheTTLMinutes: getEnvAsInt("ARTICLE_CACHE_TTL_MINUTES", 60),
			APIBaseOverride: getEnv("WIKIPEDIA_API_BASE", ""),
		},
	}
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
