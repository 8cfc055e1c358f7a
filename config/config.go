package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment  string
	Domains      []string
	CertCacheDir string
	HTTPPort     string
	HTTPSPort    string

	DatabaseURL string

	OpenAIAPIKey         string
	OpenAIChatURL        string
	OpenAIModel          string
	OpenAIEmbeddingURL   string
	OpenAIEmbeddingModel string
	EmbeddingDimensions  int

	// Enrichment tunables.
	LLMTimeout           time.Duration
	EnrichmentInputLimit int
	MaxSummaryWords      int
	NumQAPairs           int
	MaxKeyPoints         int
	MaxTopics            int

	// Chunking and retrieval tunables. Defaults come from the original
	// deployment; they are deliberately configuration, not constants.
	ChunkSize           int
	SimilarityThreshold float64
	TopK                int

	RunRetention       time.Duration
	RunCleanupInterval time.Duration
}

var isTest bool

func init() {
	isTest = os.Getenv("GO_ENVIRONMENT") == "test"
	if !isTest {
		err := godotenv.Load()
		if err != nil {
			log.Println("Warning: Error loading .env file:", err)
		}
	}
}

func Load() Config {
	return Config{
		Environment:  getEnv("ENVIRONMENT", "development"),
		Domains:      []string{getEnv("DOMAIN", "example.com")},
		CertCacheDir: getEnv("CERT_CACHE_DIR", "/etc/letsencrypt/live/example.com"),
		HTTPPort:     getEnv("HTTP_PORT", "8086"),
		HTTPSPort:    getEnv("HTTPS_PORT", "443"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIChatURL:        getEnv("OPENAI_CHAT_URL", "https://api.openai.com/v1/chat/completions"),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIEmbeddingURL:   getEnv("OPENAI_EMBEDDING_URL", "https://api.openai.com/v1/embeddings"),
		OpenAIEmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimensions:  getEnvAsInt("EMBEDDING_DIMENSIONS", 1536),

		LLMTimeout:           time.Duration(getEnvAsInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		EnrichmentInputLimit: getEnvAsInt("ENRICHMENT_INPUT_LIMIT", 4000),
		MaxSummaryWords:      getEnvAsInt("MAX_SUMMARY_WORDS", 300),
		NumQAPairs:           getEnvAsInt("NUM_QA_PAIRS", 5),
		MaxKeyPoints:         getEnvAsInt("MAX_KEY_POINTS", 8),
		MaxTopics:            getEnvAsInt("MAX_TOPICS", 6),

		ChunkSize:           getEnvAsInt("CHUNK_SIZE", 3000),
		SimilarityThreshold: getEnvAsFloat("SIMILARITY_THRESHOLD", 0.6),
		TopK:                getEnvAsInt("TOP_K", 5),

		RunRetention:       time.Duration(getEnvAsInt("RUN_RETENTION_HOURS", 24)) * time.Hour,
		RunCleanupInterval: time.Duration(getEnvAsInt("RUN_CLEANUP_MINUTES", 60)) * time.Minute,
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
