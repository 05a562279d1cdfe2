package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection (job + document registry)
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string

	// Qdrant connection (vector index)
	QdrantHost       string
	QdrantPort       int
	QdrantAPIKey     string
	QdrantCollection string

	// Redis (progress pub/sub); empty addr disables it
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Embedding
	EmbeddingProvider  string // "openai", "ollama", "bedrock"
	EmbeddingModel     string
	EmbeddingDimension int
	EmbeddingBatchSize int
	OpenAIAPIKey       string
	OllamaHost         string
	BedrockRegion      string
	VoyageAPIKey       string

	// Crawling
	FirecrawlAPIKeys []string // rotated pool; empty means plain HTTP fetch only
	FirecrawlBaseURL string
	MaxPages         int
	MaxDepth         int
	CrawlWorkers     int
	CrawlRPS         float64
	JobTimeout       time.Duration
	StageRetries     int

	// Extraction
	MaxSections   int
	MinCodeChars  int
	MaxCodeChars  int
	DedupKeyChars int

	// Search
	Search SearchConfig

	// Server
	ServerAddr string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// SearchConfig carries the scoring knobs for multi-document retrieval.
type SearchConfig struct {
	TargetedConfidence float64 // query names a specific doc
	FallbackConfidence float64 // all attached docs equally in scope
	TargetedThreshold  float64 // min score when the target doc is known
	BroadThreshold     float64 // min score for unscoped search
	ResultBudget       int     // total multi-doc result budget
	MinPerDocQuota     int
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "askdocs"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "registry"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),

		QdrantHost:       getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:       getEnvInt("QDRANT_PORT", 6334),
		QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "doc_sections"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		EmbeddingProvider:  getEnv("EMBEDDING_PROVIDER", "openai"),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", 1536),
		EmbeddingBatchSize: getEnvInt("EMBEDDING_BATCH_SIZE", 20),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OllamaHost:         getEnv("OLLAMA_HOST", "http://localhost:11434"),
		BedrockRegion:      getEnv("AWS_REGION", "us-east-1"),
		VoyageAPIKey:       getEnv("VOYAGE_API_KEY", ""),

		FirecrawlAPIKeys: splitKeys(getEnv("FIRECRAWL_API_KEYS", "")),
		FirecrawlBaseURL: getEnv("FIRECRAWL_BASE_URL", "https://api.firecrawl.dev"),
		MaxPages:         getEnvInt("CRAWL_MAX_PAGES", 50),
		MaxDepth:         getEnvInt("CRAWL_MAX_DEPTH", 3),
		CrawlWorkers:     getEnvInt("CRAWL_WORKERS", 4),
		CrawlRPS:         getEnvFloat("CRAWL_RPS", 2),
		JobTimeout:       getEnvDuration("CRAWL_JOB_TIMEOUT", 10*time.Minute),
		StageRetries:     getEnvInt("CRAWL_STAGE_RETRIES", 2),

		MaxSections:   getEnvInt("EXTRACT_MAX_SECTIONS", 500),
		MinCodeChars:  getEnvInt("EXTRACT_MIN_CODE_CHARS", 15),
		MaxCodeChars:  getEnvInt("EXTRACT_MAX_CODE_CHARS", 2500),
		DedupKeyChars: getEnvInt("EXTRACT_DEDUP_KEY_CHARS", 160),

		Search: SearchConfig{
			TargetedConfidence: getEnvFloat("SEARCH_TARGETED_CONFIDENCE", 0.9),
			FallbackConfidence: getEnvFloat("SEARCH_FALLBACK_CONFIDENCE", 0.5),
			TargetedThreshold:  getEnvFloat("SEARCH_TARGETED_THRESHOLD", 0.45),
			BroadThreshold:     getEnvFloat("SEARCH_BROAD_THRESHOLD", 0.5),
			ResultBudget:       getEnvInt("SEARCH_RESULT_BUDGET", 12),
			MinPerDocQuota:     getEnvInt("SEARCH_MIN_PER_DOC_QUOTA", 3),
		},

		ServerAddr: getEnv("ASKDOCS_SERVER_ADDR", ":8090"),

		LogFile:  getEnv("ASKDOCS_LOG_FILE", "/tmp/askdocs.log"),
		LogLevel: parseLogLevel(getEnv("ASKDOCS_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitKeys(s string) []string {
	if s == "" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
