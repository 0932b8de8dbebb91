package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	AIProvider      string // "openai" (default) or "gemini" for embeddings
	AIBaseURL       string
	AIAPIKey        string
	GeminiAPIKey    string
	EmbedModel      string
	EmbedDim        int
	ChatModel       string
	VisionModel     string
	WhisperModel    string
	MaxOutputTokens int
	Temperature     float64

	TargetTokens   int
	OverlapTokens  int
	MatchThreshold float64
	MatchCount     int
	QueueSize      int

	Port string
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "salubra-docs"),

		AIProvider:      getEnv("AI_PROVIDER", "openai"),
		AIBaseURL:       getEnv("AI_BASE_URL", "https://api.openai.com/v1"),
		AIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		EmbedModel:      getEnv("EMBED_MODEL", "text-embedding-3-small"),
		EmbedDim:        getEnvInt("EMBED_DIM", 1536),
		ChatModel:       getEnv("CHAT_MODEL", "gpt-4o-mini"),
		VisionModel:     getEnv("VISION_MODEL", "gpt-4o"),
		WhisperModel:    getEnv("WHISPER_MODEL", "whisper-1"),
		MaxOutputTokens: getEnvInt("MAX_OUTPUT_TOKENS", 1024),
		Temperature:     getEnvFloat("TEMPERATURE", 0.5),

		TargetTokens:   getEnvInt("CHUNK_TARGET_TOKENS", 650),
		OverlapTokens:  getEnvInt("CHUNK_OVERLAP_TOKENS", 80),
		MatchThreshold: getEnvFloat("MATCH_THRESHOLD", 0.30),
		MatchCount:     getEnvInt("MATCH_COUNT", 5),
		QueueSize:      getEnvInt("INGEST_QUEUE_SIZE", 64),

		Port: getEnv("PORT", "8080"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a float, using default %g", key, v, def)
		return def
	}
	return f
}
