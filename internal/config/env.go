package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	Port         string
	JWTSecret    string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	AIAPIKey     string
	EmbedModel   string
	EmbedDim     int
	GenModel     string

	// Decoding parameters passed to the generation model.
	GenTemperature float64
	GenMaxTokens   int

	// Ingestion / retrieval tuning.
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	MaxFileBytes int64
	LLMRetries   int
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		Port:         getEnv("PORT", "8080"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "coursepilot-docs"),
		AIAPIKey:     getEnv("GEMINI_API_KEY", ""),
		EmbedModel:   getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:     getEnvInt("EMBED_DIM", 768),
		GenModel:     getEnv("GEN_MODEL", "gemini-1.5-flash"),

		GenTemperature: getEnvFloat("GEN_TEMPERATURE", 0.2),
		GenMaxTokens:   getEnvInt("GEN_MAX_TOKENS", 8192),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 690),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 100),
		TopK:         getEnvInt("RETRIEVAL_TOP_K", 5),
		MaxFileBytes: int64(getEnvInt("MAX_FILE_BYTES", 10<<20)),
		LLMRetries:   getEnvInt("LLM_RETRIES", 2),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		log.Fatalf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
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
		log.Printf("WARN: %s=%q not a number, using default %g", key, v, def)
		return def
	}
	return f
}
