package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds application configuration.
type Config struct {
	Port                string
	CORSAllowOrigin     []string
	Env                 string
	LogLevel            string
	DatabaseURL         string
	JWTSecret           string
	ObjectStoreType     string
	LocalStoreDir       string
	AWSRegion           string
	S3Bucket            string
	S3Prefix            string
	SSEKMSKeyID         string
	LLMProvider         string
	LLMModel            string
	OpenAIAPIKey        string
	TextTimeout         time.Duration
	DocumentTimeout     time.Duration
	MaxDocumentBytes    int64
	MaxOutputTokens     int
	Temperature         float64
	InlineDocuments     bool
	AllocationTolerance decimal.Decimal
	ReaggregateSchedule string
	WorkerConcurrency   int
	GenerationPerMinute float64
	GenerationBurst     int
	ShutdownTimeout     time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:                getEnv("PORT", "8080"),
		CORSAllowOrigin:     splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:                 env,
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabaseURL:         dbURL,
		JWTSecret:           getEnv("JWT_SECRET", ""),
		ObjectStoreType:     normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:       getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:           getEnv("AWS_REGION", ""),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Prefix:            getEnv("S3_PREFIX", "statements/"),
		SSEKMSKeyID:         getEnv("SSE_KMS_KEY_ID", ""),
		LLMProvider:         strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMModel:            getEnv("LLM_MODEL", "gpt-4o-mini"),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		TextTimeout:         getEnvSeconds("OPENAI_TIMEOUT_SECONDS", 120*time.Second),
		DocumentTimeout:     getEnvSeconds("OPENAI_DOCUMENT_TIMEOUT_SECONDS", 300*time.Second),
		MaxDocumentBytes:    int64(getEnvInt("MAX_DOCUMENT_BYTES", 10<<20)),
		MaxOutputTokens:     getEnvInt("LLM_MAX_OUTPUT_TOKENS", 4096),
		Temperature:         getEnvFloat("LLM_TEMPERATURE", 0.2),
		InlineDocuments:     getEnvBool("LLM_INLINE_DOCUMENTS", true),
		AllocationTolerance: getEnvDecimal("ALLOCATION_TOLERANCE", decimal.RequireFromString("0.01")),
		ReaggregateSchedule: getEnv("REAGGREGATE_SCHEDULE", "@every 6h"),
		WorkerConcurrency:   getEnvInt("WORKER_CONCURRENCY", 4),
		GenerationPerMinute: getEnvFloat("GENERATION_RATE_PER_MINUTE", 6),
		GenerationBurst:     getEnvInt("GENERATION_BURST", 3),
		ShutdownTimeout:     getEnvSeconds("SHUTDOWN_TIMEOUT_SECONDS", 30*time.Second),
	}
}

// Validate reports configuration that cannot work at runtime.
func (c Config) Validate() error {
	var problems []string
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid PORT %q", c.Port))
	}
	if c.Env == "production" && strings.TrimSpace(c.DatabaseURL) == "" {
		problems = append(problems, "DATABASE_URL is required in production")
	}
	if c.Env == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		problems = append(problems, "JWT_SECRET is required in production")
	}
	if c.ObjectStoreType == "s3" && strings.TrimSpace(c.S3Bucket) == "" {
		problems = append(problems, "OBJECT_STORE=s3 requires S3_BUCKET")
	}
	if c.MaxDocumentBytes <= 0 {
		problems = append(problems, "MAX_DOCUMENT_BYTES must be positive")
	}
	if c.DocumentTimeout < c.TextTimeout {
		problems = append(problems, "OPENAI_DOCUMENT_TIMEOUT_SECONDS must not be shorter than OPENAI_TIMEOUT_SECONDS")
	}
	if c.AllocationTolerance.IsNegative() {
		problems = append(problems, "ALLOCATION_TOLERANCE must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvSeconds(key string, def time.Duration) time.Duration {
	secs := getEnvInt(key, 0)
	if secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config %s invalid float: %v", key, err)
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func getEnvDecimal(key string, def decimal.Decimal) decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := decimal.NewFromString(raw)
	if err != nil {
		log.Printf("config %s invalid decimal: %v", key, err)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
