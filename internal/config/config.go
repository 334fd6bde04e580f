package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MongoURI       string
	PostgresURI    string
	RedisURI       string
	EncryptionKey  string
	Port           string
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	Host           string   // Raw HOST env (e.g. https://api.lumenjournal.app)
	AllowedHost    string   // Hostname only for strict host check (production only)
	Environment    string   // ENV: production, development, etc.

	// LLM gateway (Anthropic-style messages API)
	LLMAPIKey    string
	LLMModel     string
	LLMBaseURL   string
	LLMMaxTokens int
	LLMTimeout   time.Duration
	CoachPersona string // system prompt override for the coach

	// Cloudinary (journal attachments)
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// AWS (SNS push relay + SES recovery email)
	AWSRegion      string
	SNSPlatformARN string // FCM platform application ARN
	SESFromEmail   string

	// Daily journaling reminders
	RemindersEnabled bool
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:8080")

	// AllowedHost is only set in production; host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = bareHost(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	llmTimeout := 90 * time.Second
	if s := getEnv("LLM_TIMEOUT_SECONDS", ""); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			llmTimeout = time.Duration(n) * time.Second
		}
	}

	maxTokens := 2048
	if s := getEnv("LLM_MAX_TOKENS", ""); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			maxTokens = n
		}
	}

	return &Config{
		MongoURI:       getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/lumen")),
		PostgresURI:    getEnv("POSTGRES_URI", "postgres://localhost:5432/lumen?sslmode=disable"),
		RedisURI:       getEnv("REDIS_URI", "redis://localhost:6379/0"),
		EncryptionKey:  getEnv("ENCRYPTION_KEY", ""),
		Host:           host,
		AllowedHost:    allowedHost,
		Environment:    env,
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins: allowedOrigins,

		LLMAPIKey:    getEnv("LLM_API_KEY", ""),
		LLMModel:     getEnv("LLM_MODEL", "claude-3-5-sonnet-20241022"),
		LLMBaseURL:   getEnv("LLM_BASE_URL", "https://api.anthropic.com"),
		LLMMaxTokens: maxTokens,
		LLMTimeout:   llmTimeout,
		CoachPersona: getEnv("COACH_PERSONA", ""),

		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		SNSPlatformARN: getEnv("SNS_PLATFORM_ARN", ""),
		SESFromEmail:   getEnv("SES_FROM_EMAIL", ""),

		RemindersEnabled: strings.EqualFold(getEnv("REMINDERS_ENABLED", "true"), "true"),
	}
}

// bareHost strips scheme, path and port from a URL-ish host value.
func bareHost(host string) string {
	h := host
	for _, prefix := range []string{"https://", "http://"} {
		h = strings.TrimPrefix(h, prefix)
	}
	if idx := strings.Index(h, "/"); idx != -1 {
		h = h[:idx]
	}
	if idx := strings.Index(h, ":"); idx != -1 {
		h = h[:idx]
	}
	return strings.TrimSpace(h)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
