package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	AuthMode    string
	AdminAPIKey string

	// SigningBaseURL prefixes minted recipient signing URLs.
	SigningBaseURL string

	// CertificateSecret keys the derived certificate ids. Rotating it
	// invalidates every previously issued certificate id.
	CertificateSecret string

	EnforceSigningOrder bool

	StorageBackend string
	LocalStorePath string

	S3Bucket   string
	S3Region   string
	S3Endpoint string

	SMTPAddr     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	AnalyticsURL   string
	AnalyticsToken string

	CompletionAudience string

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:               addr,
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		LogLevel:               envDefault("LOG_LEVEL", "info"),
		AuthMode:               envDefault("AUTH_MODE", "header"),
		AdminAPIKey:            os.Getenv("ADMIN_API_KEY"),
		SigningBaseURL:         envDefault("SIGNING_BASE_URL", "http://localhost:8080"),
		CertificateSecret:      os.Getenv("CERTIFICATE_SECRET"),
		EnforceSigningOrder:    envBoolDefault("SIGNING_ORDER_STRICT", false),
		StorageBackend:         envDefault("STORAGE_BACKEND", "local"),
		LocalStorePath:         envDefault("LOCAL_STORE_PATH", "./data"),
		S3Bucket:               os.Getenv("S3_BUCKET"),
		S3Region:               os.Getenv("S3_REGION"),
		S3Endpoint:             os.Getenv("S3_ENDPOINT"),
		SMTPAddr:               os.Getenv("SMTP_ADDR"),
		SMTPFrom:               envDefault("SMTP_FROM", "no-reply@signflow.local"),
		SMTPUsername:           os.Getenv("SMTP_USERNAME"),
		SMTPPassword:           os.Getenv("SMTP_PASSWORD"),
		AnalyticsURL:           os.Getenv("ANALYTICS_URL"),
		AnalyticsToken:         os.Getenv("ANALYTICS_TOKEN"),
		CompletionAudience:     os.Getenv("COMPLETION_AUDIENCE"),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
	}
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}
