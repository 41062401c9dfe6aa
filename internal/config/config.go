package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Environment string // ENV: production, development, etc.
	Port        string
	APIPrefix   string
	LogLevel    string

	MongoURI      string
	MongoDatabase string
	RedisURI      string // optional: distributed rate limiting + mood type cache
	PostgresURI   string // optional: auth audit trail

	// MongoAllowStandalone lets the server start against a MongoDB without replica set,
	// where entry and mood writes are not paired in a transaction. Development only.
	MongoAllowStandalone bool

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	ResetTokenTTL    time.Duration

	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL
	TrustProxy     bool     // TRUST_PROXY: take the client IP from X-Forwarded-For

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string
}

func Load() (*Config, error) {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	accessTTL, err := ParseDuration(getEnv("JWT_ACCESS_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("JWT_ACCESS_TTL: %w", err)
	}
	refreshTTL, err := ParseDuration(getEnv("JWT_REFRESH_TTL", "7d"))
	if err != nil {
		return nil, fmt.Errorf("JWT_REFRESH_TTL: %w", err)
	}
	resetTTL, err := ParseDuration(getEnv("RESET_TOKEN_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("RESET_TOKEN_TTL: %w", err)
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("SMTP_PORT: %w", err)
	}

	frontendURL := strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/")
	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{frontendURL}
	}

	mongoURI := getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/vent"))
	production := env == "production"

	cfg := &Config{
		Environment:          env,
		Port:                 getEnv("PORT", "8080"),
		APIPrefix:            "/" + strings.Trim(getEnv("API_PREFIX", "/api/v1"), "/"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		MongoURI:             mongoURI,
		MongoDatabase:        getEnv("MONGODB_DATABASE", DatabaseNameFromURI(mongoURI, "vent")),
		RedisURI:             getEnv("REDIS_URI", ""),
		PostgresURI:          getEnv("POSTGRES_URI", ""),
		MongoAllowStandalone: getEnvBool("MONGO_ALLOW_STANDALONE", !production),
		JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", getEnv("JWT_SECRET", "")),
		JWTRefreshSecret:     getEnv("JWT_REFRESH_SECRET", ""),
		AccessTokenTTL:       accessTTL,
		RefreshTokenTTL:      refreshTTL,
		ResetTokenTTL:        resetTTL,
		FrontendURL:          frontendURL,
		AllowedOrigins:       allowedOrigins,
		TrustProxy:           getEnvBool("TRUST_PROXY", false),
		CloudinaryName:       getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:     getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret:  getEnv("CLOUDINARY_API_SECRET", ""),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             smtpPort,
		SMTPUser:             getEnv("SMTP_USER", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		EmailFrom:            getEnv("EMAIL_FROM", "Vent <no-reply@vent.app>"),
	}

	if !cfg.IsProduction() {
		if cfg.JWTAccessSecret == "" {
			cfg.JWTAccessSecret = "dev-access-secret-change-me"
		}
		if cfg.JWTRefreshSecret == "" {
			cfg.JWTRefreshSecret = "dev-refresh-secret-change-me"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration that would make the server unsafe to start.
func (c *Config) Validate() error {
	if c.JWTAccessSecret == "" || c.JWTRefreshSecret == "" {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.ResetTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.MongoURI == "" {
		return errors.New("MONGODB_URI must be set")
	}
	if c.IsProduction() && c.MongoAllowStandalone {
		return errors.New("MONGO_ALLOW_STANDALONE cannot be enabled in production")
	}
	return nil
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// CloudinaryEnabled reports whether profile image uploads can be served.
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// ParseDuration accepts time.ParseDuration syntax plus a trailing "d" for days ("7d", "90d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// DatabaseNameFromURI extracts the database path segment of a Mongo URI.
// Format: mongodb://.../database_name?...
func DatabaseNameFromURI(uri, fallback string) string {
	rest := uri
	if idx := strings.Index(rest, "://"); idx != -1 {
		rest = rest[idx+3:]
	}
	idx := strings.Index(rest, "/")
	if idx == -1 {
		return fallback
	}
	name := strings.Split(rest[idx+1:], "?")[0]
	if name == "" {
		return fallback
	}
	return name
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

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}
