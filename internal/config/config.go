package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/deepdey/notebook-backend/pkg/clientip"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	MongoURI       string
	MongoDB        string // empty means take it from the URI path
	RedisURI       string
	JWTSecret      string
	Port           string
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL
	Host           string   // Raw HOST env (e.g. https://api.notebook.deepdey.me)
	AllowedHost    string   // Hostname only for strict host check (production only)
	Environment    string   // ENV: production, development, etc.
	LogLevel       slog.Level
	TrustedProxies []string // CIDRs whose forwarding headers are believed

	MailProvider string // resend, smtp or log
	ResendAPIKey string
	MailFrom     string
	MailFromName string
	MailReplyTo  string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string

	RateLimitMax    int
	RateLimitWindow time.Duration

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:5000")

	// AllowedHost is only set in production; host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = bareHost(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		if u := strings.TrimSpace(getEnv("FRONTEND_URL", "http://localhost:5173")); u != "" {
			allowedOrigins = append(allowedOrigins, u)
		}
	}

	mailProvider := strings.ToLower(getEnv("MAIL_PROVIDER", ""))
	if mailProvider == "" {
		// Pick whichever provider has credentials, falling back to logging.
		switch {
		case getEnv("RESEND_API_KEY", "") != "":
			mailProvider = "resend"
		case getEnv("SMTP_HOST", "") != "":
			mailProvider = "smtp"
		default:
			mailProvider = "log"
		}
	}

	return &Config{
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/notebook")),
		MongoDB:             getEnv("MONGO_DB", ""),
		RedisURI:            getEnv("REDIS_URI", "redis://localhost:6379/0"),
		JWTSecret:           getEnv("JWT_SECRET", defaultJWTSecret),
		Host:                host,
		AllowedHost:         allowedHost,
		Environment:         env,
		Port:                getEnv("PORT", "5000"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:5173"),
		AllowedOrigins:      allowedOrigins,
		LogLevel:            parseLevel(getEnv("LOG_LEVEL", "info")),
		TrustedProxies:      parseOrigins(getEnv("TRUSTED_PROXIES", "")),
		MailProvider:        mailProvider,
		ResendAPIKey:        getEnv("RESEND_API_KEY", ""),
		MailFrom:            getEnv("MAIL_FROM", "onboarding@resend.dev"),
		MailFromName:        getEnv("MAIL_FROM_NAME", "NoteBook"),
		MailReplyTo:         getEnv("MAIL_REPLY_TO", ""),
		SMTPHost:            getEnv("SMTP_HOST", ""),
		SMTPPort:            getEnv("SMTP_PORT", "587"),
		SMTPUser:            getEnv("SMTP_USER", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		RateLimitMax:        getInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow:     getDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
	}
}

// Validate rejects settings the server must not start with.
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	if _, err := clientip.ParseNetworks(c.TrustedProxies); err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	switch c.MailProvider {
	case "resend":
		if c.ResendAPIKey == "" {
			return errors.New("MAIL_PROVIDER=resend requires RESEND_API_KEY")
		}
	case "smtp":
		if c.SMTPHost == "" {
			return errors.New("MAIL_PROVIDER=smtp requires SMTP_HOST")
		}
	case "log":
	default:
		return errors.New("MAIL_PROVIDER must be one of resend, smtp, log")
	}
	return nil
}

// CloudinaryEnabled reports whether avatar uploads can be served.
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// MailFromHeader is the From value as "Name <addr>".
func (c *Config) MailFromHeader() string {
	if c.MailFromName == "" {
		return c.MailFrom
	}
	return c.MailFromName + " <" + c.MailFrom + ">"
}

// bareHost strips scheme, path and port from a URL-ish host value.
func bareHost(host string) string {
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.TrimSpace(host)
}

// parseOrigins splits a comma-separated list, dropping blanks.
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

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
