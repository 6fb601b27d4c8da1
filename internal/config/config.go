package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// WebhookEndpoint configures one notification category.
type WebhookEndpoint struct {
	Enabled bool
	URL     string
}

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DBDriver string // "mysql" or "sqlite"
	DBDSN    string // MySQL DSN or SQLite file path

	// Connection pool
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	// Field encryption
	EncryptionKey string

	// JWT
	JWTSecret    string
	JWTAccessTTL time.Duration

	// CORS
	AllowedOrigins []string

	// Discord webhooks
	DiscordEnabled       bool
	ReportsWebhook       WebhookEndpoint
	StatusChangesWebhook WebhookEndpoint
	AdminNotesWebhook    WebhookEndpoint
	AdminChangesWebhook  WebhookEndpoint

	// Logging
	LogLevel string
}

const defaultEncryptionKey = "default-key-change-this"

func Load() *Config {
	// Load .env file in development
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("DB_DSN", "reports.db"),

		// Connection pool
		DBMaxOpenConns:    parseInt(getEnv("DB_MAX_OPEN_CONNS", "10"), 10),
		DBMaxIdleConns:    parseInt(getEnv("DB_MAX_IDLE_CONNS", "5"), 5),
		DBConnMaxLifetime: parseDuration(getEnv("DB_CONN_MAX_LIFETIME", "30m"), 30*time.Minute),
		DBConnMaxIdleTime: parseDuration(getEnv("DB_CONN_MAX_IDLE_TIME", "10m"), 10*time.Minute),

		// Field encryption
		EncryptionKey: getEnv("ENCRYPTION_KEY", defaultEncryptionKey),

		// JWT
		JWTSecret:    getEnv("JWT_SECRET", "super-secret-key-change-me"),
		JWTAccessTTL: parseDuration(getEnv("JWT_ACCESS_TTL", "24h"), 24*time.Hour),

		// CORS
		AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		// Discord webhooks
		DiscordEnabled: parseBool(getEnv("DISCORD_ENABLED", "true"), true),
		ReportsWebhook: WebhookEndpoint{
			Enabled: parseBool(getEnv("DISCORD_REPORTS_ENABLED", "true"), true),
			URL:     getEnv("DISCORD_REPORTS_WEBHOOK_URL", ""),
		},
		StatusChangesWebhook: WebhookEndpoint{
			Enabled: parseBool(getEnv("DISCORD_STATUS_CHANGES_ENABLED", "true"), true),
			URL:     getEnv("DISCORD_STATUS_CHANGES_WEBHOOK_URL", ""),
		},
		AdminNotesWebhook: WebhookEndpoint{
			Enabled: parseBool(getEnv("DISCORD_ADMIN_NOTES_ENABLED", "true"), true),
			URL:     getEnv("DISCORD_ADMIN_NOTES_WEBHOOK_URL", ""),
		},
		AdminChangesWebhook: WebhookEndpoint{
			Enabled: parseBool(getEnv("DISCORD_ADMIN_CHANGES_ENABLED", "true"), true),
			URL:     getEnv("DISCORD_ADMIN_CHANGES_WEBHOOK_URL", ""),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}
}

// UsingDefaultKey reports whether the encryption key was left at its
// shipped placeholder. Startup logs a warning in that case.
func (c *Config) UsingDefaultKey() bool {
	return c.EncryptionKey == defaultEncryptionKey
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultValue
	}
	return d
}

func parseBool(s string, defaultValue bool) bool {
	value, err := strconv.ParseBool(s)
	if err != nil {
		return defaultValue
	}
	return value
}

func parseInt(s string, defaultValue int) int {
	value, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return value
}

func parseStringSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	// Simple split by comma
	var result []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if start < i {
				result = append(result, s[start:i])
			}
			start = i + 1
		}
	}
	return result
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
