package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int
	DatabasePath string
	AppEnv       string // "development" or "production"
	CORSOrigin   string

	// Token issuing
	JWTSecret   string
	TokenExpiry time.Duration
	BcryptCost  int

	// Downstream inference service used by the bot query proxy
	BotAPIURL  string
	BotTimeout time.Duration

	// Base addresses used when computing per-user resource locators
	MongoBaseURI     string
	BotBaseURL       string
	SchedulerBaseURL string
	ScraperBaseURL   string
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	expiryHours, err := strconv.Atoi(getEnv("TOKEN_EXPIRY_HOURS", "24"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_EXPIRY_HOURS: %w", err)
	}

	bcryptCost, err := strconv.Atoi(getEnv("BCRYPT_COST", strconv.Itoa(bcrypt.DefaultCost)))
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("BCRYPT_COST %d out of range [%d, %d]", bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	timeoutMs, err := strconv.Atoi(getEnv("BOT_TIMEOUT_MS", "30000"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOT_TIMEOUT_MS: %w", err)
	}

	secret := getEnv("JWT_SECRET", "")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	return &Config{
		ServerPort:   port,
		DatabasePath: getEnv("DATABASE_PATH", "./ragpanel.db"),
		AppEnv:       getEnv("APP_ENV", "development"),
		CORSOrigin:   getEnv("CORS_ORIGIN", "http://localhost:3000"),

		JWTSecret:   secret,
		TokenExpiry: time.Duration(expiryHours) * time.Hour,
		BcryptCost:  bcryptCost,

		BotAPIURL:  getEnv("BOT_API_URL", "http://localhost:8001/query"),
		BotTimeout: time.Duration(timeoutMs) * time.Millisecond,

		MongoBaseURI:     getEnv("MONGO_BASE_URI", "mongodb://localhost:27017"),
		BotBaseURL:       getEnv("BOT_BASE_URL", "http://localhost:8001/bots"),
		SchedulerBaseURL: getEnv("SCHEDULER_BASE_URL", "http://localhost:8002/schedules"),
		ScraperBaseURL:   getEnv("SCRAPER_BASE_URL", "http://localhost:8003/scrapers"),
	}, nil
}

// IsProduction reports whether the app is running in production mode.
// Outside production, error payloads may carry extra downstream detail.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
