package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Gateway   GatewayConfig
	Public    PublicConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Payments  PaymentsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port        string
	Env         string
	CORSOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	Password string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

// GatewayConfig holds payment gateway credentials and endpoints
type GatewayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	APIURL        string
	CheckoutURL   string
	Timeout       time.Duration
}

// Configured reports whether order creation can be attempted at all.
func (c GatewayConfig) Configured() bool {
	return c.KeyID != "" && c.KeySecret != ""
}

// PublicConfig holds the externally visible addresses used in redirects
type PublicConfig struct {
	BaseURL      string
	UIReturnPath string
	APIBaseURL   string
}

// CallbackURL is where the gateway sends the browser after checkout.
func (c PublicConfig) CallbackURL() string {
	return strings.TrimRight(c.APIBaseURL, "/") + "/payments/callback"
}

// ReturnURL joins the public base URL and the UI return path.
func (c PublicConfig) ReturnURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(c.UIReturnPath, "/")
}

// AuthConfig controls how callers are identified
type AuthConfig struct {
	AllowIdentityHeader bool
}

// RateLimitConfig holds the per-IP signup limiter settings
type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

// PaymentsConfig holds ledger housekeeping settings
type PaymentsConfig struct {
	PendingTTL    time.Duration
	SweepInterval time.Duration
	// Prices maps "plan:CURRENCY" to the expected amount in minor units.
	// Checkout rejects other amounts for listed pairs.
	Prices map[string]int64
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			Env:         getEnv("SERVER_ENV", "development"),
			CORSOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvAsInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "planledger"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", "change-this-in-production"),
			AccessExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", 24*time.Hour),
		},
		Gateway: GatewayConfig{
			KeyID:         getEnv("GATEWAY_KEY_ID", ""),
			KeySecret:     getEnv("GATEWAY_KEY_SECRET", ""),
			WebhookSecret: getEnv("GATEWAY_WEBHOOK_SECRET", ""),
			APIURL:        getEnv("GATEWAY_API_URL", "https://api.razorpay.com"),
			CheckoutURL:   getEnv("GATEWAY_CHECKOUT_URL", "https://checkout.razorpay.com/pay"),
			Timeout:       getEnvAsDuration("GATEWAY_TIMEOUT", 10*time.Second),
		},
		Public: PublicConfig{
			BaseURL:      getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
			UIReturnPath: getEnv("UI_RETURN_PATH", "/billing"),
			APIBaseURL:   getEnv("API_BASE_URL", "http://localhost:8080"),
		},
		Auth: AuthConfig{
			AllowIdentityHeader: getEnvAsBool("AUTH_ALLOW_IDENTITY_HEADER", true),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 10),
			Burst:     getEnvAsInt("RATE_LIMIT_BURST", 5),
		},
		Payments: PaymentsConfig{
			PendingTTL:    getEnvAsDuration("PAYMENT_PENDING_TTL", 24*time.Hour),
			SweepInterval: getEnvAsDuration("PAYMENT_SWEEP_INTERVAL", 0),
			Prices:        getEnvAsPrices("PLAN_PRICES"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvAsPrices parses "starter:INR:99900,pro:USD:2900". Malformed entries
// are skipped.
func getEnvAsPrices(key string) map[string]int64 {
	prices := map[string]int64{}
	for _, entry := range getEnvAsList(key, nil) {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			continue
		}
		amount, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
		if err != nil || amount <= 0 {
			continue
		}
		plan := strings.ToLower(strings.TrimSpace(parts[0]))
		currency := strings.ToUpper(strings.TrimSpace(parts[1]))
		prices[plan+":"+currency] = amount
	}
	return prices
}
