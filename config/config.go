package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port  string
	DBUrl string

	DBMaxConns int
	DBMinConns int
	// Supabase (hosted auth provider)
	SupabaseUrl        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	SupabaseJWTSecret  string
	// Frontend URL used for redirects (password reset, checkout return)
	AppURL string
	// Additional allowed CORS origins
	CORSOrigins []string
	// Operator account: treated as admin while no profile row exists for it
	AdminEmail string
	// When true, signup is restricted to emails present in the whitelist table
	WhitelistMode bool
	// Stripe (hosted payment provider, optional)
	StripeEnabled       bool
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceMonthly  string
	StripePriceYearly   string
	// Redis Configuration (rate limiting)
	RedisURL      string
	RedisPassword string
	// Rate Limiting Configuration
	RateLimitWindowSeconds   int
	RateLimitLoginThreshold  int
	RateLimitGlobalThreshold int
}

func LoadConfig() (*Config, error) {
	// Only effective locally; ignored in production when the file is absent
	_ = godotenv.Load()

	cfg := &Config{
		Port:  getEnv("PORT", "8000"),
		DBUrl: getEnv("DATABASE_URL", ""),

		// Conservative defaults: Supabase pools connections via PgBouncer
		DBMaxConns: getEnvInt("DB_MAX_CONNS", 10),
		DBMinConns: getEnvInt("DB_MIN_CONNS", 2),
		// Strip trailing slash to prevent double slashes (e.g. .co//auth)
		SupabaseUrl:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseJWTSecret:  getEnv("SUPABASE_JWT_SECRET", ""),
		AppURL:             strings.TrimRight(getEnv("APP_URL", "http://localhost:5173"), "/"),
		CORSOrigins:        splitCSV(getEnv("CORS_ORIGINS", "")),
		AdminEmail:         getEnv("ADMIN_EMAIL", ""),
		WhitelistMode:      getEnvBool("WHITELIST_MODE", false),

		StripeEnabled:       getEnvBool("STRIPE_ENABLED", false),
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceMonthly:  getEnv("STRIPE_PRICE_ID_MONTHLY", ""),
		StripePriceYearly:   getEnv("STRIPE_PRICE_ID_YEARLY", ""),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		RateLimitWindowSeconds:   getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitLoginThreshold:  getEnvInt("RATE_LIMIT_LOGIN_THRESHOLD", 10),
		RateLimitGlobalThreshold: getEnvInt("RATE_LIMIT_GLOBAL_THRESHOLD", 100),
	}

	// Basic validation to avoid confusing failures later
	if cfg.DBUrl == "" {
		log.Println("WARNING: DATABASE_URL is missing. Application may fail to connect.")
	}
	if cfg.SupabaseUrl == "" {
		log.Println("WARNING: SUPABASE_URL is missing. Authentication endpoints will fail.")
	}
	if cfg.StripeEnabled && cfg.StripeSecretKey == "" {
		log.Println("WARNING: STRIPE_ENABLED is set but STRIPE_SECRET_KEY is missing.")
	}
	if cfg.RedisURL == "" {
		log.Println("WARNING: REDIS_URL not configured. Rate limiting will use in-memory fallback.")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
