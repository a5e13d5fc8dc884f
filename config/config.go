package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DBUrl         string
	JWTSecret     string
	AllowedOrigin string
	// DB Config
	DBMaxConns        int32
	DBMinConns        int32
	DBMaxConnIdleTime time.Duration
	// Cache
	CacheProductTTL time.Duration
	// Shipping provider (Shiprocket)
	ShippingBaseURL        string
	ShippingEmail          string
	ShippingPassword       string
	ShippingPickupLocation string
	ShippingTokenTTL       time.Duration
	ShippingTimeout        time.Duration
	// Transactional email
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	// Background side effects (shipment sync, email)
	BackgroundTaskTimeout time.Duration
	// HTTP
	RateLimitRPS    float64
	RateLimitBurst  int
	ShutdownTimeout time.Duration
	// Business Rules
	MaxCartQuantity  int
	ReturnWindowDays int
}

func LoadConfig() *Config {
	// 1. Check if a specific config file is requested via env var
	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("Warning: Failed to load config file '%s': %v", configFile, err)
		} else {
			log.Printf("Loaded configuration from %s", configFile)
		}
	} else {
		// 2. Default fallback: .env for local dev, plain env vars in containers
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading it, relying on system env vars")
		}
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DBUrl:         getEnv("DB_DSN", ""),
		JWTSecret:     getEnv("JWT_SECRET", "default_secret_CHANGE_ME"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),

		DBMaxConns:        getInt32Env("DB_MAX_CONNS", 50),
		DBMinConns:        getInt32Env("DB_MIN_CONNS", 10),
		DBMaxConnIdleTime: getDurationEnv("DB_MAX_CONN_IDLE_TIME", time.Minute*15),

		CacheProductTTL: getDurationEnv("CACHE_PRODUCT_TTL", 10*time.Minute),

		// Shiprocket tokens are valid for 10 days; refresh a day early.
		ShippingBaseURL:        getEnv("SHIPROCKET_BASE_URL", "https://apiv2.shiprocket.in/v1/external"),
		ShippingEmail:          getEnv("SHIPROCKET_EMAIL", ""),
		ShippingPassword:       getEnv("SHIPROCKET_PASSWORD", ""),
		ShippingPickupLocation: getEnv("SHIPROCKET_PICKUP_LOCATION", "Primary"),
		ShippingTokenTTL:       getDurationEnv("SHIPROCKET_TOKEN_TTL", 9*24*time.Hour),
		ShippingTimeout:        getDurationEnv("SHIPPING_TIMEOUT", 15*time.Second),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getIntEnv("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "orders@krume.in"),

		BackgroundTaskTimeout: getDurationEnv("BACKGROUND_TASK_TIMEOUT", 30*time.Second),

		RateLimitRPS:    getFloatEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst:  getIntEnv("RATE_LIMIT_BURST", 100),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 15*time.Second),

		MaxCartQuantity:  getIntEnv("MAX_CART_QUANTITY", 100),
		ReturnWindowDays: getIntEnv("RETURN_WINDOW_DAYS", 7),
	}

	cfg.Validate()
	return cfg
}

func (c *Config) Validate() {
	if c.DBUrl == "" {
		log.Fatal("CRITICAL: DB_DSN environment variable is required")
	}
	if c.JWTSecret == "default_secret_CHANGE_ME" {
		log.Println("WARNING: Using default JWT secret. Setting up for failure in production.")
	}
	if c.ShippingEmail == "" || c.ShippingPassword == "" {
		log.Println("WARNING: Shiprocket credentials missing, shipment sync disabled")
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s, using fallback", key)
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Printf("Invalid int for %s, using fallback", key)
	}
	return fallback
}
