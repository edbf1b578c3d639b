package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	GoldPrice GoldPriceConfig
	Sources   SourcesConfig
	S3        S3Config
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	LogFormat   string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	PriceTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// GoldPriceConfig tunes conversion, dedup and scheduling of price updates.
type GoldPriceConfig struct {
	Tolerance     int64
	DedupWindow   time.Duration
	DedupCapacity int
	SellMarkup    float64 // applied to external base prices
	BuyDiscount   float64 // buy = sell * (1 - BuyDiscount)
	Sources       []string
	Schedules     []string
	Timezone      string
	ChangeLimit   int
}

type SourcesConfig struct {
	MetalPriceURL string
	MetalPriceKey string
	GoldAPIURL    string
	GoldAPIKey    string
	RatePerSecond float64
	Timeout       time.Duration
}

// S3Config object storage for archived history exports. An empty bucket disables archiving.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // S3-compatible endpoint (MinIO etc.), path-style addressing
	Prefix          string
	URLExpiry       time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogFormat:   getEnv("LOG_FORMAT", "console"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "fajargold"),
			Password: getEnv("DB_PASSWORD", "fajargold"),
			DBName:   getEnv("DB_NAME", "fajargold"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  parseBool(getEnv("REDIS_ENABLED", "false")),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
			PriceTTL: parseDuration(getEnv("REDIS_PRICE_TTL", "10m"), 10*time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		},
		GoldPrice: GoldPriceConfig{
			Tolerance:     int64(parseInt(getEnv("GOLD_PRICE_TOLERANCE", "1000"), 1000)),
			DedupWindow:   parseDuration(getEnv("GOLD_PRICE_DEDUP_WINDOW", "5m"), 5*time.Minute),
			DedupCapacity: parseInt(getEnv("GOLD_PRICE_DEDUP_CAPACITY", "256"), 256),
			SellMarkup:    parseFloat(getEnv("GOLD_PRICE_SELL_MARKUP", "0.05"), 0.05),
			BuyDiscount:   parseFloat(getEnv("GOLD_PRICE_BUY_DISCOUNT", "0.05"), 0.05),
			Sources:       parseSlice(getEnv("GOLD_PRICE_SOURCES", "metalpriceapi,goldapi"), ","),
			Schedules:     parseSlice(getEnv("GOLD_PRICE_SCHEDULES", "0 8 * * *;0 12 * * *;0 16 * * *"), ";"),
			Timezone:      getEnv("GOLD_PRICE_TIMEZONE", "Asia/Jakarta"),
			ChangeLimit:   parseInt(getEnv("GOLD_PRICE_CHANGE_LIMIT", "10"), 10),
		},
		Sources: SourcesConfig{
			MetalPriceURL: getEnv("METALPRICE_API_URL", "https://api.metalpriceapi.com/v1/latest"),
			MetalPriceKey: getEnv("METALPRICE_API_KEY", ""),
			GoldAPIURL:    getEnv("GOLDAPI_URL", "https://www.goldapi.io/api/XAU/IDR"),
			GoldAPIKey:    getEnv("GOLDAPI_KEY", ""),
			RatePerSecond: parseFloat(getEnv("SOURCE_RATE_LIMIT", "1"), 1),
			Timeout:       parseDuration(getEnv("SOURCE_TIMEOUT", "10s"), 10*time.Second),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-southeast-3"),
			Bucket:          getEnv("AWS_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("AWS_S3_ENDPOINT", ""),
			Prefix:          getEnv("AWS_S3_EXPORT_PREFIX", "exports"),
			URLExpiry:       parseDuration(getEnv("AWS_S3_URL_EXPIRY", "15m"), 15*time.Minute),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Location resolves the scheduler timezone, falling back to UTC+7.
func (c *GoldPriceConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Invalid timezone %s, using fixed UTC+7", c.Timezone)
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, def time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, def)
		return def
	}
	return duration
}

func parseInt(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, def)
		return def
	}
	return v
}

func parseFloat(s string, def float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Printf("Invalid number %s, using default %v", s, def)
		return def
	}
	return v
}

func parseBool(s string) bool {
	v, _ := strconv.ParseBool(s)
	return v
}

func parseSlice(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
