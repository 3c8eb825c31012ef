// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/juju/errors"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("pos.config")

type Config struct {
	Env      string
	Port     string
	GRPCPort string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	RabbitURL string

	PaymentServerKey string

	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	ShiftDuration time.Duration
	LogLevel      string
	SeedDemo      bool
}

// Load reads .env when present and then the process environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		logger.Infof("no env file loaded: %v", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "5000"),
		GRPCPort:         getEnv("GRPC_PORT", "50051"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", ""),
		DBName:           getEnv("DB_NAME", "coffeeshop"),
		DBSSLMode:        getEnv("DB_SSLMODE", "disable"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisUsername:    getEnv("REDIS_USERNAME", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		JWTSecret:        getEnv("JWT_SECRET", "changeme"),
		RabbitURL:        getEnv("RABBITMQ_URL", ""),
		PaymentServerKey: getEnv("PAYMENT_SERVER_KEY", ""),
		LogLevel:         getEnv("LOG_LEVEL", "<root>=INFO"),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5000")),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimitRequests, err = getInt("RATE_LIMIT_REQUESTS", 100); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = getDuration("JWT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = getDuration("RATE_LIMIT_WINDOW", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShiftDuration, err = getDuration("SHIFT_DURATION", 8*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SeedDemo, err = getBool("SEED_DEMO", false); err != nil {
		return nil, err
	}
	if cfg.Production() && cfg.JWTSecret == "changeme" {
		return nil, errors.NewNotValid(nil, "JWT_SECRET must be set in production")
	}
	return cfg, nil
}

func (c *Config) Production() bool { return c.Env == "production" }

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.NewNotValid(err, fmt.Sprintf("%s must be an integer", key))
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, errors.NewNotValid(err, fmt.Sprintf("%s must be a positive duration", key))
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.NewNotValid(err, fmt.Sprintf("%s must be a boolean", key))
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
