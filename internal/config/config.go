package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	HTTPAddr        string
	RedisAddr       string
	RedisPass       string
	SessionTTL      time.Duration
	RateLimitPerMin int
	AggregateCron   string
	SnowflakeNode   int64
}

func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("admin-core: No .env file found, relying on system env vars")
	}

	ttl, err := time.ParseDuration(getEnv("ADMIN_SESSION_TTL", "8h"))
	if err != nil {
		ttl = 8 * time.Hour
	}

	return AppConfig{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8085"),
		RedisAddr:       getEnv("REDIS_ADDR", "redis:6379"),
		RedisPass:       getEnv("REDIS_PASS", ""),
		SessionTTL:      ttl,
		RateLimitPerMin: getEnvAsInt("RATE_LIMIT_PER_MIN", 300),
		AggregateCron:   getEnv("AGGREGATE_CRON", "15 0 * * *"), // daily, 00:15 UTC
		SnowflakeNode:   int64(getEnvAsInt("SNOWFLAKE_NODE", 1)),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
