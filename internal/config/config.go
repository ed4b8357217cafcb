package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	SchedulerEnabled  bool
	SchedulerInterval time.Duration
	SchedulerWorkers  int
	InFlightTTL       time.Duration

	GatewayChargeSuccessRate float64
	GatewayRefundSuccessRate float64
	GatewayLatency           time.Duration
	GatewaySeed              int64
}

// Load reads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		SchedulerEnabled:  getEnvAsBool("SCHEDULER_ENABLED", true),
		SchedulerInterval: getEnvAsDuration("SCHEDULER_INTERVAL", time.Minute),
		SchedulerWorkers:  getEnvAsInt("SCHEDULER_WORKERS", 4),
		InFlightTTL:       getEnvAsDuration("INFLIGHT_TTL", 5*time.Minute),

		GatewayChargeSuccessRate: getEnvAsFloat("GATEWAY_CHARGE_SUCCESS_RATE", 0.90),
		GatewayRefundSuccessRate: getEnvAsFloat("GATEWAY_REFUND_SUCCESS_RATE", 0.90),
		GatewayLatency:           getEnvAsDuration("GATEWAY_LATENCY", 0),
		GatewaySeed:              getEnvAsInt64("GATEWAY_SEED", 0),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
