package config

import (
	"os"
	"strconv"
)

// Config holds process-level settings, all overridable via environment.
type Config struct {
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	HTTPPort      string
	QuestionsFile string
	// MaxRetries is the default follow-up budget per question; a question may
	// override it in the catalog file.
	MaxRetries int
	Production bool
}

// Load reads configuration from the environment with sensible defaults.
func Load() *Config {
	return &Config{
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "anamneseai"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		QuestionsFile: getEnv("QUESTIONS_FILE", "questions.json"),
		MaxRetries:    getEnvInt("MAX_RETRIES", 3),
		Production:    os.Getenv("APP_ENV") == "production",
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
