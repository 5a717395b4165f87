package configs

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr string
	RedisDB   int

	ServerPort string
	JWTSecret  string

	JudgeBaseURL   string
	JudgeBatchSize int
	JudgeTimeout   time.Duration

	ScoreboardWorkers int
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		RedisAddr: envOr("REDIS_ADDR", "localhost:6379"),
		RedisDB:   envInt("REDIS_DB", 0),

		ServerPort: envOr("SERVER_PORT", "8080"),
		JWTSecret:  os.Getenv("JWT_SECRET"),

		JudgeBaseURL:   os.Getenv("JUDGE_BASE_URL"),
		JudgeBatchSize: envInt("JUDGE_BATCH_SIZE", 20),
		JudgeTimeout:   time.Duration(envInt("JUDGE_TIMEOUT_SECONDS", 15)) * time.Second,

		ScoreboardWorkers: envInt("SCOREBOARD_WORKERS", 2),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
