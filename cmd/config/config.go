package config

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
)

var (
	RunAddress    string
	DatabaseURI   string
	RedisAddress  string
	RedisPassword string
	LogLevel      string
	JWTSecret     string
	GeminiAPIKey  string
	GeminiBaseURL string
	AdminPhone    string
	AdminPassword string
	AdminName     string
)

func ParseFlags() {
	godotenv.Load()

	flag.StringVar(&RunAddress, "a", ":8080", "address to run server")
	flag.StringVar(&DatabaseURI, "d", "", "database uri")
	flag.StringVar(&RedisAddress, "r", "", "redis mirror address")
	flag.StringVar(&LogLevel, "l", "info", "log level")
	flag.Parse()

	if envRunAddr := os.Getenv("RUN_ADDRESS"); envRunAddr != "" {
		RunAddress = envRunAddr
	}
	if databaseURI := os.Getenv("DATABASE_URI"); databaseURI != "" {
		DatabaseURI = databaseURI
	}
	if redisAddr := os.Getenv("REDIS_ADDRESS"); redisAddr != "" {
		RedisAddress = redisAddr
	}
	RedisPassword = os.Getenv("REDIS_PASSWORD")
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		LogLevel = logLevel
	}

	JWTSecret = os.Getenv("JWT_SECRET")
	if JWTSecret == "" {
		JWTSecret = "investpkr-dev-secret"
	}

	GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	GeminiBaseURL = os.Getenv("GEMINI_BASE_URL")

	AdminPhone = os.Getenv("ADMIN_PHONE")
	AdminPassword = os.Getenv("ADMIN_PASSWORD")
	AdminName = os.Getenv("ADMIN_NAME")
	if AdminName == "" {
		AdminName = "Master Admin"
	}
}
