package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment selects how the server process behaves at startup.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
	// EnvTest builds the application without connecting or listening.
	EnvTest Environment = "test"
	// EnvServerless connects to the database but never binds a port.
	EnvServerless Environment = "serverless"
)

type Config struct {
	App   AppConfig
	Mongo MongoConfig
	Redis RedisConfig
	Auth  AuthConfig
	AI    *AIConfig
}

type AppConfig struct {
	Port               string
	Env                Environment
	Author             string
	CorsAllowedOrigins string
	LogFile            string
}

type MongoConfig struct {
	URI                    string
	Database               string
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration
	MaxPoolSize            uint64
	// RetireGrace is how long a replaced client stays open for in-flight queries.
	RetireGrace time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("PORT", "3001"),
			Env:                Environment(getEnv("APP_ENV", string(EnvDevelopment))),
			Author:             getEnv("APP_AUTHOR", "Habib Adebayo"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			LogFile:            getEnv("LOG_FILE", ""),
		},
		Mongo: MongoConfig{
			URI:                    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:               getEnv("MONGODB_DB", "docquiz"),
			ServerSelectionTimeout: getEnvAsDuration("MONGODB_SERVER_SELECTION_TIMEOUT", 5*time.Second),
			SocketTimeout:          getEnvAsDuration("MONGODB_SOCKET_TIMEOUT", 45*time.Second),
			MaxPoolSize:            uint64(getEnvAsPositiveInt("MONGODB_MAX_POOL_SIZE", 10)),
			RetireGrace:            getEnvAsDuration("MONGODB_RETIRE_GRACE", 30*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("QUESTION_CACHE_TTL", 10*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "super-secret-key-change-in-production"),
		},
		AI: DefaultAIConfig(),
	}
}

// Listens reports whether the server should bind a port in this environment.
func (c AppConfig) Listens() bool {
	return c.Env != EnvServerless && c.Env != EnvTest
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c AppConfig) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CorsAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// IsProduction is used by the logger to pick a JSON console encoder.
func (c AppConfig) IsProduction() bool {
	return c.Env == EnvProduction || c.Env == EnvServerless
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

// getEnvAsPositiveInt falls back for zero and negative values too.
func getEnvAsPositiveInt(key string, fallback int) int {
	if value := getEnvAsInt(key, fallback); value > 0 {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("5s") or plain milliseconds ("5000").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
