package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	API      APIConfig
	Realtime RealtimeConfig
	Server   ServerConfig
	Redis    RedisConfig
}

// APIConfig holds settings for the REST backend the client talks to.
type APIConfig struct {
	BaseURL string // e.g. http://localhost:8080
}

// RealtimeConfig holds settings for the realtime session server.
type RealtimeConfig struct {
	URL string // websocket endpoint, e.g. ws://localhost:8081/ws
}

// ServerConfig holds HTTP settings for the dev emulator server.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// RedisConfig holds Redis connection settings for the dev emulator's
// cross-instance event fan-out. Empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from environment, with optional .env file.
// The realtime and API base URLs are required; a missing one is a fatal
// configuration error surfaced here, before any session view exists.
func Load() (*Config, error) {
	cfg := load()

	var missing []string
	if cfg.API.BaseURL == "" {
		missing = append(missing, "API_BASE_URL")
	}
	if cfg.Realtime.URL == "" {
		missing = append(missing, "REALTIME_URL")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// LoadServer reads configuration for the dev emulator server, which
// does not need the client-side URLs.
func LoadServer() *Config {
	return load()
}

func load() *Config {
	_ = godotenv.Load() // .env

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))

	return &Config{
		API: APIConfig{
			BaseURL: os.Getenv("API_BASE_URL"),
		},
		Realtime: RealtimeConfig{
			URL: os.Getenv("REALTIME_URL"),
		},
		Server: ServerConfig{
			Port:               getEnv("PORT", "8081"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
	}
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
