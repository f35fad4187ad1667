package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cart resolution strategies.
const (
	CartStrategyScan     = "scan"
	CartStrategyClientID = "client-id"
	CartStrategyLocal    = "local"
)

// Token store mediums.
const (
	TokenStoreMemory = "memory"
	TokenStoreFile   = "file"
	TokenStoreRedis  = "redis"
)

type Config struct {
	AppEnv   string
	LogLevel string

	BaseURL     string
	Timeout     time.Duration
	RoutePreset string
	Routes      Routes
	TokenHeader string

	CartStrategy string

	TokenStore    string
	TokenFile     string
	RedisHost     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	RedisTTL      time.Duration
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Debug("no .env file found, using process environment")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() (Config, error) {
	cfg := Config{
		AppEnv:        getEnv("APP_ENV", "dev"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		BaseURL:       strings.TrimRight(strings.TrimSpace(getEnv("API_BASE_URL", "http://localhost:3000")), "/"),
		Timeout:       getEnvDuration("API_TIMEOUT", 10*time.Second),
		RoutePreset:   getEnv("API_ROUTES", PresetV1),
		TokenHeader:   os.Getenv("TOKEN_HEADER"),
		CartStrategy:  getEnv("CART_STRATEGY", CartStrategyScan),
		TokenStore:    getEnv("TOKEN_STORE", TokenStoreFile),
		TokenFile:     getEnv("TOKEN_FILE", defaultTokenFile()),
		RedisHost:     getEnv("REDIS_HOST", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "watchstore:"),
		RedisTTL:      getEnvDuration("REDIS_SESSION_TTL", 0),
	}

	routes, err := Preset(cfg.RoutePreset)
	if err != nil {
		return Config{}, err
	}
	if err := routes.ApplyEnv(os.Environ()); err != nil {
		return Config{}, err
	}
	cfg.Routes = routes

	switch cfg.CartStrategy {
	case CartStrategyScan, CartStrategyClientID, CartStrategyLocal:
	default:
		return Config{}, fmt.Errorf("config: unknown CART_STRATEGY %q", cfg.CartStrategy)
	}
	switch cfg.TokenStore {
	case TokenStoreMemory, TokenStoreFile, TokenStoreRedis:
	default:
		return Config{}, fmt.Errorf("config: unknown TOKEN_STORE %q", cfg.TokenStore)
	}
	if cfg.BaseURL == "" {
		return Config{}, fmt.Errorf("config: API_BASE_URL is empty")
	}
	return cfg, nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".watchstore-session.json"
	}
	return filepath.Join(home, ".watchstore", "session.json")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
