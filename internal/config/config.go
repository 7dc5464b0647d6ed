package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the configuration for the application.
type Config struct {
	GeminiAPIKey string
	GeminiModel  string

	DatabasePath string

	// Weather endpoints. Overridable so tests can point at a local server.
	GeocodeBaseURL  string
	ForecastBaseURL string

	// WeatherCacheTTL is the staleness window for cached weather reports.
	WeatherCacheTTL time.Duration

	// DefaultLocation seeds the background cache refresh when the user has
	// not saved a location yet.
	DefaultLocation string

	Port string
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	cacheTTLStr := getenvDefault("WEATHER_CACHE_TTL", "12h")
	cacheTTL, err := time.ParseDuration(cacheTTLStr)
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_CACHE_TTL: %w", err)
	}

	return &Config{
		GeminiAPIKey:    geminiAPIKey,
		GeminiModel:     getenvDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		DatabasePath:    getenvDefault("DATABASE_PATH", "data/plant-care.db"),
		GeocodeBaseURL:  getenvDefault("GEOCODE_BASE_URL", "https://geocoding-api.open-meteo.com/v1"),
		ForecastBaseURL: getenvDefault("FORECAST_BASE_URL", "https://api.open-meteo.com/v1"),
		WeatherCacheTTL: cacheTTL,
		DefaultLocation: os.Getenv("DEFAULT_LOCATION"),
		Port:            getenvDefault("PORT", "8080"),
	}, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
