package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-level settings
type Config struct {
	Port        string
	Environment string
	Timezone    string

	// Signal store: DBFile is used unless MongoURI is set
	DBFile   string
	MongoURI string

	// External collaborators
	PriceAPIURL      string
	TelegramBotToken string
	TelegramChatID   string

	// Dispatch profile YAML, optional
	ProfileFile string
}

var AppConfig *Config

// LoadConfig loads environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:             getEnv("PORT", "8080"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		Timezone:         getEnv("TIMEZONE", "America/Sao_Paulo"),
		DBFile:           getEnv("DB_FILE", "database.json"),
		MongoURI:         getEnv("MONGODB_URI", ""),
		PriceAPIURL:      getEnv("PRICE_API_URL", "https://api.cowbex-feed.com/v1/price"),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		ProfileFile:      getEnv("DISPATCH_PROFILE", "dispatch.yaml"),
	}

	AppConfig = config
	return config, nil
}

// Location resolves the configured timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
