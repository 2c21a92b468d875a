package config

import (
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config is the full environment surface of the bot.
type Config struct {
	BotToken string
	ClientID string
	GuildID  string

	TaskCategoryID      string
	CompletedCategoryID string
	AdminRoleID         string // optional
	TryoutRoleID        string // optional

	Addr         string // liveness/metrics listen address
	StoreBackend string // memory, redis or postgres
	RedisAddr    string
	DatabaseURL  string
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Failed to load .env file: %v", err)
	}

	cfg := &Config{
		BotToken:            os.Getenv("BOT_TOKEN"),
		ClientID:            os.Getenv("CLIENT_ID"),
		GuildID:             os.Getenv("GUILD_ID"),
		TaskCategoryID:      os.Getenv("TASK_CATEGORY_ID"),
		CompletedCategoryID: os.Getenv("COMPLETED_CATEGORY_ID"),
		AdminRoleID:         os.Getenv("ADMIN_ROLE_ID"),
		TryoutRoleID:        os.Getenv("TRYOUT_ROLE_ID"),
		StoreBackend:        os.Getenv("STORE_BACKEND"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
	}

	if cfg.BotToken == "" {
		return nil, errors.New("BOT_TOKEN is required")
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = "memory"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	cfg.Addr = ":" + port

	return cfg, nil
}
