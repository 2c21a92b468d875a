package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskbot/api"
	"taskbot/approval"
	"taskbot/config"
	"taskbot/gateway"
	"taskbot/lifecycle"
	"taskbot/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	taskStore, err := newStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s store: %v", cfg.StoreBackend, err)
	}

	bot, err := gateway.NewBot(cfg.BotToken)
	if err != nil {
		log.Fatalf("Failed to create gateway: %v", err)
	}

	engine := approval.NewEngine(taskStore, bot)
	controller := lifecycle.NewController(taskStore, bot, lifecycle.Config{
		TaskCategoryID:      cfg.TaskCategoryID,
		CompletedCategoryID: cfg.CompletedCategoryID,
		AdminRoleID:         cfg.AdminRoleID,
		TryoutRoleID:        cfg.TryoutRoleID,
	})

	bot.OnMessage = engine.HandleMessage
	bot.OnCommand = controller.HandleCommand

	if err := bot.Open(); err != nil {
		log.Fatalf("Failed to connect to gateway: %v", err)
	}

	if cfg.ClientID != "" && cfg.GuildID != "" {
		if err := bot.RegisterCommands(cfg.ClientID, cfg.GuildID); err != nil {
			log.Printf("Failed to register slash commands: %v", err)
		} else {
			log.Println("Slash commands registered")
		}
	}

	server := api.NewServer(cfg.Addr)
	go func() {
		log.Printf("HTTP server listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := bot.Close(); err != nil {
		log.Printf("Gateway close error: %v", err)
	}
	log.Println("TaskBot stopped")
}

func newStore(cfg *config.Config) (store.TaskStore, error) {
	switch cfg.StoreBackend {
	case "redis":
		return store.NewRedisStore(cfg.RedisAddr)
	case "postgres":
		return store.NewPostgresStore(context.Background(), cfg.DatabaseURL)
	default:
		return store.NewMemoryStore(), nil
	}
}
