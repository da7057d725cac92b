package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-service/internal/app"
	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/fsdata"
	"trivia-service/internal/infra/memory"
	pgdata "trivia-service/internal/infra/postgres"
	redisdata "trivia-service/internal/infra/redis"
	transport "trivia-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the trivia API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "5000"
	}

	var provider app.CategoryProvider
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		provider = pgdata.NewProvider(pool)
	case dirExists(cfg.Data.Dir):
		provider = fsdata.NewProvider(cfg.Data.Dir)
	case dirExists("data"):
		provider = fsdata.NewProvider("data")
	default:
		log.Printf("no category source configured, serving demo data")
		provider = memory.NewProviderFromCategories(demoCategory())
	}

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ttl := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		provider = redisdata.NewProvider(redisClient, provider, ttl)
	}

	registry := app.NewRegistry(provider)
	if err := registry.Load(ctx); err != nil {
		// Lookups retry the load; startup with an unreachable store is
		// still a running server.
		log.Printf("initial category load failed: %v", err)
	}

	service := app.NewTriviaService(registry)
	handler := transport.NewHandler(service)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func dirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// demoCategory keeps the server playable with zero configuration.
func demoCategory() domain.Category {
	return domain.Category{
		Slug:        "world-geo",
		Title:       "World Geography",
		Description: "Capitals, rivers, and borders.",
		Questions: []domain.Question{
			{
				ID:      1,
				Text:    "What is the capital of France?",
				Options: []string{"Paris", "London", "Berlin", "Madrid"},
				Answer:  "Paris",
			},
			{
				ID:      2,
				Text:    "Which river flows through Cairo?",
				Options: []string{"The Nile", "The Amazon", "The Danube", "The Volga"},
				Answer:  "The Nile",
			},
		},
	}
}
