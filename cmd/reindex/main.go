// Command reindex rebuilds the per-user index and stats cache from the
// source collections. Run it after a migration or whenever the cache is
// suspected stale; rebuilding is idempotent.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"betty/internal/config"
	"betty/internal/domain/store"
	"betty/internal/repository/postgres"
	"betty/internal/service/index"
)

func main() {
	userID := flag.String("user", "", "rebuild a single user (default: all users)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	docStore := postgres.NewStore(pool, cfg.TablePrefix, logger)
	cache := index.NewCache(docStore, logger)

	if *userID != "" {
		if err := cache.Rebuild(ctx, *userID); err != nil {
			log.Fatalf("Rebuild failed for %s: %v", *userID, err)
		}
		logger.Info("rebuild complete", "user_id", *userID)
		return
	}

	users, err := docStore.Query(ctx, store.CollectionUsers, store.Query{})
	if err != nil {
		log.Fatalf("Failed to list users: %v", err)
	}

	var failed int
	for _, user := range users {
		uid := user.String("id")
		if uid == "" {
			continue
		}
		if err := cache.Rebuild(ctx, uid); err != nil {
			logger.Error("rebuild failed", "user_id", uid, "error", err)
			failed++
			continue
		}
		logger.Info("rebuild complete", "user_id", uid)
	}

	logger.Info("reindex finished", "users", len(users), "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}
