package main

import (
	"context"
	"fmt"
	"time"

	"reelsapp/reels-api/internal/config"
	"reelsapp/reels-api/internal/logger"
	"reelsapp/reels-api/internal/repository"
	"reelsapp/reels-api/internal/repository/memory"
	"reelsapp/reels-api/internal/repository/mongo"

	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// stores are the repositories selected by database.driver.
type stores struct {
	users repository.UserRepository
	reels repository.ReelRepository
	db    *mongodriver.Database // nil for the memory driver
	close func()
}

func openStores(cfg config.DatabaseConfig) (*stores, error) {
	log := logger.WithModule("db")

	switch cfg.Driver {
	case "memory":
		log.Warn("using in-memory repositories; data is lost on exit")
		return &stores{
			users: memory.NewUserRepository(),
			reels: memory.NewReelRepository(),
			close: func() {},
		}, nil
	case "mongo", "":
		client, err := mongo.ConnectDB(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		db := client.Database(cfg.Name)
		log.WithField("database", cfg.Name).Info("database connection established")
		return &stores{
			users: mongo.NewMongoUserRepository(db),
			reels: mongo.NewMongoReelRepository(db),
			db:    db,
			close: func() {
				log.Info("disconnecting MongoDB")
				if err := mongo.DisconnectDB(client); err != nil {
					log.WithError(err).Error("failed to disconnect MongoDB")
				}
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// ensureIndexes is a no-op for the memory driver.
func (s *stores) ensureIndexes(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	return mongo.EnsureIndexes(ctx, s.db)
}
