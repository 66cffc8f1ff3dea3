// File: cmd/server/providers.go
package main

import (
	"context"
	"log"

	"agromarket_backend/internal/config"
	"agromarket_backend/internal/platform/database"
	"agromarket_backend/internal/platform/objectstore"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func provideObjectStore(cfg *config.Config) (objectstore.Store, error) {
	return objectstore.New(context.Background(), cfg)
}

func provideCleanup(logger *zap.Logger, db *gorm.DB) func() {
	return func() {
		logger.Info("Executing cleanup tasks...")
		database.CloseGORMDB(db)
		if err := logger.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
		log.Println("Cleanup finished.")
	}
}
