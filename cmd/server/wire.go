// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"agromarket_backend/internal/alert"
	"agromarket_backend/internal/app"
	"agromarket_backend/internal/category"
	"agromarket_backend/internal/config"
	"agromarket_backend/internal/crop"
	"agromarket_backend/internal/image"
	"agromarket_backend/internal/jobs"
	"agromarket_backend/internal/location"
	"agromarket_backend/internal/platform/cache"
	"agromarket_backend/internal/platform/database"
	"agromarket_backend/internal/platform/logger"
	"agromarket_backend/internal/post"
	"agromarket_backend/internal/shared"
	"agromarket_backend/internal/user"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		database.NewGORM,
		cache.New,
		provideObjectStore,
		provideCleanup,

		// Core User Services
		user.NewGORMRepository,
		user.NewService,
		user.NewHandler,
		wire.Bind(new(shared.TokenVerifier), new(*user.Service)),

		// Locations
		location.NewGORMRepository,
		location.NewResolver,
		location.NewHandler,

		// Categories
		category.NewGORMRepository,
		category.NewService,
		category.NewHandler,
		wire.Bind(new(post.CategoryExpander), new(*category.Service)),

		// Images
		image.NewService,

		// Posts
		post.NewGORMRepository,
		post.NewService,
		post.NewHandler,

		// Alerts
		alert.NewGORMRepository,
		alert.NewService,
		alert.NewHandler,

		// Crops
		crop.NewGORMRepository,
		crop.NewService,
		crop.NewHandler,

		// Jobs
		jobs.NewPostExpiryJob,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
