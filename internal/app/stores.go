// Package app opens the backing stores shared by the API server and the ops CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/repository"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/repository/mongostore"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/config"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/database"
)

// Stores is the document backend selected by STORE_DRIVER.
type Stores struct {
	Driver   string
	Students service.StudentStore
	Courses  service.CourseStore
	// Ping reports backend reachability for readiness probes.
	Ping  func(ctx context.Context) error
	Close func() error
}

// OpenStores connects to Postgres or MongoDB and prepares the schema.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMongo:
		client, db, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		logger.Info("document store ready", zap.String("driver", cfg.Store.Driver), zap.String("database", cfg.Mongo.Database))
		return &Stores{
			Driver:   cfg.Store.Driver,
			Students: mongostore.NewStudentStore(db),
			Courses:  mongostore.NewCourseStore(db),
			Ping:     func(ctx context.Context) error { return client.Ping(ctx, nil) },
			Close: func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return client.Disconnect(ctx)
			},
		}, nil
	case config.StoreDriverPostgres, "":
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := repository.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("document store ready", zap.String("driver", config.StoreDriverPostgres), zap.String("database", cfg.Database.Name))
		return &Stores{
			Driver:   config.StoreDriverPostgres,
			Students: repository.NewStudentRepository(db),
			Courses:  repository.NewCourseRepository(db),
			Ping:     db.PingContext,
			Close:    db.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
