package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	announcementservice "cityconnect/internal/announcement/service"
	announcementstore "cityconnect/internal/announcement/store"
	billingservice "cityconnect/internal/billing/service"
	billingstore "cityconnect/internal/billing/store"
	complaintservice "cityconnect/internal/complaint/service"
	complaintstore "cityconnect/internal/complaint/store"
	feedbackservice "cityconnect/internal/feedback/service"
	feedbackstore "cityconnect/internal/feedback/store"
	jobservice "cityconnect/internal/job/service"
	jobstore "cityconnect/internal/job/store"
	"cityconnect/internal/platform/config"
	"cityconnect/internal/platform/db"
)

// stores bundles the entity stores for the selected backend.
type stores struct {
	complaints    complaintservice.Store
	bills         billingservice.Store
	announcements announcementservice.Store
	feedback      feedbackservice.Store
	jobs          jobservice.Store
	health        func(ctx context.Context) error
	close         func() error
}

func openStores(ctx context.Context, cfg config.StoreConfig) (*stores, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return &stores{
			complaints:    complaintstore.NewInMemory(),
			bills:         billingstore.NewInMemory(),
			announcements: announcementstore.NewInMemory(),
			feedback:      feedbackstore.NewInMemory(),
			jobs:          jobstore.NewInMemory(),
			health:        func(context.Context) error { return nil },
			close:         func() error { return nil },
		}, nil
	case config.DriverSQLite, config.DriverPostgres:
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	dsn := cfg.DatabaseURL
	if cfg.Driver == config.DriverSQLite {
		dsn = cfg.SQLitePath
		if dir := filepath.Dir(filepath.Clean(dsn)); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
	}
	sqlDB, err := db.Open(ctx, cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}
	dialect := db.Dialect(cfg.Driver)
	return &stores{
		complaints:    complaintstore.NewSQL(sqlDB, dialect),
		bills:         billingstore.NewSQL(sqlDB),
		announcements: announcementstore.NewSQL(sqlDB, dialect),
		feedback:      feedbackstore.NewSQL(sqlDB),
		jobs:          jobstore.NewSQL(sqlDB, dialect),
		health:        sqlDB.PingContext,
		close:         sqlDB.Close,
	}, nil
}
