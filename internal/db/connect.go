// Package db opens the configured line store.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/you/subway-path/internal/config"
	"github.com/you/subway-path/repository"
	"github.com/you/subway-path/service"
)

// Connect opens Postgres when DATABASE_URL is set and SQLite otherwise,
// and makes sure the schema exists. The returned func closes the store.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Store, func(), error) {
	if cfg.UsePostgres() {
		repo, err := repository.NewPostgresLineRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			repo.Close()
			return nil, nil, fmt.Errorf("failed to ensure postgres schema: %w", err)
		}
		logger.Info("connected to postgres")
		return repo, repo.Close, nil
	}

	logger.Info("connecting to sqlite database", "path", cfg.SQLitePath)
	sdb, err := repository.NewSQLiteDB(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	if err := sdb.EnsureSchema(ctx); err != nil {
		sdb.Close()
		return nil, nil, fmt.Errorf("failed to ensure sqlite schema: %w", err)
	}

	closeFn := func() {
		if err := sdb.Close(); err != nil {
			logger.Warn("failed to close sqlite database", "error", err)
		}
	}
	return repository.NewSQLiteLineRepository(sdb), closeFn, nil
}
