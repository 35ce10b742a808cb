package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/token-session-auth-service/internal/config"
	"github.com/sandeepkv93/token-session-auth-service/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// OpenDatabase returns nil for the memory driver. SQLite schemas are created
// with AutoMigrate; Postgres schemas come from Migrate.
func OpenDatabase(cfg *config.Config) (*gorm.DB, func(), error) {
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case config.DatabaseDriverMemory:
		return nil, func() {}, nil
	case config.DatabaseDriverPostgres:
		dialector = postgres.Open(cfg.DatabaseURL)
	case config.DatabaseDriverSQLite:
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s database: %w", cfg.DatabaseDriver, err)
	}
	if cfg.DatabaseDriver == config.DatabaseDriverSQLite {
		if err := db.AutoMigrate(&domain.User{}); err != nil {
			return nil, nil, fmt.Errorf("migrate sqlite schema: %w", err)
		}
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

// Migrate applies the embedded goose migrations to a Postgres database.
func Migrate(ctx context.Context, dsn string, log *slog.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	log.Info("database migrated", "version", version)
	return nil
}
