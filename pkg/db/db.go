package db

import (
	"context"

	"earneasy-rewardplane/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var Module = fx.Module("database",
	fx.Provide(New),
	fx.Invoke(registerLifecycle),
)

// New opens the process-lifetime store. State is scoped to the process by
// design, so the DSN defaults to a shared in-memory SQLite database.
func New(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Info
	if cfg.AppEnv == "production" {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		zap.L().Error("[DB] failed to open database", zap.Error(err))
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// A single connection keeps the shared in-memory database alive and
	// serialises writes.
	sqlDB.SetMaxOpenConns(1)

	zap.L().Info("[DB] database connection successfully configured")

	return db, nil
}

type lifecycleParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	DB        *gorm.DB
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := p.DB.DB()
			if err != nil {
				return err
			}
			zap.L().Info("[DB] closing connection")
			return sqlDB.Close()
		},
	})
}
