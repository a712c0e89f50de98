package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"earneasy-rewardplane/pkg/config"
	"earneasy-rewardplane/pkg/db"
	"earneasy-rewardplane/pkg/gen"
	"earneasy-rewardplane/pkg/health"
	"earneasy-rewardplane/pkg/logger"
	"earneasy-rewardplane/pkg/server"
	"earneasy-rewardplane/services/adnet"
	"earneasy-rewardplane/services/consent"
	"earneasy-rewardplane/services/ledger"
	"earneasy-rewardplane/services/settings"
	"earneasy-rewardplane/services/task"
	"earneasy-rewardplane/services/user"
	"earneasy-rewardplane/services/withdrawal"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		gen.Module,
		server.Module,
		health.Module,
		consent.Module,
		adnet.Module,
		settings.Module,
		user.Module,
		ledger.Module,
		withdrawal.Module,
		task.Module,
		fx.Invoke(migrate),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&user.User{},
		&ledger.Account{},
		&ledger.Entry{},
		&withdrawal.Request{},
		&task.Task{},
	)
}
