package db

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fatflowers/tgpass/internal/models"
	cfgpkg "github.com/fatflowers/tgpass/pkg/config"
	gormzap "github.com/fatflowers/tgpass/pkg/gormlog"
)

// Open connects to postgres, migrates the schema and closes the pool on stop.
func Open(lc fx.Lifecycle, l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		l.Error("database DSN is empty")
		return nil, gorm.ErrInvalidDB
	}
	gdb, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger:         gormzap.New(l, cfg.Database.LogLevel, cfg.Database.SlowThreshold),
		TranslateError: true,
	})
	if err != nil {
		l.Errorf("failed to connect database: %v", err)
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	l.Infow("connected to postgres", "max_open_conns", cfg.Database.MaxOpenConns)

	if err := AutoMigrate(l, gdb); err != nil {
		return nil, err
	}
	registerDBClose(lc, l, gdb)
	return gdb, nil
}

// AutoMigrate runs GORM migrations on startup
func AutoMigrate(l *zap.SugaredLogger, gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.Channel{},
		&models.Plan{},
		&models.Subscription{},
		&models.SubscriptionLog{},
		&models.InviteLink{},
		&models.Transaction{},
		&models.TransactionLog{},
		&models.PaymentNotificationLog{},
		&models.AuditLog{},
	); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	l.Infow("automigrate completed")
	return nil
}

func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	if lc == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing postgres connection pool")
			return sqlDB.Close()
		},
	})
}
