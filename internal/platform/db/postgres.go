package db

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fatflowers/paygate/internal/models"
	cfgpkg "github.com/fatflowers/paygate/pkg/config"
	"github.com/fatflowers/paygate/pkg/gormlog"
)

// NewDB opens the postgres pool backing orders and the webhook log and closes
// it when the application stops.
func NewDB(lc fx.Lifecycle, l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	dbc := cfg.Database
	if dbc.DSN == "" {
		return nil, fmt.Errorf("database.dsn is empty: %w", gorm.ErrInvalidDB)
	}
	gdb, err := gorm.Open(postgres.Open(dbc.DSN), &gorm.Config{
		Logger: gormlog.New(l, dbc.SlowThreshold, cfg.Env == cfgpkg.EnvDev),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if dbc.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbc.MaxOpenConns)
	}
	if dbc.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbc.MaxIdleConns)
	}
	if dbc.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(dbc.ConnMaxLifetime)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := sqlDB.PingContext(ctx); err != nil {
				return fmt.Errorf("ping postgres: %w", err)
			}
			l.Infow("postgres connected", "max_open_conns", dbc.MaxOpenConns)
			return nil
		},
		OnStop: func(context.Context) error {
			l.Infow("closing postgres pool")
			return sqlDB.Close()
		},
	})
	return gdb, nil
}

// Migrate creates or updates the orders and webhook_log tables.
func Migrate(l *zap.SugaredLogger, gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&models.Order{}, &models.WebhookLog{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	l.Infow("schema migrated", "tables", []string{models.Order{}.TableName(), models.WebhookLog{}.TableName()})
	return nil
}

var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Invoke(Migrate),
)
