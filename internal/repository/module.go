package repository

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/tgpass/internal/models"
	"github.com/fatflowers/tgpass/internal/platform/db"
	cfgpkg "github.com/fatflowers/tgpass/pkg/config"
	"github.com/fatflowers/tgpass/pkg/types"
)

// New builds the repository selected by database.driver.
func New(lc fx.Lifecycle, l *zap.SugaredLogger, cfg *cfgpkg.Config) (Repository, error) {
	switch cfg.Database.Driver {
	case cfgpkg.DBDriverMemory:
		l.Warnw("using in-memory repository, data is lost on restart")
		return NewMemory(), nil
	case cfgpkg.DBDriverPostgres, "":
		gdb, err := db.Open(lc, l, cfg)
		if err != nil {
			return nil, err
		}
		return NewGorm(gdb), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

// SeedCatalog upserts the channels and plans declared in configuration.
func SeedCatalog(ctx context.Context, repo CatalogRepository, catalog cfgpkg.CatalogConfig) error {
	for _, c := range catalog.Channels {
		ch := &models.Channel{
			ID:             c.ID,
			OwnerID:        c.OwnerID,
			Name:           c.Name,
			TelegramChatID: c.TelegramChatID,
			CouponDiscount: c.CouponDiscount,
			IsActive:       true,
		}
		if c.CouponCode != "" {
			code := c.CouponCode
			ch.CouponCode = &code
		}
		if err := repo.UpsertChannel(ctx, ch); err != nil {
			return fmt.Errorf("seed channel %s: %w", c.ID, err)
		}
	}
	for _, p := range catalog.Plans {
		if err := repo.UpsertPlan(ctx, planFromCatalog(p)); err != nil {
			return fmt.Errorf("seed plan %s: %w", p.ID, err)
		}
	}
	return nil
}

func planFromCatalog(p *types.CatalogPlan) *models.Plan {
	return &models.Plan{
		ID:              p.ID,
		ChannelID:       p.ChannelID,
		Name:            p.Name,
		MarkupPrice:     p.MarkupPrice,
		DiscountedPrice: p.DiscountedPrice,
		ValidityDays:    p.ValidityDays,
		IsActive:        !p.Inactive,
	}
}

func registerCatalogSeed(lc fx.Lifecycle, l *zap.SugaredLogger, cfg *cfgpkg.Config, repo Repository) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if len(cfg.Catalog.Channels) == 0 && len(cfg.Catalog.Plans) == 0 {
				return nil
			}
			if err := SeedCatalog(ctx, repo, cfg.Catalog); err != nil {
				return err
			}
			l.Infow("catalog seeded", "channels", len(cfg.Catalog.Channels), "plans", len(cfg.Catalog.Plans))
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(registerCatalogSeed),
)
