package migration

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/usagehub/internal/config"
	"github.com/smallbiznis/usagehub/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}

		if cfg.DefaultAccountID != 0 {
			return seed.EnsureDefaultAccountWithID(conn, snowflake.ID(cfg.DefaultAccountID))
		}
		return seed.EnsureDefaultAccount(conn)
	}),
)
