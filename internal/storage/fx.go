package storage

import (
	"github.com/smallbiznis/usagehub/internal/config"
	"github.com/smallbiznis/usagehub/internal/storage/domain"
	"github.com/smallbiznis/usagehub/internal/storage/local"
	"go.uber.org/fx"
)

func provideLocal(cfg config.Config) (domain.BlobStore, error) {
	return local.New(cfg.Storage.Dir)
}

var Module = fx.Module("storage",
	fx.Provide(provideLocal),
)
