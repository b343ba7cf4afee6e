package dataset

import (
	"github.com/smallbiznis/usagehub/internal/dataset/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dataset.service",
	fx.Provide(service.NewService),
)
