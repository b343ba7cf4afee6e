package normalize

import (
	"github.com/smallbiznis/usagehub/internal/normalize/service"
	"go.uber.org/fx"
)

var Module = fx.Module("normalize.service",
	fx.Provide(service.NewService),
)
