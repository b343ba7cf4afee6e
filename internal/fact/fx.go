package fact

import (
	"github.com/smallbiznis/usagehub/internal/fact/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fact.service",
	fx.Provide(service.NewService),
)
