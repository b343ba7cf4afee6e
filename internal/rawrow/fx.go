package rawrow

import (
	"github.com/smallbiznis/usagehub/internal/rawrow/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("rawrow.repository",
	fx.Provide(repository.Provide),
)
