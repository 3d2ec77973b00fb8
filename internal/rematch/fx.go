package rematch

import (
	"github.com/studiobill/studiobill/internal/rematch/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rematch.service",
	fx.Provide(service.New),
)
