package matcher

import (
	"github.com/studiobill/studiobill/internal/matcher/service"
	"go.uber.org/fx"
)

var Module = fx.Module("matcher.service",
	fx.Provide(service.New),
)
