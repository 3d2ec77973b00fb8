package tagrule

import (
	"github.com/studiobill/studiobill/internal/tagrule/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("tagrule",
	fx.Provide(repository.Provide),
)
