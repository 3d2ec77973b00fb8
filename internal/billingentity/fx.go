package billingentity

import (
	"github.com/studiobill/studiobill/internal/billingentity/repository"
	"github.com/studiobill/studiobill/internal/billingentity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billingentity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
