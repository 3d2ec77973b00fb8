package event

import (
	"github.com/studiobill/studiobill/internal/event/repository"
	"github.com/studiobill/studiobill/internal/event/service"
	"go.uber.org/fx"
)

var Module = fx.Module("event.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
