package metrics

import "go.uber.org/fx"

// Module wires the meter provider and domain instruments.
var Module = fx.Module("observability.metrics",
	fx.Provide(NewProvider),
	fx.Provide(New),
)
