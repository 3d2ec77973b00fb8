package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/studiobill/studiobill/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	eventsMatched   metric.Int64Counter
	invoicesCreated metric.Int64Counter
	rematchRuns     metric.Int64Counter
	payoutsComputed metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Metrics.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.Metrics.Exporter, cfg.Metrics.Endpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.Metrics.Endpoint),
			zap.String("protocol", cfg.Metrics.Exporter),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg config.Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "studiobill"
	}
	meter := provider.Meter(name)

	eventsMatched, err := meter.Int64Counter("studiobill_events_matched_total")
	if err != nil {
		return nil, err
	}
	invoicesCreated, err := meter.Int64Counter("studiobill_invoices_created_total")
	if err != nil {
		return nil, err
	}
	rematchRuns, err := meter.Int64Counter("studiobill_rematch_runs_total")
	if err != nil {
		return nil, err
	}
	payoutsComputed, err := meter.Int64Counter("studiobill_payouts_computed_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		eventsMatched:   eventsMatched,
		invoicesCreated: invoicesCreated,
		rematchRuns:     rematchRuns,
		payoutsComputed: payoutsComputed,
	}, nil
}

// RecordEventsMatched counts events claimed by matcher passes.
func (m *Metrics) RecordEventsMatched(ctx context.Context, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.eventsMatched.Add(ctx, count)
}

// RecordInvoiceCreated counts invoice creations.
func (m *Metrics) RecordInvoiceCreated(ctx context.Context, currency string) {
	if m == nil {
		return
	}
	m.invoicesCreated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("currency", strings.TrimSpace(currency)),
	))
}

// RecordRematchRun counts rematch passes.
func (m *Metrics) RecordRematchRun(ctx context.Context, updated int64) {
	if m == nil {
		return
	}
	m.rematchRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("changed", updated > 0),
	))
}

// RecordPayoutComputed counts payout computations by rate type.
func (m *Metrics) RecordPayoutComputed(ctx context.Context, rateType string) {
	if m == nil {
		return
	}
	m.payoutsComputed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("rate_type", strings.TrimSpace(rateType)),
	))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch protocol {
	case "http":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	case "grpc", "":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported metrics exporter %q", protocol)
	}
}
