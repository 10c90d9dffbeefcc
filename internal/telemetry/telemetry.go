// Package telemetry exposes run progress as OpenTelemetry metrics.
package telemetry

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"v2x-sim/internal/runner"
)

const instrumentationName = "v2x-sim/internal/telemetry"

// Instrument names.
const (
	StepsMetric      = "v2x.steps"
	AssignedMetric   = "v2x.vehicles.assigned"
	UnassignedMetric = "v2x.vehicles.unassigned"
	TotalRateMetric  = "v2x.step.total_rate"
)

// Sink records counters and a throughput histogram for every step.
type Sink struct {
	steps      metric.Int64Counter
	assigned   metric.Int64Counter
	unassigned metric.Int64Counter
	totalRate  metric.Float64Histogram
	attrs      metric.MeasurementOption

	// set when the sink owns a local provider
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
	log      zerolog.Logger
}

// New creates the instruments on the given provider, or on the global one
// when mp is nil. optimizer is attached to every measurement.
func New(mp metric.MeterProvider, optimizer string) (*Sink, error) {
	var m metric.Meter
	if mp == nil {
		m = otel.Meter(instrumentationName)
	} else {
		m = mp.Meter(instrumentationName)
	}

	s := &Sink{
		attrs: metric.WithAttributes(attribute.String("optimizer", optimizer)),
		log:   zerolog.Nop(),
	}

	var err error
	s.steps, err = m.Int64Counter(
		StepsMetric,
		metric.WithDescription("Simulation steps recorded"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", StepsMetric, err)
	}
	s.assigned, err = m.Int64Counter(
		AssignedMetric,
		metric.WithDescription("Vehicles assigned to a base station, summed over steps"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", AssignedMetric, err)
	}
	s.unassigned, err = m.Int64Counter(
		UnassignedMetric,
		metric.WithDescription("Vehicles left without a base station, summed over steps"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", UnassignedMetric, err)
	}
	s.totalRate, err = m.Float64Histogram(
		TotalRateMetric,
		metric.WithDescription("Finite throughput of assigned links per step"),
		metric.WithUnit("Mbit/s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s histogram: %w", TotalRateMetric, err)
	}
	return s, nil
}

// NewLocal creates a sink backed by its own in-process provider. On Close
// the collected metrics are written to the log.
func NewLocal(optimizer string, log zerolog.Logger) (*Sink, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	s, err := New(provider, optimizer)
	if err != nil {
		return nil, err
	}
	s.provider = provider
	s.reader = reader
	s.log = log
	return s, nil
}

// Record implements runner.Sink.
func (s *Sink) Record(ctx context.Context, result runner.StepResult) error {
	sum := result.Summary
	s.steps.Add(ctx, 1, s.attrs)
	s.assigned.Add(ctx, int64(sum.Assigned), s.attrs)
	s.unassigned.Add(ctx, int64(sum.Unassigned), s.attrs)
	s.totalRate.Record(ctx, sum.TotalRate, s.attrs)
	return nil
}

// Close flushes a local provider. Sinks on an external provider leave it
// to its owner.
func (s *Sink) Close() error {
	if s.provider == nil {
		return nil
	}
	ctx := context.Background()

	var rm metricdata.ResourceMetrics
	if err := s.reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("failed to collect metrics: %w", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			logMetric(s.log, m)
		}
	}
	return s.provider.Shutdown(ctx)
}

func logMetric(log zerolog.Logger, m metricdata.Metrics) {
	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		var total int64
		for _, dp := range data.DataPoints {
			total += dp.Value
		}
		log.Info().Str("metric", m.Name).Int64("value", total).Msg("Telemetry")
	case metricdata.Histogram[float64]:
		var count uint64
		var sum float64
		for _, dp := range data.DataPoints {
			count += dp.Count
			sum += dp.Sum
		}
		log.Info().Str("metric", m.Name).Uint64("count", count).Float64("sum", sum).Msg("Telemetry")
	}
}
