package metrics

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// AppMetrics holds the resolver's metric instruments.
type AppMetrics struct {
	ResolutionsTotal          metric.Int64Counter
	ResolutionDurationSeconds metric.Float64Histogram
	TierHitsTotal             metric.Int64Counter
	ProviderCallsTotal        metric.Int64Counter
	WriteBackFailuresTotal    metric.Int64Counter
	ItinerariesTotal          metric.Int64Counter
	BatchTargetsTotal         metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// New builds every instrument from meter.
func New(meter metric.Meter) (*AppMetrics, error) {
	var err error
	m := &AppMetrics{}

	if m.ResolutionsTotal, err = meter.Int64Counter(
		"place_resolutions_total",
		metric.WithDescription("Total number of place resolutions by outcome"),
		metric.WithUnit("{resolution}"),
	); err != nil {
		return nil, fmt.Errorf("place_resolutions_total: %w", err)
	}

	if m.ResolutionDurationSeconds, err = meter.Float64Histogram(
		"place_resolution_duration_seconds",
		metric.WithDescription("Duration of place resolutions in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("place_resolution_duration_seconds: %w", err)
	}

	if m.TierHitsTotal, err = meter.Int64Counter(
		"resolution_tier_hits_total",
		metric.WithDescription("Resolutions answered by each tier"),
		metric.WithUnit("{hit}"),
	); err != nil {
		return nil, fmt.Errorf("resolution_tier_hits_total: %w", err)
	}

	if m.ProviderCallsTotal, err = meter.Int64Counter(
		"provider_calls_total",
		metric.WithDescription("Paid provider calls by provider and outcome"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, fmt.Errorf("provider_calls_total: %w", err)
	}

	if m.WriteBackFailuresTotal, err = meter.Int64Counter(
		"writeback_failures_total",
		metric.WithDescription("Failed write-backs by store"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("writeback_failures_total: %w", err)
	}

	if m.ItinerariesTotal, err = meter.Int64Counter(
		"itineraries_built_total",
		metric.WithDescription("Itineraries built"),
		metric.WithUnit("{itinerary}"),
	); err != nil {
		return nil, fmt.Errorf("itineraries_built_total: %w", err)
	}

	if m.BatchTargetsTotal, err = meter.Int64Counter(
		"batch_targets_total",
		metric.WithDescription("Batch pre-warm targets processed by outcome"),
		metric.WithUnit("{target}"),
	); err != nil {
		return nil, fmt.Errorf("batch_targets_total: %w", err)
	}

	return m, nil
}

// Noop returns instruments that record nothing.
func Noop() *AppMetrics {
	m, _ := New(noop.NewMeterProvider().Meter("noop"))
	return m
}

// InitAppMetrics initializes the global instruments once from the global MeterProvider.
func InitAppMetrics(serviceName string) {
	once.Do(func() {
		m, err := New(otel.GetMeterProvider().Meter(serviceName))
		if err != nil {
			log.Fatalf("Metrics: %v", err)
		}
		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the global instruments. Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}

func (m *AppMetrics) TierHit(ctx context.Context, tier string) {
	m.TierHitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
}

func (m *AppMetrics) ProviderCall(ctx context.Context, provider, outcome string) {
	m.ProviderCallsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}

func (m *AppMetrics) WriteBackFailure(ctx context.Context, store string) {
	m.WriteBackFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("store", store)))
}

func (m *AppMetrics) Resolution(ctx context.Context, outcome string, started time.Time) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.ResolutionsTotal.Add(ctx, 1, attrs)
	m.ResolutionDurationSeconds.Record(ctx, time.Since(started).Seconds(), attrs)
}

func (m *AppMetrics) BatchTarget(ctx context.Context, outcome string) {
	m.BatchTargetsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *AppMetrics) Itinerary(ctx context.Context, insufficient bool) {
	m.ItinerariesTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("insufficient_data", insufficient)))
}
