// Package observer provides OTEL-based observability for llmbatch.
//
// WrapModel returns an instrumented llmbatch.Model that emits traces,
// metrics, and logs via OpenTelemetry for every batch operation. Users export
// to any OTEL-compatible backend by setting standard OTEL env vars.
package observer

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/nevindra/llmbatch/observer"

// Instruments holds all OTEL instruments used by the observer wrappers.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger otellog.Logger

	// Counters
	TokenUsage     metric.Int64Counter
	CostTotal      metric.Float64Counter
	BatchOps       metric.Int64Counter
	BatchRequests  metric.Int64Counter
	BatchResults   metric.Int64Counter
	BatchSubmitted metric.Int64Counter

	// Histograms
	BatchDuration metric.Float64Histogram

	Cost *CostCalculator
}

// Init sets up OTEL trace, metric, and log providers with OTLP HTTP exporters.
// Configuration comes from standard OTEL env vars (OTEL_EXPORTER_OTLP_ENDPOINT, etc.).
// Returns a shutdown function that must be called on application exit.
func Init(ctx context.Context, serviceName string, pricing map[string]ModelPricing) (*Instruments, func(context.Context) error, error) {
	if serviceName == "" {
		serviceName = "llmbatch"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	// Trace provider
	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	// Metric provider
	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	// Log provider
	logExp, err := otlploghttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	inst, err := NewInstruments(tp, mp, lp, pricing)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		_ = lp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tp.Shutdown(ctx),
			mp.Shutdown(ctx),
			lp.Shutdown(ctx),
		)
	}

	return inst, shutdown, nil
}

// NewInstruments creates the instruments from explicit providers. Init uses
// it with the OTLP-backed providers; tests and embedding applications pass
// their own.
func NewInstruments(tp trace.TracerProvider, mp metric.MeterProvider, lp otellog.LoggerProvider, pricing map[string]ModelPricing) (*Instruments, error) {
	tracer := tp.Tracer(scopeName)
	meter := mp.Meter(scopeName)
	logger := lp.Logger(scopeName)

	tokenUsage, err := meter.Int64Counter("llm.token.usage",
		metric.WithDescription("Total tokens consumed by batch results"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	costTotal, err := meter.Float64Counter("llm.cost.total",
		metric.WithDescription("Cumulative batch-discounted LLM cost in USD"),
		metric.WithUnit("USD"))
	if err != nil {
		return nil, err
	}

	batchOps, err := meter.Int64Counter("batch.operations",
		metric.WithDescription("Batch API operation count"),
		metric.WithUnit("{operation}"))
	if err != nil {
		return nil, err
	}

	batchRequests, err := meter.Int64Counter("batch.requests",
		metric.WithDescription("Requests submitted in batches"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	batchResults, err := meter.Int64Counter("batch.results",
		metric.WithDescription("Per-request batch results retrieved, by outcome"),
		metric.WithUnit("{result}"))
	if err != nil {
		return nil, err
	}

	batchSubmitted, err := meter.Int64Counter("batch.submitted",
		metric.WithDescription("Batches created"),
		metric.WithUnit("{batch}"))
	if err != nil {
		return nil, err
	}

	batchDuration, err := meter.Float64Histogram("batch.operation.duration",
		metric.WithDescription("Batch API operation duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:         tracer,
		Meter:          meter,
		Logger:         logger,
		TokenUsage:     tokenUsage,
		CostTotal:      costTotal,
		BatchOps:       batchOps,
		BatchRequests:  batchRequests,
		BatchResults:   batchResults,
		BatchSubmitted: batchSubmitted,
		BatchDuration:  batchDuration,
		Cost:           NewCostCalculator(pricing),
	}, nil
}

// HTTPClient returns an HTTP client whose transport records a client span
// per vendor API call, nested under the batch operation span. Pass it to an
// adapter's WithHTTPClient option.
func HTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}
