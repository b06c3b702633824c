package observer

import (
	"context"
	"time"

	"github.com/nevindra/llmbatch"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedModel wraps an llmbatch.Model with OTEL instrumentation.
type ObservedModel struct {
	inner llmbatch.Model
	inst  *Instruments
}

// WrapModel returns an instrumented model that emits traces, metrics, and
// logs for every batch operation. Cancel is forwarded through
// llmbatch.CancelBatch, so wrapping a model without cancellation support
// still reports ErrCancelUnsupported.
func WrapModel(inner llmbatch.Model, inst *Instruments) *ObservedModel {
	return &ObservedModel{inner: inner, inst: inst}
}

func (o *ObservedModel) Name() string    { return o.inner.Name() }
func (o *ObservedModel) ModelID() string { return o.inner.ModelID() }

// Unwrap returns the wrapped model.
func (o *ObservedModel) Unwrap() llmbatch.Model { return o.inner }

func (o *ObservedModel) Submit(ctx context.Context, requests []llmbatch.BatchRequest, schema llmbatch.Schema) (string, error) {
	ctx, span := o.start(ctx, "batch.submit",
		AttrBatchRequests.Int(len(requests)),
		AttrSchemaName.String(schema.SchemaName()),
	)
	defer span.End()
	start := time.Now()

	id, err := o.inner.Submit(ctx, requests, schema)

	if err == nil {
		span.SetAttributes(AttrBatchID.String(id))
		o.inst.BatchRequests.Add(ctx, int64(len(requests)), o.metricAttrs())
		o.inst.BatchSubmitted.Add(ctx, 1, o.metricAttrs())
	}
	o.finish(ctx, span, "submit", id, start, err,
		otellog.Int("batch.request_count", len(requests)))
	return id, err
}

func (o *ObservedModel) Status(ctx context.Context, batchID string) (llmbatch.Batch, error) {
	ctx, span := o.start(ctx, "batch.status", AttrBatchID.String(batchID))
	defer span.End()
	start := time.Now()

	b, err := o.inner.Status(ctx, batchID)

	var extra []otellog.KeyValue
	if err == nil {
		span.SetAttributes(
			AttrBatchStatus.String(string(b.Status)),
			AttrBatchTotal.Int(b.RequestCounts.Total),
			AttrBatchCompleted.Int(b.RequestCounts.Completed),
			AttrBatchFailed.Int(b.RequestCounts.Failed),
		)
		extra = append(extra, otellog.String("batch.status", string(b.Status)))
	}
	o.finish(ctx, span, "status", batchID, start, err, extra...)
	return b, err
}

func (o *ObservedModel) Results(ctx context.Context, batchID string) ([]llmbatch.RawResponse, error) {
	ctx, span := o.start(ctx, "batch.results", AttrBatchID.String(batchID))
	defer span.End()
	start := time.Now()

	results, err := o.inner.Results(ctx, batchID)

	var extra []otellog.KeyValue
	if err == nil {
		t := tally(results)
		cost := o.inst.Cost.CalculateBatch(o.inner.ModelID(), t.input, t.output)

		span.SetAttributes(
			AttrBatchResults.Int(len(results)),
			AttrBatchErrors.Int(t.failed),
			AttrTokensInput.Int(t.input),
			AttrTokensOutput.Int(t.output),
			AttrCostUSD.Float64(cost),
		)
		o.recordUsage(ctx, t, cost)
		extra = append(extra,
			otellog.Int("batch.result_count", len(results)),
			otellog.Int("batch.result_errors", t.failed),
			otellog.Int("llm.tokens.input", t.input),
			otellog.Int("llm.tokens.output", t.output),
			otellog.Float64("llm.cost_usd", cost),
		)
	}
	o.finish(ctx, span, "results", batchID, start, err, extra...)
	return results, err
}

func (o *ObservedModel) Cancel(ctx context.Context, batchID string) error {
	ctx, span := o.start(ctx, "batch.cancel", AttrBatchID.String(batchID))
	defer span.End()
	start := time.Now()

	err := llmbatch.CancelBatch(ctx, o.inner, batchID)

	o.finish(ctx, span, "cancel", batchID, start, err)
	return err
}

func (o *ObservedModel) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		AttrLLMModel.String(o.inner.ModelID()),
		AttrLLMProvider.String(o.inner.Name()),
	)
	return o.inst.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *ObservedModel) metricAttrs(extra ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(append([]attribute.KeyValue{
		AttrLLMModel.String(o.inner.ModelID()),
		AttrLLMProvider.String(o.inner.Name()),
	}, extra...)...)
}

// finish records the outcome shared by every operation: span status,
// operation counter, duration histogram and a log record.
func (o *ObservedModel) finish(ctx context.Context, span trace.Span, op, batchID string, start time.Time, err error, extra ...otellog.KeyValue) {
	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	severity := otellog.SeverityInfo
	if err != nil {
		status = "error"
		severity = otellog.SeverityError
		if llmbatch.IsNotReady(err) {
			// Polling before results exist is expected.
			status = "not_ready"
			severity = otellog.SeverityInfo
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if code := llmbatch.ErrorCodeOf(err); code != "" {
			span.SetAttributes(AttrErrorCode.String(string(code)))
		}
	}

	o.inst.BatchOps.Add(ctx, 1, o.metricAttrs(
		AttrBatchOperation.String(op),
		attribute.String("status", status),
	))
	o.inst.BatchDuration.Record(ctx, durationMs, o.metricAttrs(AttrBatchOperation.String(op)))

	var rec otellog.Record
	rec.SetSeverity(severity)
	rec.SetBody(otellog.StringValue("batch " + op + " completed"))
	rec.AddAttributes(
		otellog.String("llm.model", o.inner.ModelID()),
		otellog.String("llm.provider", o.inner.Name()),
		otellog.String("batch.operation", op),
		otellog.String("batch.id", batchID),
		otellog.Float64("batch.duration_ms", durationMs),
		otellog.String("status", status),
	)
	rec.AddAttributes(extra...)
	if err != nil {
		rec.AddAttributes(otellog.String("error", err.Error()))
	}
	o.inst.Logger.Emit(ctx, rec)
}

func (o *ObservedModel) recordUsage(ctx context.Context, t resultTally, cost float64) {
	o.inst.TokenUsage.Add(ctx, int64(t.input), o.metricAttrs(attribute.String("direction", "input")))
	o.inst.TokenUsage.Add(ctx, int64(t.output), o.metricAttrs(attribute.String("direction", "output")))
	o.inst.CostTotal.Add(ctx, cost, o.metricAttrs())
	o.inst.BatchResults.Add(ctx, int64(t.succeeded), o.metricAttrs(attribute.String("outcome", "output")))
	o.inst.BatchResults.Add(ctx, int64(t.failed), o.metricAttrs(attribute.String("outcome", "error")))
}

type resultTally struct {
	input, output     int
	succeeded, failed int
}

func tally(results []llmbatch.RawResponse) resultTally {
	var t resultTally
	for _, r := range results {
		if r.Error != nil {
			t.failed++
		} else {
			t.succeeded++
		}
		if r.Usage != nil {
			t.input += r.Usage.PromptTokens
			t.output += r.Usage.CompletionTokens
		}
	}
	return t
}

// Compile-time interface assertions.
var (
	_ llmbatch.Model     = (*ObservedModel)(nil)
	_ llmbatch.Canceller = (*ObservedModel)(nil)
)
