package observer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nevindra/llmbatch"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/log/global"
	lognoop "go.opentelemetry.io/otel/log/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockModel for observer tests.
type mockModel struct {
	batch      llmbatch.Batch
	results    []llmbatch.RawResponse
	err        error
	cancelled  []string
	submitted  int
	resultCall int
}

func (m *mockModel) Name() string    { return "mock" }
func (m *mockModel) ModelID() string { return "gpt-4o-mini" }
func (m *mockModel) Submit(_ context.Context, reqs []llmbatch.BatchRequest, _ llmbatch.Schema) (string, error) {
	m.submitted += len(reqs)
	return "batch_1", m.err
}
func (m *mockModel) Status(_ context.Context, _ string) (llmbatch.Batch, error) {
	return m.batch, m.err
}
func (m *mockModel) Results(_ context.Context, _ string) ([]llmbatch.RawResponse, error) {
	m.resultCall++
	return m.results, m.err
}

// cancellableModel adds cancellation to mockModel.
type cancellableModel struct{ *mockModel }

func (m cancellableModel) Cancel(_ context.Context, id string) error {
	m.cancelled = append(m.cancelled, id)
	return m.err
}

type harness struct {
	inst   *Instruments
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
}

// newHarness builds Instruments backed by an in-memory span recorder and a
// manual metric reader.
func newHarness(t *testing.T) *harness {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	inst, err := NewInstruments(tp, mp, lognoop.NewLoggerProvider(), nil)
	if err != nil {
		t.Fatalf("NewInstruments: %v", err)
	}
	return &harness{inst: inst, spans: spans, reader: reader}
}

func (h *harness) spanNames() []string {
	var names []string
	for _, s := range h.spans.Ended() {
		names = append(names, s.Name())
	}
	return names
}

// sumInt64 returns the sum of all data points of an int64 counter whose
// attributes include key=value (or all points when key is empty).
func (h *harness) sumInt64(t *testing.T, name, key, value string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is %T, want Sum[int64]", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				if key != "" {
					v, ok := dp.Attributes.Value(attribute.Key(key))
					if !ok || v.AsString() != value {
						continue
					}
				}
				total += dp.Value
			}
		}
	}
	return total
}

func raw(s string) *json.RawMessage {
	r := json.RawMessage(s)
	return &r
}

// ---------------------------------------------------------------------------
// ObservedModel tests
// ---------------------------------------------------------------------------

func TestObservedModelIdentity(t *testing.T) {
	inner := &mockModel{}
	om := WrapModel(inner, newHarness(t).inst)

	if om.Name() != "mock" {
		t.Errorf("Name() = %q, want %q", om.Name(), "mock")
	}
	if om.ModelID() != "gpt-4o-mini" {
		t.Errorf("ModelID() = %q, want %q", om.ModelID(), "gpt-4o-mini")
	}
	if om.Unwrap() != llmbatch.Model(inner) {
		t.Error("Unwrap() should return the wrapped model")
	}
}

func TestObservedModelSubmit(t *testing.T) {
	h := newHarness(t)
	inner := &mockModel{}
	om := WrapModel(inner, h.inst)

	id, err := om.Submit(context.Background(), []llmbatch.BatchRequest{
		{CustomID: "a", Input: "x"},
		{CustomID: "b", Input: "y"},
	}, llmbatch.Schema{Name: "s"})
	if err != nil {
		t.Fatalf("Submit returned unexpected error: %v", err)
	}
	if id != "batch_1" {
		t.Errorf("id = %q, want %q", id, "batch_1")
	}
	if inner.submitted != 2 {
		t.Errorf("inner received %d requests, want 2", inner.submitted)
	}

	names := h.spanNames()
	if len(names) != 1 || names[0] != "batch.submit" {
		t.Errorf("spans = %v, want [batch.submit]", names)
	}
	if got := h.sumInt64(t, "batch.requests", "", ""); got != 2 {
		t.Errorf("batch.requests = %d, want 2", got)
	}
	if got := h.sumInt64(t, "batch.operations", "batch.operation", "submit"); got != 1 {
		t.Errorf("batch.operations{submit} = %d, want 1", got)
	}
}

func TestObservedModelStatusError(t *testing.T) {
	h := newHarness(t)
	wantErr := llmbatch.NewBatchError(llmbatch.CodeBatchRetrievalFailed, "batch_1", "retrieve batch", errors.New("boom"))
	om := WrapModel(&mockModel{err: wantErr}, h.inst)

	_, err := om.Status(context.Background(), "batch_1")
	if !errors.Is(err, wantErr) {
		t.Errorf("Status error = %v, want %v", err, wantErr)
	}

	ended := h.spans.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", ended[0].Status().Code)
	}
}

func TestObservedModelResultsNotReadyIsNotAnError(t *testing.T) {
	h := newHarness(t)
	notReady := llmbatch.NewBatchError(llmbatch.CodeResultsNotReady, "batch_1", "not yet", nil)
	om := WrapModel(&mockModel{err: notReady}, h.inst)

	_, err := om.Results(context.Background(), "batch_1")
	if !llmbatch.IsNotReady(err) {
		t.Fatalf("expected results_not_ready, got %v", err)
	}
	if code := h.spans.Ended()[0].Status().Code; code == codes.Error {
		t.Error("results_not_ready should not mark the span as failed")
	}
	if got := h.sumInt64(t, "batch.operations", "status", "not_ready"); got != 1 {
		t.Errorf("batch.operations{not_ready} = %d, want 1", got)
	}
}

func TestObservedModelResultsRecordsUsage(t *testing.T) {
	h := newHarness(t)
	inner := &mockModel{results: []llmbatch.RawResponse{
		{CustomID: "a", Output: raw(`{}`), Usage: llmbatch.NewUsage(100, 20, 0)},
		{CustomID: "b", Output: raw(`{}`), Usage: llmbatch.NewUsage(50, 10, 0)},
		{CustomID: "c", Error: llmbatch.NewResponseError("errored", "")},
	}}
	om := WrapModel(inner, h.inst)

	got, err := om.Results(context.Background(), "batch_1")
	if err != nil {
		t.Fatalf("Results returned unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}

	if v := h.sumInt64(t, "llm.token.usage", "direction", "input"); v != 150 {
		t.Errorf("input tokens = %d, want 150", v)
	}
	if v := h.sumInt64(t, "llm.token.usage", "direction", "output"); v != 30 {
		t.Errorf("output tokens = %d, want 30", v)
	}
	if v := h.sumInt64(t, "batch.results", "outcome", "error"); v != 1 {
		t.Errorf("error results = %d, want 1", v)
	}
	if v := h.sumInt64(t, "batch.results", "outcome", "output"); v != 2 {
		t.Errorf("output results = %d, want 2", v)
	}
}

func TestObservedModelCancel(t *testing.T) {
	h := newHarness(t)
	inner := cancellableModel{&mockModel{}}
	om := WrapModel(inner, h.inst)

	if err := llmbatch.CancelBatch(context.Background(), om, "batch_9"); err != nil {
		t.Fatalf("Cancel returned unexpected error: %v", err)
	}
	if len(inner.cancelled) != 1 || inner.cancelled[0] != "batch_9" {
		t.Errorf("inner cancelled = %v, want [batch_9]", inner.cancelled)
	}
	if names := h.spanNames(); len(names) != 1 || names[0] != "batch.cancel" {
		t.Errorf("spans = %v, want [batch.cancel]", names)
	}
}

func TestObservedModelCancelUnsupported(t *testing.T) {
	om := WrapModel(&mockModel{}, newHarness(t).inst)

	err := om.Cancel(context.Background(), "batch_9")
	if !errors.Is(err, llmbatch.ErrCancelUnsupported) {
		t.Errorf("Cancel error = %v, want ErrCancelUnsupported", err)
	}
	if llmbatch.ErrorCodeOf(err) != llmbatch.CodeBatchCancellationFailed {
		t.Errorf("code = %q, want batch_cancellation_failed", llmbatch.ErrorCodeOf(err))
	}
}

func TestObservedModelWithGlobalInstruments(t *testing.T) {
	// The global providers are no-ops until Init runs.
	inst, err := NewInstruments(otel.GetTracerProvider(), otel.GetMeterProvider(), global.GetLoggerProvider(), nil)
	if err != nil {
		t.Fatalf("NewInstruments: %v", err)
	}
	om := WrapModel(&mockModel{batch: llmbatch.Batch{ID: "b", Status: llmbatch.StatusCompleted}}, inst)

	b, err := om.Status(context.Background(), "b")
	if err != nil {
		t.Fatalf("Status returned unexpected error: %v", err)
	}
	if b.Status != llmbatch.StatusCompleted {
		t.Errorf("Status = %q, want completed", b.Status)
	}
}

func TestHTTPClient(t *testing.T) {
	c := HTTPClient()
	if c == nil || c.Transport == nil {
		t.Fatal("expected an instrumented transport")
	}
}
