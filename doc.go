// Package llmbatch is a provider-agnostic client for asynchronous batch
// completion APIs with structured output.
//
// A caller submits labeled inputs, receives an opaque batch ID, polls the
// batch status and, once the batch completed, retrieves one typed output per
// input. Vendor protocols (file upload vs. inline requests, response-format
// directives vs. forced tool calls, downloadable files vs. streamed result
// feeds) stay inside the provider packages.
//
// # Quick Start
//
//	type Sentiment struct {
//		Sentiment  string  `json:"sentiment"`
//		Confidence float64 `json:"confidence"`
//	}
//
//	model, err := anthropic.New("claude-sonnet-4-5")
//	if err != nil { ... }
//
//	res, err := llmbatch.CreateObjectBatch(ctx, llmbatch.CreateObjectBatchParams{
//		Model:  model,
//		Schema: llmbatch.SchemaFor[Sentiment]("sentiment", "Sentiment of a review"),
//		Requests: []llmbatch.BatchRequest{
//			{CustomID: "review-1", Input: "Great product!"},
//			{CustomID: "review-2", Input: "Broke after a day.", SystemPrompt: "Be strict."},
//		},
//	})
//
//	// later, from any process:
//	got, err := llmbatch.GetObjectBatch[Sentiment](ctx, llmbatch.GetObjectBatchParams{
//		Model:   model,
//		BatchID: res.BatchID,
//	})
//	if got.Batch.Status == llmbatch.StatusCompleted {
//		for _, r := range got.Results { ... }
//	}
//
// # Core Interfaces
//
//   - [Model]: one vendor's batch lifecycle (submit, status, results)
//   - [Canceller]: optional vendor-side cancellation
//
// Polling is the caller's job: the library never starts goroutines, timers or
// retries, and keeps no local state. Every failure is a [*BatchError] whose
// Code is one of a closed set; [IsNotReady] distinguishes "poll again later".
//
// # Included Implementations
//
// Providers: provider/openai (file upload + output file download),
// provider/anthropic (inline requests + streamed JSONL results, forced tool
// use), provider/gemini (inline requests + inlined responses).
// Observability: observer (OpenTelemetry traces, metrics and logs).
//
// See cmd/llmbatch for a reference command-line client.
package llmbatch
