package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for batch observability spans and metrics.
var (
	AttrLLMModel    = attribute.Key("llm.model")
	AttrLLMProvider = attribute.Key("llm.provider")

	AttrTokensInput  = attribute.Key("llm.tokens.input")
	AttrTokensOutput = attribute.Key("llm.tokens.output")
	AttrCostUSD      = attribute.Key("llm.cost_usd")

	AttrBatchID        = attribute.Key("batch.id")
	AttrBatchOperation = attribute.Key("batch.operation")
	AttrBatchStatus    = attribute.Key("batch.status")
	AttrBatchRequests  = attribute.Key("batch.request_count")
	AttrBatchTotal     = attribute.Key("batch.counts.total")
	AttrBatchCompleted = attribute.Key("batch.counts.completed")
	AttrBatchFailed    = attribute.Key("batch.counts.failed")
	AttrBatchResults   = attribute.Key("batch.result_count")
	AttrBatchErrors    = attribute.Key("batch.result_errors")
	AttrErrorCode      = attribute.Key("batch.error_code")
	AttrSchemaName     = attribute.Key("batch.schema")
)
