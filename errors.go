package llmbatch

import (
	"errors"
	"fmt"
)

// ErrorCode is the machine-readable kind of a BatchError.
type ErrorCode string

const (
	CodeBatchCreationFailed     ErrorCode = "batch_creation_failed"
	CodeBatchRetrievalFailed    ErrorCode = "batch_retrieval_failed"
	CodeResultsNotReady         ErrorCode = "results_not_ready"
	CodeResultsRetrievalFailed  ErrorCode = "results_retrieval_failed"
	CodeBatchCancellationFailed ErrorCode = "batch_cancellation_failed"
)

// BatchError is the only error kind returned by batch operations. Code is
// drawn from a closed vocabulary; BatchID is set when the failing operation
// targeted an existing batch. Err holds the underlying transport or
// validation error, reachable through errors.As / errors.Is.
type BatchError struct {
	Code    ErrorCode
	Message string
	BatchID string
	Err     error
}

func (e *BatchError) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.BatchID != "" {
		msg += " (batch " + e.BatchID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BatchError) Unwrap() error { return e.Err }

// NewBatchError wraps err with a code and batch ID.
func NewBatchError(code ErrorCode, batchID, message string, err error) *BatchError {
	return &BatchError{Code: code, Message: message, BatchID: batchID, Err: err}
}

// ErrorCodeOf returns the code of the first BatchError in err's chain, or "".
func ErrorCodeOf(err error) ErrorCode {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsNotReady reports whether err means "results not materialized yet, poll
// again later". It is not a transient failure and should not be retried as one.
func IsNotReady(err error) bool {
	return ErrorCodeOf(err) == CodeResultsNotReady
}

// ErrHTTP is a non-2xx response from a vendor API.
type ErrHTTP struct {
	Status int
	Body   string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ConfigError reports an adapter that cannot be constructed.
type ConfigError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

var (
	// ErrMissingAPIKey is returned (inside a ConfigError) when neither the
	// environment nor the explicit configuration provides a credential.
	ErrMissingAPIKey = errors.New("api key not configured")

	// ErrCancelUnsupported is returned (inside a BatchError) by CancelBatch
	// for models that do not implement Canceller.
	ErrCancelUnsupported = errors.New("cancellation not supported by provider")

	// ErrInvalidRequests marks request lists rejected before submission.
	ErrInvalidRequests = errors.New("invalid batch requests")
)
