package types

import "github.com/m-mizutani/goerr/v2"

var (
	ErrInvalidOption    = goerr.New("invalid option")
	ErrValidationFailed = goerr.New("validation failed")

	// ErrBadSignature is returned by the webhook receiver when the payload
	// signature does not match the configured secret. Never retried.
	ErrBadSignature = goerr.New("bad webhook signature")

	// ErrMalformedPayload marks an event payload that can never be normalized.
	// The dispatcher treats it as a permanent failure.
	ErrMalformedPayload = goerr.New("malformed event payload")

	// ErrAnalysisFailed marks a permanent analyzer failure. The result is
	// recorded as failed and not retried.
	ErrAnalysisFailed = goerr.New("analysis failed")

	// ErrAnalysisRetryable marks a transient analyzer failure (timeout, rate
	// limit, connectivity). The event is retried with backoff.
	ErrAnalysisRetryable = goerr.New("analysis failed transiently")
)
