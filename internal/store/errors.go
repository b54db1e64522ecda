package store

import (
	"fmt"

	"github.com/rohmanhakim/polite-crawler/pkg/failure"
)

type StoreErrorCause string

const (
	ErrCauseUnavailable StoreErrorCause = "store unavailable"
	ErrCauseTimeout     StoreErrorCause = "store operation timed out"
	ErrCauseCommand     StoreErrorCause = "store command failed"
)

type StoreError struct {
	Message   string
	Retryable bool
	Cause     StoreErrorCause
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s: %s", e.Cause, e.Message)
}

func (e *StoreError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *StoreError) IsRetryable() bool {
	return e.Retryable
}
