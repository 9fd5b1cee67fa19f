package appstore

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentialUnavailable means no credential was ever captured for
	// the context. The user-visible remedy is to reload the source page.
	ErrCredentialUnavailable = errors.New("no credential captured")

	// ErrConcurrentJob means a second job was requested while one is
	// already past NOT_STARTED for the same context.
	ErrConcurrentJob = errors.New("job already started for this context")

	// ErrProtocolMismatch means a page echoed a different cursor than the
	// one requested. The pagination sequence is corrupt; the job aborts.
	ErrProtocolMismatch = errors.New("pagination cursor mismatch")

	// ErrMalformedAmount means a localized amount string contains no
	// decimal digit.
	ErrMalformedAmount = errors.New("amount has no numeric portion")

	ErrNetworkFailure = errors.New("purchase search request failed")

	// ErrMissingField means the page response is structurally invalid.
	ErrMissingField = errors.New("missing required field")

	// ErrUnmatchedRequest means a header observation arrived for a
	// request whose body was never recorded.
	ErrUnmatchedRequest = errors.New("unmatched request observation")

	// ErrDegenerateTaxAllocation means a day reports a nonzero total but
	// its chargeable item sum is zero, so tax cannot be reallocated.
	ErrDegenerateTaxAllocation = errors.New("degenerate tax allocation")
)

// ScrapeError provides detailed error context
type ScrapeError struct {
	ContextID string
	Operation string
	Cause     error
	Details   string
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("[%s] %s failed: %v - %s", e.ContextID, e.Operation, e.Cause, e.Details)
}

func (e *ScrapeError) Unwrap() error {
	return e.Cause
}
