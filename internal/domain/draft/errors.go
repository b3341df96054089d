package draft

import "errors"

// Errors returned by draft operations. Every rejecting operation leaves the
// draft in its prior state, so callers can surface the failure and retry.
var (
	// ErrNotFound is returned when an operation references a line (or a
	// catalog item) that is not part of the draft.
	ErrNotFound = errors.New("draft: line not found")

	// ErrInsufficientStock is returned when a requested quantity exceeds the
	// stock snapshot captured when the line was added.
	ErrInsufficientStock = errors.New("draft: insufficient stock")

	// ErrEmptyInvoice is returned when a submission payload is requested for
	// a draft with no lines.
	ErrEmptyInvoice = errors.New("draft: invoice has no lines")
)
