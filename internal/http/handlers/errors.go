// Package handlers defines the error codes carried by the JSON error
// envelope. Browsers receive the same failures as an HTML page; API-style
// clients branch on these codes.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeNoVerses      = "no_verses"
	ErrCodeStoreFailed   = "store_failed"
	ErrCodeExportFailed  = "export_failed"
	ErrCodeSessionFailed = "session_failed"
)
