// Package handlers defines HTTP-layer error codes used across all API
// endpoints.
//
// These symbolic constants are mapped to HTTP responses via the fail() helper
// and give clients a stable, machine-readable error taxonomy supplementing
// human-readable messages. Generic codes mirror common HTTP status semantics;
// domain-specific codes cover business failures that a status alone cannot
// convey.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeUpstream     = "upstream_error"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeAuthExpired      = "calendar_auth_expired"
	ErrCodeScanLimit        = "scan_limit_reached"
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
