package ingest

import "errors"

var (
	// ErrEmptyBody is reported when the request carries no body.
	ErrEmptyBody = errors.New("ingest: empty request body")
	// ErrNotObject is reported when the decoded body is not a JSON object.
	ErrNotObject = errors.New("ingest: body must be a JSON object")
	// ErrNoStore is returned by NewHandler without a store.
	ErrNoStore = errors.New("ingest: response store is required")
)

// Response bodies.
const (
	msgMethodNotAllowed = "Method not allowed"
	msgInvalidRequest   = "Invalid request"
	msgMissingFields    = "Missing required fields"
	msgInsertFailed     = "Database insert failed"
)
