// Package ingest implements the survey ingestion endpoint: it accepts one
// submission per POST, checks the server-mandated fields, normalizes the
// body into a complete response row and appends it to a responses.Store.
//
// The handler answers CORS pre-flight requests, rejects other methods and
// never reads, updates or deletes stored rows.
package ingest
