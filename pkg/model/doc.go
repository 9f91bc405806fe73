// Package model defines the immutable survey definition shared by the form
// controller and the ingestion endpoint. A Definition lists sections of typed
// fields, the server-mandated field names, per-group selection caps and the
// declarative conditional-field table. Definitions are authored in YAML (see
// survey.yaml for the embedded default) and validated once at load time;
// callers then build a Registry to obtain typed field handles instead of
// looking fields up by string on every access.
package model
