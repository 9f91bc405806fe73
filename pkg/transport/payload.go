package transport

import (
	"encoding/json"
	"time"

	"github.com/goliatone/go-devsurvey/pkg/model"
)

// Metadata keys added alongside the survey fields.
const (
	KeyUserAgent    = "user_agent"
	KeySubmissionID = "submission_id"
	KeySubmittedAt  = "submitted_at"
)

// Payload is one submission: the collected answers plus request metadata.
// It encodes as a single flat JSON object.
type Payload struct {
	Fields       map[string]model.Value
	UserAgent    string
	SubmissionID string
	SubmittedAt  time.Time
}

// Flatten returns the wire form of the payload.
func (p Payload) Flatten() map[string]any {
	out := make(map[string]any, len(p.Fields)+3)
	for name, value := range p.Fields {
		out[name] = value
	}
	out[KeyUserAgent] = p.UserAgent
	if p.SubmissionID != "" {
		out[KeySubmissionID] = p.SubmissionID
	}
	if !p.SubmittedAt.IsZero() {
		out[KeySubmittedAt] = p.SubmittedAt.UTC().Format(time.RFC3339)
	}
	return out
}

// MarshalJSON encodes the flat wire form.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Flatten())
}
