package contract

import "time"

// ConflictRecord captures a disagreement escalated to a higher-authority
// decision owner. The orchestrator creates it; once a resolution is set the
// record is immutable.
type ConflictRecord struct {
	ConflictID    string           `json:"conflict_id"`
	Topic         string           `json:"topic"`
	Participants  []string         `json:"agents_involved"`
	Evidence      []map[string]any `json:"evidence"`
	DecisionOwner string           `json:"decision_owner"`
	Resolution    map[string]any   `json:"resolution,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	ResolvedAt    *time.Time       `json:"resolved_at,omitempty"`
}

// Resolved reports whether a resolution has been recorded.
func (c *ConflictRecord) Resolved() bool {
	return c.Resolution != nil
}
