// Package contract defines the typed input/output envelopes exchanged between
// pipeline stages, along with their validation rules.
//
// Each stage declares exactly one input type and one output type. Both carry a
// Meta header tying them to a request, and a Validate method returning
// structured violations. Any error-severity violation aborts the stage.
package contract

import (
	"fmt"
	"strings"
	"time"
)

// Severity classifies how serious a violation is.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Verdict is the standard outcome of review/validation stages.
type Verdict string

const (
	VerdictPass          Verdict = "pass"
	VerdictFail          Verdict = "fail"
	VerdictNeedsRevision Verdict = "needs_revision"
	VerdictEscalate      Verdict = "escalate"
)

// Violation records a single contract or standards violation.
type Violation struct {
	RuleID       string   `json:"rule_id"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	Location     string   `json:"location,omitempty"`
	SuggestedFix string   `json:"suggested_fix,omitempty"`
}

// HasErrors reports whether any violation has error severity.
func HasErrors(violations []Violation) bool {
	for _, v := range violations {
		if v.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Messages extracts the message text from a violation list.
func Messages(violations []Violation) []string {
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Message)
	}
	return msgs
}

// Meta is the common envelope header. Every input and output carries one;
// an output is traceable to its input through a matching request ID.
type Meta struct {
	ID        string    `json:"request_id"`
	CreatedAt time.Time `json:"timestamp"`
	Agent     string    `json:"agent,omitempty"`
}

// NewMeta creates an envelope header stamped with the current time.
func NewMeta(requestID, agent string) Meta {
	return Meta{ID: requestID, CreatedAt: time.Now(), Agent: agent}
}

// RequestID returns the request this envelope belongs to.
func (m Meta) RequestID() string { return m.ID }

// Timestamp returns the envelope creation time.
func (m Meta) Timestamp() time.Time { return m.CreatedAt }

// SourceAgent returns the agent that produced this envelope, if any.
func (m Meta) SourceAgent() string { return m.Agent }

// Validate is the default validation: no violations.
// Concrete envelope types override this with their own rules.
func (m Meta) Validate() []Violation { return nil }

// Envelope is the common surface of all stage inputs and outputs.
type Envelope interface {
	RequestID() string
	Timestamp() time.Time
	Validate() []Violation
}

// Input is a stage input envelope.
type Input interface {
	Envelope
}

// Output is a stage output envelope.
type Output interface {
	Envelope
}

// Direction says which side of a stage contract was violated.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// ViolationError is returned when an envelope fails a hard contract rule.
// It is not retried by the contract layer itself; the orchestrator's failure
// routing decides what happens next.
type ViolationError struct {
	Direction  Direction
	Violations []Violation
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s contract violation: %s",
		e.Direction, strings.Join(Messages(e.Violations), "; "))
}

// NewViolationError builds a ViolationError for the given direction.
func NewViolationError(dir Direction, violations []Violation) *ViolationError {
	return &ViolationError{Direction: dir, Violations: violations}
}
