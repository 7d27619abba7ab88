// Package memory implements the scoped, decaying memory store shared by all
// agents and the orchestrator.
//
// Entries are content-addressed, carry a confidence and a decay policy, and
// lose strength over time according to a half-life curve. Reading an entry
// counts as an access and partially rejuvenates it: frequently consulted
// memories decay slower in relative terms.
package memory

import (
	"math"
	"time"
)

// Scope partitions memories by lifetime and intent.
type Scope string

const (
	// ScopeWorking holds current-task context. Fast decay.
	ScopeWorking Scope = "working"

	// ScopeProject holds project-level knowledge. Slow decay.
	ScopeProject Scope = "project"

	// ScopeSkill holds learned patterns. Very slow decay.
	ScopeSkill Scope = "skill"

	// ScopeFailure holds past mistakes for learning. Medium decay.
	ScopeFailure Scope = "failure"
)

// DecayPolicy selects the half-life applied to an entry's strength.
type DecayPolicy string

const (
	DecayFast      DecayPolicy = "fast"      // 1 hour half-life
	DecayMedium    DecayPolicy = "medium"    // 24 hour half-life
	DecaySlow      DecayPolicy = "slow"      // 7 day half-life
	DecayVerySlow  DecayPolicy = "very_slow" // 30 day half-life
	DecayPermanent DecayPolicy = "permanent" // never decays
)

// halfLives maps each decay policy to its half-life. Permanent is handled
// separately and never reaches this table.
var halfLives = map[DecayPolicy]time.Duration{
	DecayFast:     time.Hour,
	DecayMedium:   24 * time.Hour,
	DecaySlow:     7 * 24 * time.Hour,
	DecayVerySlow: 30 * 24 * time.Hour,
}

// scopeDefaults is the decay policy applied when the caller does not override.
var scopeDefaults = map[Scope]DecayPolicy{
	ScopeWorking: DecayFast,
	ScopeProject: DecaySlow,
	ScopeSkill:   DecayVerySlow,
	ScopeFailure: DecayMedium,
}

// DefaultPolicy returns the default decay policy for a scope.
func DefaultPolicy(scope Scope) DecayPolicy {
	if p, ok := scopeDefaults[scope]; ok {
		return p
	}
	return DecayMedium
}

// DefaultMinStrength is the strength below which an entry is considered
// expired unless the caller asks for weaker matches.
const DefaultMinStrength = 0.1

// Entry is a single memory with its decay bookkeeping.
type Entry struct {
	ID           string      `json:"id"`
	Content      any         `json:"content"`
	Scope        Scope       `json:"scope"`
	Source       string      `json:"source"`
	Confidence   float64     `json:"confidence"`
	DecayPolicy  DecayPolicy `json:"decay_policy"`
	CreatedAt    time.Time   `json:"created_at"`
	LastAccessed time.Time   `json:"last_accessed"`
	AccessCount  int         `json:"access_count"`
	Tags         []string    `json:"tags,omitempty"`
	RelatedIDs   []string    `json:"related_entries,omitempty"`
}

// Strength computes the entry's current strength at the given instant:
//
//	confidence * 0.5^(elapsed/halfLife) * min(2.0, 1 + 0.1*accessCount)
//
// clamped to 1.0. Permanent entries always report their confidence.
func (e *Entry) Strength(now time.Time) float64 {
	if e.DecayPolicy == DecayPermanent {
		return e.Confidence
	}

	half, ok := halfLives[e.DecayPolicy]
	if !ok {
		half = halfLives[DecayMedium]
	}

	elapsed := now.Sub(e.LastAccessed).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	decay := math.Pow(0.5, elapsed/half.Seconds())
	boost := math.Min(2.0, 1.0+0.1*float64(e.AccessCount))

	return math.Min(1.0, e.Confidence*decay*boost)
}

// Expired reports whether strength has dropped below threshold.
func (e *Entry) Expired(threshold float64, now time.Time) bool {
	return e.Strength(now) < threshold
}

// access records a read, resetting the decay clock and bumping the counter.
func (e *Entry) access(now time.Time) {
	e.LastAccessed = now
	e.AccessCount++
}
