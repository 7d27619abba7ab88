package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStrengthDecay(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		entry   Entry
		at      time.Time
		want    float64
		epsilon float64
	}{
		{
			name:    "fresh entry at full confidence",
			entry:   Entry{Confidence: 1.0, DecayPolicy: DecayFast, LastAccessed: base},
			at:      base,
			want:    1.0,
			epsilon: 1e-9,
		},
		{
			name:    "one half-life halves strength",
			entry:   Entry{Confidence: 1.0, DecayPolicy: DecayFast, LastAccessed: base},
			at:      base.Add(time.Hour),
			want:    0.5,
			epsilon: 1e-9,
		},
		{
			name:    "two half-lives quarter strength",
			entry:   Entry{Confidence: 1.0, DecayPolicy: DecayFast, LastAccessed: base},
			at:      base.Add(2 * time.Hour),
			want:    0.25,
			epsilon: 1e-9,
		},
		{
			name:    "confidence scales linearly",
			entry:   Entry{Confidence: 0.8, DecayPolicy: DecayMedium, LastAccessed: base},
			at:      base.Add(24 * time.Hour),
			want:    0.4,
			epsilon: 1e-9,
		},
		{
			name:    "permanent never decays",
			entry:   Entry{Confidence: 0.9, DecayPolicy: DecayPermanent, LastAccessed: base},
			at:      base.Add(365 * 24 * time.Hour),
			want:    0.9,
			epsilon: 1e-9,
		},
		{
			name:    "unknown policy falls back to medium",
			entry:   Entry{Confidence: 1.0, DecayPolicy: DecayPolicy("bogus"), LastAccessed: base},
			at:      base.Add(24 * time.Hour),
			want:    0.5,
			epsilon: 1e-9,
		},
		{
			name:    "clock skew clamps to no decay",
			entry:   Entry{Confidence: 1.0, DecayPolicy: DecayFast, LastAccessed: base.Add(time.Hour)},
			at:      base,
			want:    1.0,
			epsilon: 1e-9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.entry.Strength(tt.at), tt.epsilon)
		})
	}
}

func TestStrengthAccessBoost(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	e := Entry{Confidence: 1.0, DecayPolicy: DecayFast, LastAccessed: base, AccessCount: 5}
	// boost 1.5 against a halved decay, capped at 1.0 overall
	assert.InDelta(t, 0.75, e.Strength(base.Add(time.Hour)), 1e-9)

	e.AccessCount = 100
	// boost caps at 2.0
	assert.InDelta(t, 1.0, e.Strength(base.Add(time.Hour)), 1e-9)
}

func TestStrengthNeverIncreasesWithoutAccess(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := Entry{Confidence: 1.0, DecayPolicy: DecaySlow, LastAccessed: base}

	prev := e.Strength(base)
	for hours := 1; hours <= 24*30; hours *= 2 {
		cur := e.Strength(base.Add(time.Duration(hours) * time.Hour))
		assert.LessOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestExpired(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := Entry{Confidence: 1.0, DecayPolicy: DecayFast, LastAccessed: base}

	assert.False(t, e.Expired(DefaultMinStrength, base))
	// after 4 half-lives strength is 0.0625 < 0.1
	assert.True(t, e.Expired(DefaultMinStrength, base.Add(4*time.Hour)))
}

func TestDefaultPolicy(t *testing.T) {
	assert.Equal(t, DecayFast, DefaultPolicy(ScopeWorking))
	assert.Equal(t, DecaySlow, DefaultPolicy(ScopeProject))
	assert.Equal(t, DecayVerySlow, DefaultPolicy(ScopeSkill))
	assert.Equal(t, DecayMedium, DefaultPolicy(ScopeFailure))
	assert.Equal(t, DecayMedium, DefaultPolicy(Scope("unknown")))
}
