// Package evaluation tracks per-agent performance scorecards and adjusts
// each agent's autonomy level from its accumulated scores.
package evaluation

import "time"

// Category is a scoring dimension.
type Category string

const (
	// CategoryCorrectness scores whether output met requirements.
	CategoryCorrectness Category = "correctness"

	// CategoryEfficiency scores resource usage and speed.
	CategoryEfficiency Category = "efficiency"

	// CategoryCompliance scores adherence to contracts and standards.
	CategoryCompliance Category = "compliance"

	// CategoryCost scores token/API spend.
	CategoryCost Category = "cost"

	// CategoryStability scores consistency over time.
	CategoryStability Category = "stability"
)

// AllCategories returns every scoring dimension.
func AllCategories() []Category {
	return []Category{
		CategoryCorrectness,
		CategoryEfficiency,
		CategoryCompliance,
		CategoryCost,
		CategoryStability,
	}
}

// overallWeights is the fixed weighting used by OverallScore. The weights sum
// to 1.0 and are not configurable.
var overallWeights = map[Category]float64{
	CategoryCorrectness: 0.35,
	CategoryEfficiency:  0.15,
	CategoryCompliance:  0.25,
	CategoryCost:        0.10,
	CategoryStability:   0.15,
}

// neutralScore is reported for a category with no recent entries.
const neutralScore = 50.0

// Autonomy bounds and adjustment steps.
const (
	AutonomyFloor   = 0.2
	AutonomyCeiling = 1.0
	AutonomyInitial = 0.5

	autonomyStepUp   = 0.1
	autonomyStepDown = 0.2
)

// ScoreEntry is a single time-stamped score.
type ScoreEntry struct {
	Category  Category  `json:"category"`
	Score     float64   `json:"score"` // 0..100
	Timestamp time.Time `json:"timestamp"`
	TaskID    string    `json:"task_id,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// Scorecard accumulates an agent's performance record and autonomy level.
// Autonomy only changes through adjustAutonomy and never leaves
// [AutonomyFloor, AutonomyCeiling].
type Scorecard struct {
	AgentName       string                   `json:"agent_name"`
	Scores          map[Category][]ScoreEntry `json:"scores"`
	TotalTasks      int                      `json:"total_tasks"`
	SuccessfulTasks int                      `json:"successful_tasks"`
	FailedTasks     int                      `json:"failed_tasks"`
	Escalations     int                      `json:"escalations"`
	AutonomyLevel   float64                  `json:"autonomy_level"` // 0.2..1.0
}

// NewScorecard creates a fresh scorecard. Autonomy starts in the middle of
// its band and is earned or lost through adjustAutonomy.
func NewScorecard(agentName string) *Scorecard {
	return &Scorecard{
		AgentName:     agentName,
		Scores:        make(map[Category][]ScoreEntry),
		AutonomyLevel: AutonomyInitial,
	}
}

// AddScore appends a score entry stamped now.
func (c *Scorecard) AddScore(category Category, score float64, taskID, notes string) {
	if c.Scores == nil {
		c.Scores = make(map[Category][]ScoreEntry)
	}
	c.Scores[category] = append(c.Scores[category], ScoreEntry{
		Category:  category,
		Score:     score,
		Timestamp: time.Now(),
		TaskID:    taskID,
		Notes:     notes,
	})
}

// Average returns the mean score for a category over the last days days,
// or the neutral 50.0 when no entries fall in the window.
func (c *Scorecard) Average(category Category, days int) float64 {
	entries, ok := c.Scores[category]
	if !ok || len(entries) == 0 {
		return neutralScore
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	var sum float64
	var n int
	for _, e := range entries {
		if e.Timestamp.After(cutoff) {
			sum += e.Score
			n++
		}
	}
	if n == 0 {
		return neutralScore
	}
	return sum / float64(n)
}

// OverallScore returns the fixed weighted sum over 30-day category averages.
// Only categories with entries in the window carry weight; a card with no
// scores at all reports neutral.
func (c *Scorecard) OverallScore() float64 {
	cutoff := time.Now().AddDate(0, 0, -30)

	var total, totalWeight float64
	for category, weight := range overallWeights {
		var sum float64
		var n int
		for _, e := range c.Scores[category] {
			if e.Timestamp.After(cutoff) {
				sum += e.Score
				n++
			}
		}
		if n == 0 {
			continue
		}
		total += sum / float64(n) * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return neutralScore
	}
	return total / totalWeight
}

// SuccessRate returns successful/total, or 1.0 when no tasks are recorded.
func (c *Scorecard) SuccessRate() float64 {
	if c.TotalTasks == 0 {
		return 1.0
	}
	return float64(c.SuccessfulTasks) / float64(c.TotalTasks)
}

func (c *Scorecard) recordSuccess() {
	c.TotalTasks++
	c.SuccessfulTasks++
}

func (c *Scorecard) recordFailure() {
	c.TotalTasks++
	c.FailedTasks++
}

func (c *Scorecard) recordEscalation() {
	c.Escalations++
}

// adjustAutonomy applies the single-step rule after every task: high
// performers (overall >= 80, rate >= 0.9) gain 0.1, poor performers
// (overall < 50 or rate < 0.7) lose 0.2. No trend smoothing.
func (c *Scorecard) adjustAutonomy() {
	overall := c.OverallScore()
	rate := c.SuccessRate()

	switch {
	case overall >= 80 && rate >= 0.9:
		c.AutonomyLevel = min(AutonomyCeiling, c.AutonomyLevel+autonomyStepUp)
	case overall < 50 || rate < 0.7:
		c.AutonomyLevel = max(AutonomyFloor, c.AutonomyLevel-autonomyStepDown)
	}
}

// Summary is a read-only digest of a scorecard.
type Summary struct {
	AgentName       string               `json:"agent_name"`
	OverallScore    float64              `json:"overall_score"`
	SuccessRate     float64              `json:"success_rate"`
	TotalTasks      int                  `json:"total_tasks"`
	SuccessfulTasks int                  `json:"successful_tasks"`
	FailedTasks     int                  `json:"failed_tasks"`
	Escalations     int                  `json:"escalations"`
	AutonomyLevel   float64              `json:"autonomy_level"`
	CategoryScores  map[Category]float64 `json:"category_scores"`
}

// Summarize builds a digest with 30-day category averages.
func (c *Scorecard) Summarize() Summary {
	categories := make(map[Category]float64, len(overallWeights))
	for _, category := range AllCategories() {
		categories[category] = c.Average(category, 30)
	}
	return Summary{
		AgentName:       c.AgentName,
		OverallScore:    c.OverallScore(),
		SuccessRate:     c.SuccessRate(),
		TotalTasks:      c.TotalTasks,
		SuccessfulTasks: c.SuccessfulTasks,
		FailedTasks:     c.FailedTasks,
		Escalations:     c.Escalations,
		AutonomyLevel:   c.AutonomyLevel,
		CategoryScores:  categories,
	}
}

// clone deep-copies the scorecard so callers never share mutable state.
func (c *Scorecard) clone() *Scorecard {
	out := *c
	out.Scores = make(map[Category][]ScoreEntry, len(c.Scores))
	for category, entries := range c.Scores {
		out.Scores[category] = append([]ScoreEntry(nil), entries...)
	}
	return &out
}
