package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const scorecardsFileName = "scorecards.json"

// System tracks scorecards for every agent and persists them across runs.
// All mutating calls are serialized; reads return deep copies.
type System struct {
	mu     sync.Mutex
	dir    string
	path   string
	cards  map[string]*Scorecard
	logger *zap.Logger
}

// systemFile is the on-disk representation. Score entries are persisted in
// full so a reload reproduces the exact same scorecards.
type systemFile struct {
	Version    string                `json:"version"`
	SavedAt    time.Time             `json:"saved_at"`
	Scorecards map[string]*Scorecard `json:"scorecards"`
}

// NewSystem opens the evaluation system rooted at dir, creating it if needed.
func NewSystem(dir string, logger *zap.Logger) (*System, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = filepath.Join(".crewkit", "evaluation")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create evaluation directory: %w", err)
	}

	s := &System{
		dir:    dir,
		path:   filepath.Join(dir, scorecardsFileName),
		cards:  make(map[string]*Scorecard),
		logger: logger,
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load scorecards: %w", err)
	}

	return s, nil
}

// card returns the live scorecard for an agent, creating one if needed.
// Callers must hold s.mu.
func (s *System) card(agentName string) *Scorecard {
	c, ok := s.cards[agentName]
	if !ok {
		c = NewScorecard(agentName)
		s.cards[agentName] = c
	}
	return c
}

// Scorecard returns a deep copy of an agent's scorecard, creating a fresh
// one if the agent has no record yet.
func (s *System) Scorecard(agentName string) *Scorecard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.card(agentName).clone()
}

// RecordTaskResult appends category scores, bumps the success/failure
// counters, and re-runs the autonomy adjustment rule.
func (s *System) RecordTaskResult(agentName string, success bool, scores map[Category]float64, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.card(agentName)
	if success {
		c.recordSuccess()
	} else {
		c.recordFailure()
	}
	for category, score := range scores {
		c.AddScore(category, score, taskID, "")
	}
	c.adjustAutonomy()

	s.logger.Debug("task result recorded",
		zap.String("agent", agentName),
		zap.Bool("success", success),
		zap.String("task_id", taskID),
		zap.Float64("autonomy", c.AutonomyLevel))

	return s.save()
}

// RecordEscalation bumps the agent's escalation counter. It does not touch
// autonomy.
func (s *System) RecordEscalation(agentName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.card(agentName).recordEscalation()
	return s.save()
}

// RecordBuildResult converts raw build/test numbers into scores and records
// them as a task result.
func (s *System) RecordBuildResult(agentName string, buildSuccess bool, coverage float64, passed, failed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.card(agentName)

	correctness := 0.0
	if buildSuccess {
		correctness = 100.0
	}
	if passed+failed > 0 {
		correctness = (correctness + float64(passed)/float64(passed+failed)*100) / 2
	}
	c.AddScore(CategoryCorrectness, correctness, "", "")

	if coverage >= 0 {
		c.AddScore(CategoryCompliance, min(100, coverage), "", "")
	}

	if buildSuccess && failed == 0 {
		c.recordSuccess()
	} else {
		c.recordFailure()
	}
	c.adjustAutonomy()

	return s.save()
}

// RecordReviewResult scores the reviewed agent's compliance from violation
// counts and credits the reviewer for completing the review.
func (s *System) RecordReviewResult(reviewerName, reviewedAgent string, violations int, severityScore float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	compliance := max(0, 100-float64(violations)*10-severityScore)
	s.card(reviewedAgent).AddScore(CategoryCompliance, compliance, "", "")
	s.card(reviewerName).AddScore(CategoryCorrectness, 100.0, "", "")

	return s.save()
}

// Recommendations flags weak categories (average below 60), a low success
// rate (below 80%), and a high escalation count (above 5). Purely advisory.
func (s *System) Recommendations(agentName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.card(agentName)
	var recs []string

	for _, category := range AllCategories() {
		if avg := c.Average(category, 30); avg < 60 {
			recs = append(recs, fmt.Sprintf("improve %s: current average %.1f%%", category, avg))
		}
	}
	if rate := c.SuccessRate(); rate < 0.8 {
		recs = append(recs, fmt.Sprintf("low success rate (%.0f%%): consider additional validation", rate*100))
	}
	if c.Escalations > 5 {
		recs = append(recs, fmt.Sprintf("high escalation count (%d): review authority scope", c.Escalations))
	}

	return recs
}

// AllScores returns a digest of every scorecard.
func (s *System) AllScores() map[string]Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Summary, len(s.cards))
	for name, c := range s.cards {
		out[name] = c.Summarize()
	}
	return out
}

// RankedAgent pairs an agent with its overall score for the leaderboard.
type RankedAgent struct {
	AgentName string  `json:"agent_name"`
	Score     float64 `json:"score"`
}

// Leaderboard returns agents ranked by overall score, best first.
func (s *System) Leaderboard() []RankedAgent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ranked := make([]RankedAgent, 0, len(s.cards))
	for name, c := range s.cards {
		ranked = append(ranked, RankedAgent{AgentName: name, Score: c.OverallScore()})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].AgentName < ranked[j].AgentName
	})
	return ranked
}

// load reads scorecards from disk.
func (s *System) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var f systemFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("corrupt scorecards file: %w", err)
	}

	for name, c := range f.Scorecards {
		if c == nil {
			continue
		}
		if c.AgentName == "" {
			c.AgentName = name
		}
		if c.Scores == nil {
			c.Scores = make(map[Category][]ScoreEntry)
		}
		if c.AutonomyLevel == 0 {
			c.AutonomyLevel = AutonomyInitial
		}
		s.cards[name] = c
	}

	return nil
}

// save writes scorecards atomically (tmp file + rename). Callers hold s.mu.
func (s *System) save() error {
	f := systemFile{
		Version:    "1.0",
		SavedAt:    time.Now(),
		Scorecards: s.cards,
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scorecards: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write scorecards: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename scorecards: %w", err)
	}

	return nil
}
