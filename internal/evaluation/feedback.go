package evaluation

// ExecutionFeedback carries raw signals from a build/test execution.
type ExecutionFeedback struct {
	BuildSuccess    bool             `json:"build_success"`
	TestSuccess     bool             `json:"test_success"`
	TestsPassed     int              `json:"test_passed"`
	TestsFailed     int              `json:"test_failed"`
	TestsSkipped    int              `json:"test_skipped"`
	CoveragePercent float64          `json:"coverage_percent"`
	ExecutionMillis int              `json:"execution_time_ms"`
	MemoryUsageMB   float64          `json:"memory_usage_mb"`
	SecurityIssues  []map[string]any `json:"security_issues,omitempty"`
}

// ToScores converts raw execution signals into category scores.
func (f ExecutionFeedback) ToScores() map[Category]float64 {
	scores := make(map[Category]float64)

	totalTests := f.TestsPassed + f.TestsFailed
	switch {
	case totalTests > 0:
		scores[CategoryCorrectness] = float64(f.TestsPassed) / float64(totalTests) * 100
	case f.BuildSuccess:
		scores[CategoryCorrectness] = 70.0
	default:
		scores[CategoryCorrectness] = 0.0
	}

	compliance := f.CoveragePercent - float64(len(f.SecurityIssues))*10
	scores[CategoryCompliance] = max(0, min(100, compliance))

	switch {
	case f.ExecutionMillis < 5000:
		scores[CategoryEfficiency] = 90.0
	case f.ExecutionMillis < 30000:
		scores[CategoryEfficiency] = 70.0
	default:
		scores[CategoryEfficiency] = 50.0
	}

	return scores
}

// FeedbackReport summarizes what a feedback submission changed.
type FeedbackReport struct {
	Agent           string               `json:"agent"`
	Success         bool                 `json:"success"`
	Scores          map[Category]float64 `json:"scores"`
	Recommendations []string             `json:"recommendations"`
}

// FeedbackProcessor feeds execution results into the evaluation system.
type FeedbackProcessor struct {
	system *System
}

// NewFeedbackProcessor wraps an evaluation system.
func NewFeedbackProcessor(system *System) *FeedbackProcessor {
	return &FeedbackProcessor{system: system}
}

// Process records the feedback as a task result and returns a report.
func (p *FeedbackProcessor) Process(agentName string, feedback ExecutionFeedback, taskID string) (*FeedbackReport, error) {
	scores := feedback.ToScores()
	success := feedback.BuildSuccess && feedback.TestSuccess

	if err := p.system.RecordTaskResult(agentName, success, scores, taskID); err != nil {
		return nil, err
	}

	return &FeedbackReport{
		Agent:           agentName,
		Success:         success,
		Scores:          scores,
		Recommendations: p.system.Recommendations(agentName),
	}, nil
}
