package evaluation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSystem(t *testing.T) *System {
	t.Helper()
	s, err := NewSystem(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func TestRecordTaskResult(t *testing.T) {
	s := newTestSystem(t)

	err := s.RecordTaskResult("agent-a", true, map[Category]float64{
		CategoryCorrectness: 100,
		CategoryEfficiency:  80,
	}, "task-1")
	require.NoError(t, err)

	c := s.Scorecard("agent-a")
	assert.Equal(t, 1, c.TotalTasks)
	assert.Equal(t, 1, c.SuccessfulTasks)
	assert.InDelta(t, 100.0, c.Average(CategoryCorrectness, 30), 1e-9)
	assert.InDelta(t, 80.0, c.Average(CategoryEfficiency, 30), 1e-9)
}

func TestScorecardReturnsCopy(t *testing.T) {
	s := newTestSystem(t)
	require.NoError(t, s.RecordTaskResult("agent-a", true, nil, ""))

	c := s.Scorecard("agent-a")
	c.TotalTasks = 99

	assert.Equal(t, 1, s.Scorecard("agent-a").TotalTasks)
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s1, err := NewSystem(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s1.RecordTaskResult("agent-a", false, map[Category]float64{
		CategoryCorrectness: 20,
	}, "task-1"))
	require.NoError(t, s1.RecordEscalation("agent-a"))
	before := s1.Scorecard("agent-a")

	s2, err := NewSystem(dir, nil)
	require.NoError(t, err)
	after := s2.Scorecard("agent-a")

	assert.Equal(t, before.TotalTasks, after.TotalTasks)
	assert.Equal(t, before.FailedTasks, after.FailedTasks)
	assert.Equal(t, before.Escalations, after.Escalations)
	assert.InDelta(t, before.AutonomyLevel, after.AutonomyLevel, 1e-9)
	assert.Len(t, after.Scores[CategoryCorrectness], 1, "score entries survive reload")
	assert.InDelta(t, 20.0, after.Scores[CategoryCorrectness][0].Score, 1e-9)
}

func TestRecordBuildResult(t *testing.T) {
	s := newTestSystem(t)

	require.NoError(t, s.RecordBuildResult("builder", true, 80, 9, 1))

	c := s.Scorecard("builder")
	// (100 + 90) / 2
	assert.InDelta(t, 95.0, c.Average(CategoryCorrectness, 30), 1e-9)
	assert.InDelta(t, 80.0, c.Average(CategoryCompliance, 30), 1e-9)
	assert.Equal(t, 1, c.FailedTasks, "failed tests count as a failed task")
}

func TestRecordReviewResult(t *testing.T) {
	s := newTestSystem(t)

	require.NoError(t, s.RecordReviewResult("reviewer", "author", 3, 15))

	assert.InDelta(t, 55.0, s.Scorecard("author").Average(CategoryCompliance, 30), 1e-9)
	assert.InDelta(t, 100.0, s.Scorecard("reviewer").Average(CategoryCorrectness, 30), 1e-9)
}

func TestRecommendations(t *testing.T) {
	s := newTestSystem(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordTaskResult("weak", false, map[Category]float64{
			CategoryCorrectness: 30,
		}, ""))
	}
	for i := 0; i < 6; i++ {
		require.NoError(t, s.RecordEscalation("weak"))
	}

	recs := s.Recommendations("weak")
	assert.NotEmpty(t, recs)

	var hasCategory, hasRate, hasEscalation bool
	for _, rec := range recs {
		if strings.Contains(rec, "improve correctness") {
			hasCategory = true
		}
		if strings.Contains(rec, "low success rate") {
			hasRate = true
		}
		if strings.Contains(rec, "high escalation count") {
			hasEscalation = true
		}
	}
	assert.True(t, hasCategory)
	assert.True(t, hasRate)
	assert.True(t, hasEscalation)
}

func TestLeaderboardOrdering(t *testing.T) {
	s := newTestSystem(t)

	require.NoError(t, s.RecordTaskResult("strong", true, map[Category]float64{
		CategoryCorrectness: 100, CategoryEfficiency: 100, CategoryCompliance: 100,
		CategoryCost: 100, CategoryStability: 100,
	}, ""))
	require.NoError(t, s.RecordTaskResult("weak", false, map[Category]float64{
		CategoryCorrectness: 10,
	}, ""))

	ranked := s.Leaderboard()
	require.Len(t, ranked, 2)
	assert.Equal(t, "strong", ranked[0].AgentName)
	assert.Equal(t, "weak", ranked[1].AgentName)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}
