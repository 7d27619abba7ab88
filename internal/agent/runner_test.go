package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/crewkit/internal/contract"
	"github.com/fyrsmithlabs/crewkit/internal/evaluation"
	"github.com/fyrsmithlabs/crewkit/internal/memory"
)

// testInput lets tests control input validation.
type testInput struct {
	contract.Meta
	violations []contract.Violation
}

func (i testInput) Validate() []contract.Violation { return i.violations }

// testOutput lets tests control output validation and request IDs.
type testOutput struct {
	contract.Meta
	violations []contract.Violation
}

func (o testOutput) Validate() []contract.Violation { return o.violations }

// stubAgent runs a canned execute function.
type stubAgent struct {
	name      string
	authority int
	execute   func(ctx context.Context, in contract.Input) (contract.Output, error)
}

func (s *stubAgent) Name() string        { return s.name }
func (s *stubAgent) Authority() int      { return s.authority }
func (s *stubAgent) Description() string { return "stub" }
func (s *stubAgent) Execute(ctx context.Context, in contract.Input) (contract.Output, error) {
	return s.execute(ctx, in)
}

func newTestRunner(t *testing.T, a Agent) (*Runner, *memory.Store, *evaluation.System) {
	t.Helper()
	store, err := memory.NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	eval, err := evaluation.NewSystem(t.TempDir(), nil)
	require.NoError(t, err)
	return NewRunner(a, store, eval, nil), store, eval
}

func TestRunSuccessRecordsScores(t *testing.T) {
	a := &stubAgent{name: "stub", authority: 5, execute: func(ctx context.Context, in contract.Input) (contract.Output, error) {
		return testOutput{Meta: contract.NewMeta(in.RequestID(), "stub")}, nil
	}}
	runner, _, eval := newTestRunner(t, a)

	out, err := runner.Run(context.Background(), testInput{Meta: contract.NewMeta("req-1", "")})
	require.NoError(t, err)
	assert.Equal(t, "req-1", out.RequestID())

	card := eval.Scorecard("stub")
	assert.Equal(t, 1, card.SuccessfulTasks)
	assert.InDelta(t, 100.0, card.Average(evaluation.CategoryCorrectness, 30), 1e-9)
	assert.Greater(t, card.Average(evaluation.CategoryEfficiency, 30), 99.0)
}

func TestRunInputViolationRecordsNothing(t *testing.T) {
	executed := false
	a := &stubAgent{name: "stub", authority: 5, execute: func(ctx context.Context, in contract.Input) (contract.Output, error) {
		executed = true
		return nil, nil
	}}
	runner, _, eval := newTestRunner(t, a)

	in := testInput{
		Meta: contract.NewMeta("req-1", ""),
		violations: []contract.Violation{
			{RuleID: "T-001", Severity: contract.SeverityError, Message: "bad input"},
		},
	}
	_, err := runner.Run(context.Background(), in)

	var vErr *contract.ViolationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, contract.DirectionInput, vErr.Direction)
	assert.False(t, executed, "agent must not run on invalid input")
	assert.Zero(t, eval.Scorecard("stub").TotalTasks, "rejected input records no task")
}

func TestRunInputWarningsDoNotBlock(t *testing.T) {
	a := &stubAgent{name: "stub", authority: 5, execute: func(ctx context.Context, in contract.Input) (contract.Output, error) {
		return testOutput{Meta: contract.NewMeta(in.RequestID(), "stub")}, nil
	}}
	runner, _, _ := newTestRunner(t, a)

	in := testInput{
		Meta: contract.NewMeta("req-1", ""),
		violations: []contract.Violation{
			{RuleID: "T-001", Severity: contract.SeverityWarning, Message: "heads up"},
		},
	}
	_, err := runner.Run(context.Background(), in)
	assert.NoError(t, err)
}

func TestRunExecutionFailureRecordsAndPropagates(t *testing.T) {
	cause := errors.New("boom")
	a := &stubAgent{name: "stub", authority: 5, execute: func(ctx context.Context, in contract.Input) (contract.Output, error) {
		return nil, cause
	}}
	runner, store, eval := newTestRunner(t, a)

	_, err := runner.Run(context.Background(), testInput{Meta: contract.NewMeta("req-1", "")})

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "stub", execErr.Agent)
	assert.ErrorIs(t, err, cause)

	card := eval.Scorecard("stub")
	assert.Equal(t, 1, card.FailedTasks)

	failures, ferr := store.Retrieve(memory.Query{Scope: memory.ScopeFailure, Tags: []string{"failure"}})
	require.NoError(t, ferr)
	assert.Len(t, failures, 1, "failure is remembered for later learning")
}

func TestRunOutputViolationRecordsFailureFirst(t *testing.T) {
	a := &stubAgent{name: "stub", authority: 5, execute: func(ctx context.Context, in contract.Input) (contract.Output, error) {
		return testOutput{
			Meta: contract.NewMeta(in.RequestID(), "stub"),
			violations: []contract.Violation{
				{RuleID: "T-002", Severity: contract.SeverityError, Message: "bad output"},
			},
		}, nil
	}}
	runner, _, eval := newTestRunner(t, a)

	_, err := runner.Run(context.Background(), testInput{Meta: contract.NewMeta("req-1", "")})

	var vErr *contract.ViolationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, contract.DirectionOutput, vErr.Direction)
	assert.Equal(t, 1, eval.Scorecard("stub").FailedTasks)
}

func TestRunRequestIDMismatchIsViolation(t *testing.T) {
	a := &stubAgent{name: "stub", authority: 5, execute: func(ctx context.Context, in contract.Input) (contract.Output, error) {
		return testOutput{Meta: contract.NewMeta("other-id", "stub")}, nil
	}}
	runner, _, _ := newTestRunner(t, a)

	_, err := runner.Run(context.Background(), testInput{Meta: contract.NewMeta("req-1", "")})

	var vErr *contract.ViolationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Violations, 1)
	assert.Equal(t, "CTR-001", vErr.Violations[0].RuleID)
}
