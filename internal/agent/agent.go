// Package agent defines the worker abstraction: a uniform execution wrapper
// that validates stage contracts around each agent's own logic and records
// outcomes into the memory store and the evaluation system.
package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewkit/internal/contract"
	"github.com/fyrsmithlabs/crewkit/internal/evaluation"
	"github.com/fyrsmithlabs/crewkit/internal/memory"
)

// Agent is one pipeline worker. Its internal reasoning is opaque to the
// core; the Runner only sees the declared contract types flowing through
// Execute.
type Agent interface {
	// Name is the agent's stable string identity.
	Name() string

	// Authority is the agent's fixed authority level (1-10, higher wins
	// overrides and is eligible as escalation decision owner).
	Authority() int

	// Description says what the agent does, for listings.
	Description() string

	// Execute runs the agent's stage logic.
	Execute(ctx context.Context, in contract.Input) (contract.Output, error)
}

// ExecutionError wraps a failure raised by an agent's internal logic. The
// cause is opaque to the core and propagates unchanged through the run.
type ExecutionError struct {
	Agent string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("agent %s execution failed: %v", e.Agent, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Runner wraps an agent with the uniform execution contract: validate input,
// dispatch, validate output, record the outcome. Side effects of a failed
// stage are not rolled back.
type Runner struct {
	agent  Agent
	memory *memory.AgentMemory
	eval   *evaluation.System
	logger *zap.Logger
}

// NewRunner builds the execution wrapper for one agent. The memory store and
// evaluation system are shared across all runners.
func NewRunner(a Agent, store *memory.Store, eval *evaluation.System, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		agent:  a,
		memory: memory.NewAgentMemory(a.Name(), store),
		eval:   eval,
		logger: logger.With(zap.String("agent", a.Name())),
	}
}

// Agent returns the wrapped agent.
func (r *Runner) Agent() Agent { return r.agent }

// Name returns the wrapped agent's identity.
func (r *Runner) Name() string { return r.agent.Name() }

// Authority returns the wrapped agent's authority level.
func (r *Runner) Authority() int { return r.agent.Authority() }

// Run executes the agent under the stage contract.
//
// Input violations with error severity abort before dispatch and record
// nothing. Output violations with error severity record the failure first,
// then abort. Every output must carry the request ID of its input.
func (r *Runner) Run(ctx context.Context, in contract.Input) (contract.Output, error) {
	taskID := in.RequestID()
	start := time.Now()

	if violations := in.Validate(); contract.HasErrors(violations) {
		r.logger.Warn("input contract violation",
			zap.String("task_id", taskID),
			zap.Int("violations", len(violations)))
		return nil, contract.NewViolationError(contract.DirectionInput, violations)
	}

	if _, err := r.memory.Remember(map[string]any{
		"task_id":    taskID,
		"input_type": fmt.Sprintf("%T", in),
	}, memory.ScopeWorking, memory.WithTags("task", "current")); err != nil {
		r.logger.Warn("failed to note task in working memory", zap.Error(err))
	}

	r.logger.Debug("executing task", zap.String("task_id", taskID))

	out, err := r.agent.Execute(ctx, in)
	if err != nil {
		r.recordFailure(taskID, err.Error())
		return nil, &ExecutionError{Agent: r.agent.Name(), Err: err}
	}

	violations := out.Validate()
	if out.RequestID() != taskID {
		violations = append(violations, contract.Violation{
			RuleID:   "CTR-001",
			Severity: contract.SeverityError,
			Message: fmt.Sprintf("output request id %q does not match input request id %q",
				out.RequestID(), taskID),
		})
	}
	if contract.HasErrors(violations) {
		r.recordFailure(taskID, "output validation failed")
		return nil, contract.NewViolationError(contract.DirectionOutput, violations)
	}

	r.recordSuccess(taskID, time.Since(start))
	return out, nil
}

func (r *Runner) recordSuccess(taskID string, elapsed time.Duration) {
	efficiency := max(0, min(100, 100-elapsed.Minutes()*10))
	err := r.eval.RecordTaskResult(r.agent.Name(), true, map[evaluation.Category]float64{
		evaluation.CategoryCorrectness: 100.0,
		evaluation.CategoryEfficiency:  efficiency,
	}, taskID)
	if err != nil {
		r.logger.Warn("failed to record task success", zap.Error(err))
	}
}

func (r *Runner) recordFailure(taskID, reason string) {
	err := r.eval.RecordTaskResult(r.agent.Name(), false, map[evaluation.Category]float64{
		evaluation.CategoryCorrectness: 0.0,
	}, taskID)
	if err != nil {
		r.logger.Warn("failed to record task failure", zap.Error(err))
	}

	if _, err := r.memory.LearnFromFailure(map[string]any{
		"task_id":   taskID,
		"reason":    reason,
		"timestamp": time.Now().Format(time.RFC3339),
	}); err != nil {
		r.logger.Warn("failed to store failure memory", zap.Error(err))
	}
}
