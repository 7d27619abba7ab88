package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewkit/internal/agent"
	"github.com/fyrsmithlabs/crewkit/internal/contract"
	"github.com/fyrsmithlabs/crewkit/internal/evaluation"
	"github.com/fyrsmithlabs/crewkit/internal/memory"
	"github.com/fyrsmithlabs/crewkit/internal/schema"
)

// ErrConflictNotFound is returned when resolving an unknown or already
// resolved conflict.
var ErrConflictNotFound = errors.New("conflict not found")

// ErrRoutingExhausted marks a stage failure that could not be routed: no
// route exists, the target is absent, or its retry budget is spent.
var ErrRoutingExhausted = errors.New("failure routing exhausted")

// Orchestrator drives workflows through their stages. It owns no agents
// directly; all execution goes through the registry's runners.
type Orchestrator struct {
	// mu guards workflows, escalations, and every Task published through
	// the workflows map. RunWorkflow mutates task fields under mu so that
	// WorkflowStatus can poll a run in flight.
	mu          sync.Mutex
	registry    *agent.Registry
	store       *memory.Store
	eval        *evaluation.System
	feedback    *evaluation.FeedbackProcessor
	schemas     *schema.Loader
	logger      *zap.Logger
	workflows   map[string][]*Task
	escalations []*contract.ConflictRecord
}

// Option configures an orchestrator at construction.
type Option func(*Orchestrator)

// WithSchemaLoader enables advisory validation of stage inputs against
// externally defined contract schemas.
func WithSchemaLoader(l *schema.Loader) Option {
	return func(o *Orchestrator) { o.schemas = l }
}

// New creates an orchestrator over an agent registry and shared stores.
func New(registry *agent.Registry, store *memory.Store, eval *evaluation.System, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	initMetrics()
	o := &Orchestrator{
		registry:  registry,
		store:     store,
		eval:      eval,
		feedback:  evaluation.NewFeedbackProcessor(eval),
		logger:    logger.Named("orchestrator"),
		workflows: make(map[string][]*Task),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunWorkflow executes the workflow for a user request. A nil workflow uses
// DefaultWorkflow. The run always returns a result; stage failures are
// reported in it, never raised.
func (o *Orchestrator) RunWorkflow(ctx context.Context, userRequest string, workflow []StageSpec) *Result {
	workflowID := uuid.NewString()[:8]
	if workflow == nil {
		workflow = DefaultWorkflow()
	}
	start := time.Now()

	o.logger.Info("starting workflow",
		zap.String("workflow_id", workflowID),
		zap.Int("stages", len(workflow)))

	tasks := make(map[Stage]*Task, len(workflow))
	ordered := make([]*Task, 0, len(workflow))
	for _, spec := range workflow {
		t := &Task{
			ID:           fmt.Sprintf("%s-%s", workflowID, spec.Stage),
			Stage:        spec.Stage,
			AgentName:    spec.AgentName,
			Status:       TaskPending,
			Dependencies: spec.Dependencies,
			CreatedAt:    time.Now(),
			MaxRetries:   defaultMaxRetries,
		}
		tasks[spec.Stage] = t
		ordered = append(ordered, t)
	}

	o.mu.Lock()
	o.workflows[workflowID] = ordered
	o.mu.Unlock()

	var completed, failed []Stage
	outputs := make(map[Stage]contract.Output)
	wctx := map[string]any{"user_request": userRequest}

	for _, spec := range workflow {
		task := tasks[spec.Stage]

		depsMet := true
		for _, dep := range task.Dependencies {
			if depTask, ok := tasks[dep]; !ok || depTask.Status != TaskCompleted {
				depsMet = false
				break
			}
		}
		if !depsMet {
			o.mu.Lock()
			task.Status = TaskBlocked
			o.mu.Unlock()
			failed = append(failed, spec.Stage)
			observeStage(spec.Stage, TaskBlocked)
			continue
		}

		input := o.prepareInput(spec.Stage, wctx, outputs)
		o.checkSchema(spec.Stage, input)

		o.mu.Lock()
		task.Input = input
		task.Status = TaskRunning
		task.StartedAt = time.Now()
		o.mu.Unlock()

		o.logger.Info("executing stage",
			zap.String("workflow_id", workflowID),
			zap.String("stage", string(spec.Stage)),
			zap.String("agent", spec.AgentName))

		output, err := o.executeStage(ctx, spec.AgentName, input)
		if err != nil {
			o.mu.Lock()
			task.Status = TaskFailed
			task.Error = err.Error()
			task.CompletedAt = time.Now()
			o.mu.Unlock()
			observeStage(spec.Stage, TaskFailed)

			o.logger.Warn("stage failed",
				zap.String("workflow_id", workflowID),
				zap.String("stage", string(spec.Stage)),
				zap.Error(err))

			if rerr := o.handleFailure(spec.Stage, task, tasks, wctx); rerr != nil {
				o.mu.Lock()
				task.Error = fmt.Sprintf("%s; %s", task.Error, rerr)
				o.mu.Unlock()
				failed = append(failed, spec.Stage)
				break
			}
			continue
		}

		o.mu.Lock()
		task.Output = output
		task.Status = TaskCompleted
		task.CompletedAt = time.Now()
		o.mu.Unlock()
		observeStage(spec.Stage, TaskCompleted)

		completed = append(completed, spec.Stage)
		outputs[spec.Stage] = output
		updateContext(spec.Stage, output, wctx)

		if spec.Stage == StageBuildTest {
			o.processBuildFeedback(output, tasks, task.ID)
		}
	}

	duration := time.Since(start)
	observeWorkflow(duration.Seconds())

	completedNames := make([]string, len(completed))
	for i, s := range completed {
		completedNames[i] = string(s)
	}
	failedNames := make([]string, len(failed))
	for i, s := range failed {
		failedNames[i] = string(s)
	}
	stageStates := make(map[string]string, len(ordered))
	o.mu.Lock()
	for _, t := range ordered {
		stageStates[string(t.Stage)] = string(t.Status)
	}
	o.mu.Unlock()
	if _, err := o.store.Store(map[string]any{
		"workflow_id": workflowID,
		"success":     len(failed) == 0,
		"completed":   completedNames,
		"failed":      failedNames,
		"stages":      stageStates,
	}, memory.ScopeProject, "Orchestrator", memory.WithTags("workflow", "execution")); err != nil {
		o.logger.Warn("failed to store workflow outcome", zap.Error(err))
	}

	o.mu.Lock()
	escalations := append([]*contract.ConflictRecord(nil), o.escalations...)
	o.mu.Unlock()

	return &Result{
		WorkflowID:      workflowID,
		Success:         len(failed) == 0,
		StagesCompleted: completed,
		StagesFailed:    failed,
		Outputs:         outputs,
		Duration:        duration,
		Escalations:     escalations,
	}
}

// processBuildFeedback credits build/test execution signals to the agent that
// produced the implementation.
func (o *Orchestrator) processBuildFeedback(output contract.Output, tasks map[Stage]*Task, taskID string) {
	buildOut, ok := output.(*contract.BuildTestOutput)
	if !ok {
		return
	}
	implTask, ok := tasks[StageImplementation]
	if !ok {
		return
	}

	fb := evaluation.ExecutionFeedback{
		BuildSuccess:    buildOut.BuildSuccess,
		TestSuccess:     buildOut.TestSuccess,
		TestsPassed:     buildOut.TestResults.Passed,
		TestsFailed:     buildOut.TestResults.Failed,
		TestsSkipped:    buildOut.TestResults.Skipped,
		CoveragePercent: buildOut.TestResults.Coverage,
	}
	if _, err := o.feedback.Process(implTask.AgentName, fb, taskID); err != nil {
		o.logger.Warn("failed to process build feedback", zap.Error(err))
	}
}

// checkSchema validates a stage input against an externally defined contract
// schema when one is loaded. Findings are advisory and logged; the typed
// Validate in the runner stays authoritative.
func (o *Orchestrator) checkSchema(stage Stage, in contract.Input) {
	if o.schemas == nil {
		return
	}
	name := string(stage) + "_input"
	if _, ok := o.schemas.ContractSchema(name); !ok {
		return
	}

	data, err := json.Marshal(in)
	if err != nil {
		return
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return
	}

	result := o.schemas.ValidateContractInput(name, fields)
	for _, msg := range result.Errors {
		o.logger.Warn("contract schema violation",
			zap.String("stage", string(stage)),
			zap.String("schema", name),
			zap.String("detail", msg))
	}
	for _, msg := range result.Warnings {
		o.logger.Debug("contract schema warning",
			zap.String("stage", string(stage)),
			zap.String("schema", name),
			zap.String("detail", msg))
	}
}

func (o *Orchestrator) executeStage(ctx context.Context, agentName string, in contract.Input) (contract.Output, error) {
	runner, ok := o.registry.Get(agentName)
	if !ok {
		return nil, fmt.Errorf("agent not found: %s", agentName)
	}
	return runner.Run(ctx, in)
}

// prepareInput assembles a stage's input from the running context and the
// outputs of earlier stages. It is pure aside from request ID generation.
func (o *Orchestrator) prepareInput(stage Stage, wctx map[string]any, outputs map[Stage]contract.Output) contract.Input {
	requestID := uuid.NewString()[:8]
	userRequest, _ := wctx["user_request"].(string)

	switch stage {
	case StageRequirements:
		constraints, _ := wctx["constraints"].([]string)
		ctxStr, _ := wctx["context"].(string)
		return &contract.RequirementsInput{
			Meta:        contract.NewMeta(requestID, ""),
			UserRequest: userRequest,
			Context:     ctxStr,
			Constraints: constraints,
		}

	case StageArchitecture:
		in := &contract.ArchitectureInput{Meta: contract.NewMeta(requestID, "")}
		if reqOut, ok := outputs[StageRequirements].(*contract.RequirementsOutput); ok {
			in.Requirements = reqOut.Requirements
			in.Constraints = reqOut.Constraints
		}
		return in

	case StageImplementation:
		in := &contract.ImplementationInput{
			Meta:            contract.NewMeta(requestID, ""),
			TaskDescription: userRequest,
		}
		if standards, ok := wctx["coding_standards"].(string); ok {
			in.CodingStandards = standards
		}
		if archOut, ok := outputs[StageArchitecture].(*contract.ArchitectureOutput); ok {
			in.Components = archOut.Components
			if len(archOut.APIContracts) > 0 {
				c := archOut.APIContracts[0]
				in.APIContract = &c
			}
		}
		return in

	case StageReview:
		in := &contract.ReviewInput{Meta: contract.NewMeta(requestID, "")}
		if implOut, ok := outputs[StageImplementation].(*contract.ImplementationOutput); ok {
			diff := ""
			for _, f := range implOut.FilesCreated {
				content := f.Content
				if len(content) > 500 {
					content = content[:500]
				}
				diff += fmt.Sprintf("+++ %s\n%s\n", f.Path, content)
				in.FilesToReview = append(in.FilesToReview, f.Path)
			}
			in.CodeDiff = diff
		}
		if archOut, ok := outputs[StageArchitecture].(*contract.ArchitectureOutput); ok {
			in.ArchitectureConstraints = archOut.Invariants
		}
		if standards, ok := wctx["coding_standards"].(string); ok {
			in.CodingStandards = standards
		}
		return in

	case StageBuildTest:
		in := &contract.BuildTestInput{Meta: contract.NewMeta(requestID, "")}
		if implOut, ok := outputs[StageImplementation].(*contract.ImplementationOutput); ok {
			for _, f := range implOut.FilesCreated {
				in.SourceFiles = append(in.SourceFiles, f.Path)
			}
		}
		return in

	case StageIntegration:
		in := &contract.IntegrationInput{
			Meta:         contract.NewMeta(requestID, ""),
			TargetBranch: "main",
		}
		if implOut, ok := outputs[StageImplementation].(*contract.ImplementationOutput); ok {
			in.Changes = implOut.FilesCreated
		}
		if reviewOut, ok := outputs[StageReview].(*contract.ReviewOutput); ok {
			in.ReviewApproval = reviewOut.Verdict == contract.VerdictPass
		}
		if buildOut, ok := outputs[StageBuildTest].(*contract.BuildTestOutput); ok {
			in.BuildApproval = buildOut.BuildSuccess
		}
		return in

	case StageFinalApproval:
		in := &contract.ArchitectureInput{Meta: contract.NewMeta(requestID, "")}
		if reqs, ok := wctx["requirements"].([]contract.Requirement); ok {
			in.Requirements = reqs
		}
		if arch, ok := wctx["architecture_summary"].(string); ok {
			in.ExistingArchitecture = arch
		}
		return in

	default:
		return &contract.RequirementsInput{
			Meta:        contract.NewMeta(requestID, ""),
			UserRequest: userRequest,
		}
	}
}

// updateContext publishes stage results into the running context.
func updateContext(stage Stage, output contract.Output, wctx map[string]any) {
	switch stage {
	case StageRequirements:
		if out, ok := output.(*contract.RequirementsOutput); ok {
			wctx["requirements"] = out.Requirements
			wctx["constraints"] = out.Constraints
		}
	case StageArchitecture:
		if out, ok := output.(*contract.ArchitectureOutput); ok {
			wctx["architecture"] = out.Components
			wctx["invariants"] = out.Invariants
		}
	}
}

// handleFailure routes a stage failure to an earlier stage. The routing is
// single pass: the target is reset to pending and charged a retry, and
// failure context is injected; the workflow does not loop back to re-run it.
// Returns ErrRoutingExhausted when the workflow should stop.
func (o *Orchestrator) handleFailure(stage Stage, task *Task, tasks map[Stage]*Task, wctx map[string]any) error {
	target, ok := failureRouting[stage]
	if !ok {
		o.logger.Warn("no failure routing", zap.String("stage", string(stage)))
		observeRouting(stage, "no_route")
		return fmt.Errorf("%w: no route from %s", ErrRoutingExhausted, stage)
	}

	targetTask, ok := tasks[target]
	if !ok {
		observeRouting(stage, "target_missing")
		return fmt.Errorf("%w: target %s not in workflow", ErrRoutingExhausted, target)
	}
	if targetTask.RetryCount >= targetTask.MaxRetries {
		o.logger.Warn("max retries exceeded",
			zap.String("stage", string(stage)),
			zap.String("target", string(target)))
		observeRouting(stage, "retries_exhausted")
		return fmt.Errorf("%w: %s retry budget spent", ErrRoutingExhausted, target)
	}

	o.logger.Info("routing failure",
		zap.String("from", string(stage)),
		zap.String("to", string(target)))

	o.mu.Lock()
	targetTask.Status = TaskPending
	targetTask.RetryCount++
	retryCount := targetTask.RetryCount
	o.mu.Unlock()

	wctx["failure_context"] = map[string]any{
		"failed_stage": string(stage),
		"error":        task.Error,
		"retry_count":  retryCount,
	}

	observeRouting(stage, "routed")
	return nil
}

// EscalateConflict records a conflict and assigns a decision owner above the
// authority of every involved agent.
func (o *Orchestrator) EscalateConflict(topic string, agentsInvolved []string, evidence []map[string]any) (*contract.ConflictRecord, error) {
	maxAuthority := 0
	for _, name := range agentsInvolved {
		if runner, ok := o.registry.Get(name); ok && runner.Authority() > maxAuthority {
			maxAuthority = runner.Authority()
		}
	}

	decisionOwner := "ArchitectAgent"
	if maxAuthority >= 10 {
		if runner, ok := o.registry.HighestAuthority(); ok {
			decisionOwner = runner.Name()
		}
	}

	conflict := &contract.ConflictRecord{
		ConflictID:    uuid.NewString()[:8],
		Topic:         topic,
		Participants:  agentsInvolved,
		Evidence:      evidence,
		DecisionOwner: decisionOwner,
		CreatedAt:     time.Now(),
	}

	o.mu.Lock()
	o.escalations = append(o.escalations, conflict)
	o.mu.Unlock()

	for _, name := range agentsInvolved {
		if err := o.eval.RecordEscalation(name); err != nil {
			o.logger.Warn("failed to record escalation", zap.String("agent", name), zap.Error(err))
		}
	}

	if _, err := o.store.Store(map[string]any{
		"conflict_id":    conflict.ConflictID,
		"topic":          topic,
		"participants":   agentsInvolved,
		"decision_owner": decisionOwner,
	}, memory.ScopeProject, "Orchestrator", memory.WithTags("conflict", "escalation")); err != nil {
		o.logger.Warn("failed to store conflict record", zap.Error(err))
	}

	observeEscalation()
	o.logger.Info("conflict escalated",
		zap.String("conflict_id", conflict.ConflictID),
		zap.String("decision_owner", decisionOwner),
		zap.String("topic", topic))

	return conflict, nil
}

// ResolveConflict applies a resolution to an open conflict. Resolving is one
// shot: an already resolved or unknown conflict returns ErrConflictNotFound.
func (o *Orchestrator) ResolveConflict(conflictID string, resolution map[string]any) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, conflict := range o.escalations {
		if conflict.ConflictID != conflictID || conflict.Resolved() {
			continue
		}
		now := time.Now()
		conflict.Resolution = resolution
		conflict.ResolvedAt = &now
		o.logger.Info("conflict resolved", zap.String("conflict_id", conflictID))
		return nil
	}
	return fmt.Errorf("%w: %s", ErrConflictNotFound, conflictID)
}

// Escalations returns a snapshot of recorded conflicts.
func (o *Orchestrator) Escalations() []*contract.ConflictRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*contract.ConflictRecord(nil), o.escalations...)
}

// WorkflowStatus reports the task states of a known workflow.
func (o *Orchestrator) WorkflowStatus(workflowID string) (*Status, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tasks, ok := o.workflows[workflowID]
	if !ok {
		return nil, false
	}

	views := make([]TaskView, len(tasks))
	done := 0
	for i, t := range tasks {
		views[i] = t.view()
		if t.Status == TaskCompleted {
			done++
		}
	}
	return &Status{
		WorkflowID: workflowID,
		Tasks:      views,
		Progress:   float64(done) / float64(len(tasks)),
	}, true
}

// Scorecards returns the evaluation digest for every agent.
func (o *Orchestrator) Scorecards() map[string]evaluation.Summary {
	return o.eval.AllScores()
}
