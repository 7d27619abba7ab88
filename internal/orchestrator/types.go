// Package orchestrator runs the development workflow: an ordered DAG of
// stages, each executed by one agent, with failure routing back to earlier
// stages and conflict escalation by authority.
package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/crewkit/internal/contract"
)

// Stage identifies one step of the development workflow.
type Stage string

const (
	StageRequirements   Stage = "requirements"
	StageArchitecture   Stage = "architecture"
	StageImplementation Stage = "implementation"
	StageReview         Stage = "review"
	StageBuildTest      Stage = "build_test"
	StageIntegration    Stage = "integration"
	StageFinalApproval  Stage = "final_approval"
)

// TaskStatus is the lifecycle state of a workflow task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskBlocked   TaskStatus = "blocked"
	TaskEscalated TaskStatus = "escalated"
)

// defaultMaxRetries bounds how often a stage can be re-targeted by failure
// routing before the workflow gives up.
const defaultMaxRetries = 3

// Task is one node of the workflow DAG.
type Task struct {
	ID           string
	Stage        Stage
	AgentName    string
	Input        contract.Input
	Output       contract.Output
	Status       TaskStatus
	Dependencies []Stage
	CreatedAt    time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	Error        string
	RetryCount   int
	MaxRetries   int
}

// TaskView is the externally visible snapshot of a task.
type TaskView struct {
	ID         string     `json:"id"`
	Stage      Stage      `json:"stage"`
	Agent      string     `json:"agent"`
	Status     TaskStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	RetryCount int        `json:"retry_count"`
}

func (t *Task) view() TaskView {
	return TaskView{
		ID:         t.ID,
		Stage:      t.Stage,
		Agent:      t.AgentName,
		Status:     t.Status,
		Error:      t.Error,
		RetryCount: t.RetryCount,
	}
}

// StageSpec binds a stage to its agent and dependency stages.
type StageSpec struct {
	Stage        Stage
	AgentName    string
	Dependencies []Stage
}

// DefaultWorkflow is the full seven-stage pipeline.
func DefaultWorkflow() []StageSpec {
	return []StageSpec{
		{StageRequirements, "ProductAgent", nil},
		{StageArchitecture, "ArchitectAgent", []Stage{StageRequirements}},
		{StageImplementation, "ImplementationAgent", []Stage{StageArchitecture}},
		{StageReview, "ReviewerAgent", []Stage{StageImplementation}},
		{StageBuildTest, "BuildTestAgent", []Stage{StageReview}},
		{StageIntegration, "IntegratorAgent", []Stage{StageBuildTest}},
		{StageFinalApproval, "ArchitectAgent", []Stage{StageIntegration}},
	}
}

// QuickWorkflow skips review and build/test for fast iteration.
func QuickWorkflow() []StageSpec {
	return []StageSpec{
		{StageRequirements, "ProductAgent", nil},
		{StageArchitecture, "ArchitectAgent", []Stage{StageRequirements}},
		{StageImplementation, "ImplementationAgent", []Stage{StageArchitecture}},
		{StageIntegration, "IntegratorAgent", []Stage{StageImplementation}},
		{StageFinalApproval, "ArchitectAgent", []Stage{StageIntegration}},
	}
}

// failureRouting maps a failed stage to the stage that gets re-targeted.
// Stages without an entry fail the workflow outright.
var failureRouting = map[Stage]Stage{
	StageReview:        StageImplementation,
	StageBuildTest:     StageImplementation,
	StageIntegration:   StageImplementation,
	StageFinalApproval: StageArchitecture,
}

// Result reports a finished workflow run.
type Result struct {
	WorkflowID      string                     `json:"workflow_id"`
	Success         bool                       `json:"success"`
	StagesCompleted []Stage                    `json:"stages_completed"`
	StagesFailed    []Stage                    `json:"stages_failed,omitempty"`
	Outputs         map[Stage]contract.Output  `json:"-"`
	Duration        time.Duration              `json:"duration"`
	Escalations     []*contract.ConflictRecord `json:"escalations,omitempty"`
}

// Summary renders a short human-readable run report.
func (r *Result) Summary() string {
	status := "succeeded"
	if !r.Success {
		status = "failed"
	}
	return fmt.Sprintf("Workflow %s %s\nCompleted: %s\nFailed: %s\nDuration: %.1fs\nEscalations: %d",
		r.WorkflowID, status,
		joinStages(r.StagesCompleted),
		joinStages(r.StagesFailed),
		r.Duration.Seconds(),
		len(r.Escalations))
}

func joinStages(stages []Stage) string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// Status is a point-in-time view of an active workflow.
type Status struct {
	WorkflowID string     `json:"workflow_id"`
	Tasks      []TaskView `json:"tasks"`
	Progress   float64    `json:"progress"`
}
