package contract

// Requirement is a single structured requirement produced by the product stage.
type Requirement struct {
	ID                 string   `json:"id"`
	Description        string   `json:"description"`
	Priority           string   `json:"priority"`
	Status             string   `json:"status"`
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
}

// RequirementsInput carries the raw user request into the requirements stage.
type RequirementsInput struct {
	Meta
	UserRequest string   `json:"user_request"`
	Context     string   `json:"context,omitempty"`
	Constraints []string `json:"constraints,omitempty"`
}

// RequirementsOutput is produced by the product agent.
type RequirementsOutput struct {
	Meta
	Requirements       []Requirement `json:"requirements"`
	AcceptanceCriteria []string      `json:"acceptance_criteria"`
	Constraints        []string      `json:"constraints"`
	Risks              []string      `json:"risks,omitempty"`
}

func (o RequirementsOutput) Validate() []Violation {
	var violations []Violation
	if len(o.Requirements) == 0 {
		violations = append(violations, Violation{
			RuleID:   "REQ-001",
			Severity: SeverityError,
			Message:  "requirements cannot be empty",
		})
	}
	for _, req := range o.Requirements {
		if req.ID == "" || req.Description == "" {
			violations = append(violations, Violation{
				RuleID:   "REQ-002",
				Severity: SeverityError,
				Message:  "each requirement must have an id and a description",
			})
		}
	}
	return violations
}

// Component describes one architectural component.
type Component struct {
	Name           string   `json:"name"`
	Responsibility string   `json:"responsibility"`
	Interfaces     []string `json:"interfaces,omitempty"`
}

// DesignDecision documents a decision with its rationale and alternatives.
type DesignDecision struct {
	ID           string   `json:"id"`
	Decision     string   `json:"decision"`
	Rationale    string   `json:"rationale"`
	Alternatives []string `json:"alternatives,omitempty"`
	Status       string   `json:"status"`
}

// APIContract declares a versioned interface exposed by a component.
type APIContract struct {
	Component string   `json:"component"`
	Interface string   `json:"interface"`
	Version   string   `json:"version"`
	Methods   []string `json:"methods,omitempty"`
}

// ArchitectureInput carries requirements into the architecture stage.
type ArchitectureInput struct {
	Meta
	Requirements         []Requirement `json:"requirements"`
	ExistingArchitecture string        `json:"existing_architecture,omitempty"`
	Constraints          []string      `json:"constraints,omitempty"`
}

// ArchitectureOutput is produced by the architect agent.
type ArchitectureOutput struct {
	Meta
	Components      []Component      `json:"components"`
	Invariants      []string         `json:"invariants"`
	DesignDecisions []DesignDecision `json:"design_decisions"`
	APIContracts    []APIContract    `json:"api_contracts"`
	Risks           []string         `json:"risks,omitempty"`
}

func (o ArchitectureOutput) Validate() []Violation {
	var violations []Violation
	if len(o.Components) == 0 {
		violations = append(violations, Violation{
			RuleID:   "ARCH-001",
			Severity: SeverityError,
			Message:  "architecture must define at least one component",
		})
	}
	if len(o.Invariants) == 0 {
		violations = append(violations, Violation{
			RuleID:   "ARCH-002",
			Severity: SeverityWarning,
			Message:  "architecture should define invariants",
		})
	}
	return violations
}

// FileChange is a newly created file.
type FileChange struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// FileModification is a change to an existing file.
type FileModification struct {
	Path        string `json:"path"`
	Diff        string `json:"diff"`
	Description string `json:"description,omitempty"`
}

// ImplementationInput carries the task and architecture into implementation.
type ImplementationInput struct {
	Meta
	TaskDescription string       `json:"task_description"`
	Components      []Component  `json:"components,omitempty"`
	APIContract     *APIContract `json:"api_contract,omitempty"`
	CodingStandards string       `json:"coding_standards,omitempty"`
	TargetFiles     []string     `json:"target_files,omitempty"`
}

// ImplementationOutput is produced by the implementation agent.
type ImplementationOutput struct {
	Meta
	FilesCreated  []FileChange       `json:"files_created"`
	FilesModified []FileModification `json:"files_modified"`
	FilesDeleted  []string           `json:"files_deleted,omitempty"`
	Notes         string             `json:"implementation_notes,omitempty"`
	APICompliance bool               `json:"api_compliance"`
}

func (o ImplementationOutput) Validate() []Violation {
	var violations []Violation
	if len(o.FilesCreated) == 0 && len(o.FilesModified) == 0 {
		violations = append(violations, Violation{
			RuleID:   "IMPL-001",
			Severity: SeverityWarning,
			Message:  "implementation produced no file changes",
		})
	}
	return violations
}

// ReviewInput carries a diff and the standards to review it against.
type ReviewInput struct {
	Meta
	CodeDiff                string   `json:"code_diff"`
	ArchitectureConstraints []string `json:"architecture_constraints,omitempty"`
	CodingStandards         string   `json:"coding_standards,omitempty"`
	FilesToReview           []string `json:"files_to_review,omitempty"`
}

// SuggestedPatch is a concrete replacement proposed by the reviewer.
type SuggestedPatch struct {
	File        string `json:"file"`
	Original    string `json:"original,omitempty"`
	Replacement string `json:"replacement"`
}

// ReviewOutput is produced by the reviewer agent.
type ReviewOutput struct {
	Meta
	Verdict          Verdict          `json:"verdict"`
	Violations       []Violation      `json:"violations,omitempty"`
	SuggestedPatches []SuggestedPatch `json:"suggested_patches,omitempty"`
	SecurityConcerns []string         `json:"security_concerns,omitempty"`
	QualityScore     float64          `json:"quality_score"`
	Comments         string           `json:"comments,omitempty"`
}

// BuildTestInput carries the files to build and test.
type BuildTestInput struct {
	Meta
	SourceFiles  []string `json:"source_files"`
	TestFiles    []string `json:"test_files,omitempty"`
	BuildCommand string   `json:"build_command,omitempty"`
	TestCommand  string   `json:"test_command,omitempty"`
}

// TestResults summarizes a test run.
type TestResults struct {
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Skipped  int     `json:"skipped"`
	Coverage float64 `json:"coverage"`
}

// BuildTestOutput is produced by the build/test agent.
type BuildTestOutput struct {
	Meta
	BuildSuccess bool               `json:"build_success"`
	TestSuccess  bool               `json:"test_success"`
	TestResults  TestResults        `json:"test_results"`
	BuildLogs    string             `json:"build_logs,omitempty"`
	TestLogs     string             `json:"test_logs,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	SecurityScan map[string]any     `json:"security_scan,omitempty"`
}

func (o BuildTestOutput) Validate() []Violation {
	var violations []Violation
	if !o.BuildSuccess {
		violations = append(violations, Violation{
			RuleID:   "BUILD-001",
			Severity: SeverityError,
			Message:  "build failed",
		})
	}
	if !o.TestSuccess {
		violations = append(violations, Violation{
			RuleID:   "TEST-001",
			Severity: SeverityError,
			Message:  "tests failed",
		})
	}
	return violations
}

// MergeConflict records a file that could not be merged.
type MergeConflict struct {
	File string `json:"file"`
	Type string `json:"type"`
}

// IntegrationInput carries approved changes into integration.
type IntegrationInput struct {
	Meta
	Changes        []FileChange `json:"changes"`
	TargetBranch   string       `json:"target_branch"`
	SourceBranch   string       `json:"source_branch,omitempty"`
	ReviewApproval bool         `json:"review_approval"`
	BuildApproval  bool         `json:"build_approval"`
}

// IntegrationOutput is produced by the integrator agent.
type IntegrationOutput struct {
	Meta
	Success     bool            `json:"success"`
	MergedFiles []string        `json:"merged_files,omitempty"`
	Conflicts   []MergeConflict `json:"conflicts,omitempty"`
	CommitSHA   string          `json:"commit_sha,omitempty"`
	Notes       string          `json:"integration_notes,omitempty"`
}

// InfraInput requests an infrastructure operation.
type InfraInput struct {
	Meta
	Operation         string         `json:"operation"`
	TargetEnvironment string         `json:"target_environment"`
	Configuration     map[string]any `json:"configuration,omitempty"`
}

// InfraOutput reports the result of an infrastructure operation.
type InfraOutput struct {
	Meta
	Success        bool             `json:"success"`
	Operation      string           `json:"operation"`
	Environment    string           `json:"environment"`
	ChangesApplied []map[string]any `json:"changes_applied,omitempty"`
	Logs           string           `json:"logs,omitempty"`
	NextSteps      []string         `json:"next_steps,omitempty"`
}
