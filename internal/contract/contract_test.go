package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasErrors(t *testing.T) {
	assert.False(t, HasErrors(nil))
	assert.False(t, HasErrors([]Violation{
		{RuleID: "X-001", Severity: SeverityWarning},
		{RuleID: "X-002", Severity: SeverityInfo},
	}))
	assert.True(t, HasErrors([]Violation{
		{RuleID: "X-001", Severity: SeverityWarning},
		{RuleID: "X-002", Severity: SeverityError},
	}))
}

func TestViolationErrorMessage(t *testing.T) {
	err := NewViolationError(DirectionOutput, []Violation{
		{RuleID: "REQ-001", Severity: SeverityError, Message: "requirements cannot be empty"},
	})
	assert.Equal(t, "output contract violation: requirements cannot be empty", err.Error())
}

func TestRequirementsOutputValidate(t *testing.T) {
	tests := []struct {
		name      string
		output    RequirementsOutput
		wantRules []string
	}{
		{
			name:      "empty requirements",
			output:    RequirementsOutput{Meta: NewMeta("r1", "ProductAgent")},
			wantRules: []string{"REQ-001"},
		},
		{
			name: "missing id",
			output: RequirementsOutput{
				Meta:         NewMeta("r1", "ProductAgent"),
				Requirements: []Requirement{{Description: "do the thing"}},
			},
			wantRules: []string{"REQ-002"},
		},
		{
			name: "valid",
			output: RequirementsOutput{
				Meta:         NewMeta("r1", "ProductAgent"),
				Requirements: []Requirement{{ID: "REQ-001", Description: "do the thing"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := tt.output.Validate()
			require.Len(t, violations, len(tt.wantRules))
			for i, rule := range tt.wantRules {
				assert.Equal(t, rule, violations[i].RuleID)
			}
		})
	}
}

func TestArchitectureOutputValidate(t *testing.T) {
	empty := ArchitectureOutput{Meta: NewMeta("r1", "ArchitectAgent")}
	violations := empty.Validate()
	require.Len(t, violations, 2)
	assert.True(t, HasErrors(violations), "missing components is an error")

	noInvariants := ArchitectureOutput{
		Meta:       NewMeta("r1", "ArchitectAgent"),
		Components: []Component{{Name: "core"}},
	}
	violations = noInvariants.Validate()
	require.Len(t, violations, 1)
	assert.Equal(t, SeverityWarning, violations[0].Severity, "missing invariants only warns")
}

func TestBuildTestOutputValidate(t *testing.T) {
	bad := BuildTestOutput{Meta: NewMeta("r1", "BuildTestAgent")}
	assert.True(t, HasErrors(bad.Validate()))

	good := BuildTestOutput{
		Meta:         NewMeta("r1", "BuildTestAgent"),
		BuildSuccess: true,
		TestSuccess:  true,
	}
	assert.Empty(t, good.Validate())
}

func TestMetaTraceability(t *testing.T) {
	in := RequirementsInput{Meta: NewMeta("req-42", ""), UserRequest: "build it"}
	out := RequirementsOutput{
		Meta:         NewMeta(in.RequestID(), "ProductAgent"),
		Requirements: []Requirement{{ID: "REQ-001", Description: "build it"}},
	}
	assert.Equal(t, in.RequestID(), out.RequestID())
	assert.Equal(t, "ProductAgent", out.SourceAgent())
}

func TestConflictRecordResolved(t *testing.T) {
	c := ConflictRecord{ConflictID: "c1"}
	assert.False(t, c.Resolved())
}
