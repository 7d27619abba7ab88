package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/crewkit/internal/contract"
	"github.com/fyrsmithlabs/crewkit/internal/memory"
)

// ReviewerAgent gates code quality. It lints added diff lines against coding
// standards and architecture constraints, scans for security smells, and
// returns a verdict with a quality score.
type ReviewerAgent struct {
	mem *memory.AgentMemory
}

// NewReviewerAgent creates the quality gatekeeper.
func NewReviewerAgent(store *memory.Store) *ReviewerAgent {
	a := &ReviewerAgent{}
	if store != nil {
		a.mem = memory.NewAgentMemory(a.Name(), store)
	}
	return a
}

func (a *ReviewerAgent) Name() string   { return "ReviewerAgent" }
func (a *ReviewerAgent) Authority() int { return 7 }
func (a *ReviewerAgent) Description() string {
	return "Reviews code for quality, security, and standards compliance"
}

func (a *ReviewerAgent) Execute(ctx context.Context, in contract.Input) (contract.Output, error) {
	input, ok := in.(*contract.ReviewInput)
	if !ok {
		return nil, fmt.Errorf("unexpected input type %T", in)
	}

	qualityScore := 100.0

	violations := checkStandards(input.CodeDiff)
	qualityScore -= float64(len(violations)) * 5

	constraintViolations := checkConstraints(input.CodeDiff, input.ArchitectureConstraints)
	violations = append(violations, constraintViolations...)
	qualityScore -= float64(len(constraintViolations)) * 10

	securityConcerns := analyzeSecurity(input.CodeDiff)
	qualityScore -= float64(len(securityConcerns)) * 15

	var patches []contract.SuggestedPatch
	for _, v := range violations {
		if v.SuggestedFix != "" {
			location := v.Location
			if location == "" {
				location = "unknown"
			}
			patches = append(patches, contract.SuggestedPatch{
				File:        location,
				Replacement: v.SuggestedFix,
			})
		}
	}

	verdict := reviewVerdict(violations, securityConcerns, qualityScore)

	if a.mem != nil {
		if _, err := a.mem.LearnSkill(map[string]any{
			"review_type":      "code",
			"violations_found": len(violations),
			"verdict":          string(verdict),
		}); err != nil {
			return nil, err
		}
	}

	return &contract.ReviewOutput{
		Meta:             contract.NewMeta(input.RequestID(), a.Name()),
		Verdict:          verdict,
		Violations:       violations,
		SuggestedPatches: patches,
		SecurityConcerns: securityConcerns,
		QualityScore:     max(0, qualityScore),
		Comments:         reviewSummary(violations, securityConcerns, verdict),
	}, nil
}

// checkStandards lints the added lines of a unified diff.
func checkStandards(diff string) []contract.Violation {
	var violations []contract.Violation

	for i, line := range strings.Split(diff, "\n") {
		if !strings.HasPrefix(line, "+") || strings.HasPrefix(line, "+++") {
			continue
		}
		code := line[1:]
		location := fmt.Sprintf("line %d", i+1)

		if len(code) > 100 {
			violations = append(violations, contract.Violation{
				RuleID:       "STD-001",
				Severity:     contract.SeverityWarning,
				Message:      fmt.Sprintf("Line exceeds 100 characters (%d)", len(code)),
				Location:     location,
				SuggestedFix: "Break line into multiple lines",
			})
		}

		if strings.Contains(code, "TODO") && !strings.Contains(code, "#") {
			violations = append(violations, contract.Violation{
				RuleID:   "STD-002",
				Severity: contract.SeverityInfo,
				Message:  "TODO comment should reference an issue number",
				Location: location,
			})
		}

		if strings.Contains(code, "fmt.Print") && !strings.Contains(strings.ToLower(code), "// debug") {
			violations = append(violations, contract.Violation{
				RuleID:       "STD-003",
				Severity:     contract.SeverityWarning,
				Message:      "Use structured logging instead of fmt.Print",
				Location:     location,
				SuggestedFix: "Replace fmt.Print with a logger call",
			})
		}

		if strings.Contains(code, "_ =") && strings.Contains(code, "err") {
			violations = append(violations, contract.Violation{
				RuleID:       "STD-004",
				Severity:     contract.SeverityError,
				Message:      "Error discarded with blank identifier",
				Location:     location,
				SuggestedFix: "Handle the error or propagate it to the caller",
			})
		}
	}

	return violations
}

// checkConstraints matches the diff against coarse architecture rules.
func checkConstraints(diff string, constraints []string) []contract.Violation {
	var violations []contract.Violation
	diffLower := strings.ToLower(diff)

	for _, constraint := range constraints {
		constraintLower := strings.ToLower(constraint)

		if strings.Contains(constraintLower, "no circular") {
			if strings.Contains(diffLower, "import cycle") {
				violations = append(violations, contract.Violation{
					RuleID:       "ARCH-001",
					Severity:     contract.SeverityError,
					Message:      "Possible circular dependency detected",
					SuggestedFix: "Refactor to avoid circular imports",
				})
			}
		}

		if strings.Contains(constraintLower, "repository") {
			if (strings.Contains(diffLower, "sql") || strings.Contains(diffLower, "query(")) &&
				!strings.Contains(diffLower, "repository") {
				violations = append(violations, contract.Violation{
					RuleID:       "ARCH-002",
					Severity:     contract.SeverityError,
					Message:      "Direct database access outside repository layer",
					SuggestedFix: "Use repository pattern for data access",
				})
			}
		}
	}

	return violations
}

// analyzeSecurity scans for common security smells.
func analyzeSecurity(diff string) []string {
	var concerns []string
	diffLower := strings.ToLower(diff)

	for _, pattern := range []string{"password =", "secret =", "api_key =", "token ="} {
		if strings.Contains(diffLower, pattern) &&
			!strings.Contains(diffLower, "config") && !strings.Contains(diffLower, "env") {
			concerns = append(concerns, fmt.Sprintf("Possible hardcoded secret (%s)", strings.TrimSuffix(pattern, " =")))
		}
	}

	if strings.Contains(diff, "Sprintf(") && strings.Contains(diffLower, "select") {
		concerns = append(concerns, "Possible SQL injection vulnerability - use parameterized queries")
	}

	if strings.Contains(diffLower, "sh -c") || strings.Contains(diffLower, "os.system") {
		concerns = append(concerns, "Shell command execution is a security risk")
	}

	return concerns
}

// reviewVerdict picks the verdict: security concerns fail outright, contract
// errors or a low score require revision.
func reviewVerdict(violations []contract.Violation, security []string, qualityScore float64) contract.Verdict {
	switch {
	case len(security) > 0:
		return contract.VerdictFail
	case contract.HasErrors(violations):
		return contract.VerdictNeedsRevision
	case qualityScore >= 80:
		return contract.VerdictPass
	default:
		return contract.VerdictNeedsRevision
	}
}

func reviewSummary(violations []contract.Violation, security []string, verdict contract.Verdict) string {
	var parts []string

	switch verdict {
	case contract.VerdictPass:
		parts = append(parts, "Code review passed.")
	case contract.VerdictFail:
		parts = append(parts, "Code review FAILED - issues must be resolved.")
	default:
		parts = append(parts, "Code review requires revisions.")
	}

	if len(violations) > 0 {
		var errors, warnings int
		for _, v := range violations {
			switch v.Severity {
			case contract.SeverityError:
				errors++
			case contract.SeverityWarning:
				warnings++
			}
		}
		parts = append(parts, fmt.Sprintf("Found %d errors and %d warnings.", errors, warnings))
	}

	if len(security) > 0 {
		parts = append(parts, fmt.Sprintf("SECURITY: %d concern(s) identified.", len(security)))
	}

	return strings.Join(parts, " ")
}
