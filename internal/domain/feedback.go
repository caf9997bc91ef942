package domain

import (
	"fmt"
	"strings"
)

const (
	weightFeasibility  = 0.25
	weightCoherence    = 0.20
	weightFunFactor    = 0.25
	weightCompleteness = 0.15
	weightOriginality  = 0.15
)

var decisions = setOf(DecisionApprove, DecisionRevise)

type BlockingIssue struct {
	Section    string   `json:"section"`
	Issue      string   `json:"issue"`
	Severity   Severity `json:"severity"`
	Suggestion string   `json:"suggestion"`
}

func (i BlockingIssue) String() string {
	marker := "[MAJOR]"
	if i.Severity == SeverityCritical {
		marker = "[CRITICAL]"
	}
	return fmt.Sprintf("%s %s:\n   Issue: %s\n   Fix: %s", marker, i.Section, i.Issue, i.Suggestion)
}

// Feedback is the critic's verdict on one document.
type Feedback struct {
	Decision          Decision        `json:"decision"`
	BlockingIssues    []BlockingIssue `json:"blocking_issues"`
	FeasibilityScore  int             `json:"feasibility_score"`
	CoherenceScore    int             `json:"coherence_score"`
	FunFactorScore    int             `json:"fun_factor_score"`
	CompletenessScore int             `json:"completeness_score"`
	OriginalityScore  int             `json:"originality_score"`
	ReviewNotes       *string         `json:"review_notes,omitempty"`
}

func (f Feedback) OverallScore() float64 {
	return float64(f.FeasibilityScore)*weightFeasibility +
		float64(f.CoherenceScore)*weightCoherence +
		float64(f.FunFactorScore)*weightFunFactor +
		float64(f.CompletenessScore)*weightCompleteness +
		float64(f.OriginalityScore)*weightOriginality
}

func (f Feedback) HasCritical() bool {
	for _, i := range f.BlockingIssues {
		if i.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// EffectiveDecision returns the raw decision, downgraded to revise when any blocking issue is critical.
func (f Feedback) EffectiveDecision() Decision {
	if f.Decision == DecisionApprove && f.HasCritical() {
		return DecisionRevise
	}
	return f.Decision
}

// DecisionWithThreshold also downgrades an approval whose overall score is below threshold.
func (f Feedback) DecisionWithThreshold(threshold float64) Decision {
	d := f.EffectiveDecision()
	if d == DecisionApprove && f.OverallScore() < threshold {
		return DecisionRevise
	}
	return d
}

// ToActorFeedback renders the digest embedded in the next revision prompt.
func (f Feedback) ToActorFeedback() string {
	lines := []string{
		"## CRITIC DECISION: " + strings.ToUpper(string(f.EffectiveDecision())),
		"",
		fmt.Sprintf("### SCORES (Overall: %.1f/10)", f.OverallScore()),
		fmt.Sprintf("- Feasibility: %d/10", f.FeasibilityScore),
		fmt.Sprintf("- Coherence: %d/10", f.CoherenceScore),
		fmt.Sprintf("- Fun Factor: %d/10", f.FunFactorScore),
		fmt.Sprintf("- Completeness: %d/10", f.CompletenessScore),
		fmt.Sprintf("- Originality: %d/10", f.OriginalityScore),
		"",
	}
	if len(f.BlockingIssues) > 0 {
		lines = append(lines, "### BLOCKING ISSUES (Must Fix)", "")
		for _, i := range f.BlockingIssues {
			lines = append(lines, i.String(), "")
		}
	}
	if f.ReviewNotes != nil && *f.ReviewNotes != "" {
		lines = append(lines, "### REVIEWER NOTES", *f.ReviewNotes, "")
	}
	return strings.Join(lines, "\n")
}
