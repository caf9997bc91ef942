package temporal

import (
	"gdd-orchestrator/internal/domain"
)

const ReviewDecisionSignalName = "reviewDecision"

type ReviewDecisionSignal struct {
	Decision domain.ReviewDecision `json:"decision"`
	Reviewer string                `json:"reviewer,omitempty"`
	Reason   string                `json:"reason,omitempty"`
}
