package domain

import "time"

type RoleMetadata struct {
	Role         string        `json:"role"`
	Model        string        `json:"model,omitempty"`
	Attempts     int           `json:"attempts"`
	InputTokens  int64         `json:"input_tokens"`
	OutputTokens int64         `json:"output_tokens"`
	Latency      time.Duration `json:"latency_ns"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

// IterationRecord is one Actor to Critic transition. Feedback is nil when the critic failed.
type IterationRecord struct {
	Iteration        int           `json:"iteration"`
	State            LoopState     `json:"state"`
	Document         Document      `json:"gdd"`
	Feedback         *Feedback     `json:"feedback,omitempty"`
	AutoApproved     bool          `json:"auto_approved"`
	Fallback         bool          `json:"fallback"`
	ActorStartedAt   time.Time     `json:"actor_started_at"`
	ActorFinishedAt  time.Time     `json:"actor_finished_at"`
	CriticStartedAt  *time.Time    `json:"critic_started_at,omitempty"`
	CriticFinishedAt *time.Time    `json:"critic_finished_at,omitempty"`
	Actor            *RoleMetadata `json:"actor,omitempty"`
	Critic           *RoleMetadata `json:"critic,omitempty"`
	Error            string        `json:"error,omitempty"`
}

func (r IterationRecord) ActorDuration() time.Duration {
	return r.ActorFinishedAt.Sub(r.ActorStartedAt)
}

func (r IterationRecord) CriticDuration() time.Duration {
	if r.CriticStartedAt == nil || r.CriticFinishedAt == nil {
		return 0
	}
	return r.CriticFinishedAt.Sub(*r.CriticStartedAt)
}

type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

func (u *TokenUsage) Add(m *RoleMetadata) {
	if m == nil {
		return
	}
	u.InputTokens += m.InputTokens
	u.OutputTokens += m.OutputTokens
}

func (u TokenUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

type RefinementResult struct {
	Concept           string            `json:"concept"`
	FinalGDD          Document          `json:"final_gdd"`
	Iterations        []IterationRecord `json:"iterations"`
	TerminationReason TerminationReason `json:"termination_reason"`
	Success           bool              `json:"success"`
	TotalIterations   int               `json:"total_iterations"`
	Selection         Selection         `json:"selection"`
	StartedAt         time.Time         `json:"started_at"`
	FinishedAt        time.Time         `json:"finished_at"`
	DurationMS        int64             `json:"duration_ms"`
	Usage             TokenUsage        `json:"usage"`
}

// FinalFeedback returns the most recent critic feedback, or nil when none was recorded.
func (r RefinementResult) FinalFeedback() *Feedback {
	for i := len(r.Iterations) - 1; i >= 0; i-- {
		if r.Iterations[i].Feedback != nil {
			return r.Iterations[i].Feedback
		}
	}
	return nil
}

func (r RefinementResult) FinalScore() (float64, bool) {
	f := r.FinalFeedback()
	if f == nil {
		return 0, false
	}
	return f.OverallScore(), true
}

// ReviewReasons explains why an unsuccessful result needs a human look. It is empty on success.
func (r RefinementResult) ReviewReasons() []string {
	if r.Success {
		return nil
	}
	reasons := []string{"termination:" + string(r.TerminationReason)}
	for _, rec := range r.Iterations {
		switch {
		case rec.Fallback:
			reasons = append(reasons, "fallback_document")
		case rec.AutoApproved:
			reasons = append(reasons, "critic_failed")
		}
	}
	if fb := r.FinalFeedback(); fb != nil {
		for _, issue := range fb.BlockingIssues {
			reasons = append(reasons, string(issue.Severity)+":"+issue.Section)
		}
	}
	return reasons
}
