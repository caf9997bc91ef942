package domain

type JobStatus string

const (
	StatusReceived    JobStatus = "RECEIVED"
	StatusStored      JobStatus = "STORED"
	StatusGenerating  JobStatus = "GENERATING"
	StatusApproved    JobStatus = "APPROVED"
	StatusExhausted   JobStatus = "MAX_ITERATIONS"
	StatusFallback    JobStatus = "FALLBACK"
	StatusNeedsReview JobStatus = "NEEDS_REVIEW"
	StatusCompleted   JobStatus = "COMPLETED"
	StatusRejected    JobStatus = "REJECTED"
	StatusFailed      JobStatus = "FAILED"
)

// StatusForTermination maps a loop outcome onto the job lifecycle.
func StatusForTermination(reason TerminationReason) JobStatus {
	switch reason {
	case TerminationApproved:
		return StatusApproved
	case TerminationMaxIterations:
		return StatusExhausted
	default:
		return StatusFallback
	}
}

type AuditState string

const (
	AuditStored     AuditState = "STORED"
	AuditGenerating AuditState = "GENERATING"
	AuditIteration  AuditState = "ITERATION"
	AuditPersisted  AuditState = "PERSISTED"
	AuditExported   AuditState = "EXPORTED"
	AuditReview     AuditState = "NEEDS_REVIEW"
	AuditReviewed   AuditState = "REVIEWED"
	AuditCompleted  AuditState = "COMPLETED"
	AuditRejected   AuditState = "REJECTED"
	AuditFailed     AuditState = "FAILED"
)

// Terminal reports whether no further transitions are expected for the job.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusFailed:
		return true
	}
	return false
}

// LoopState is the orchestrator state reached by an iteration.
type LoopState string

const (
	StateInitializing    LoopState = "initializing"
	StateActorGenerating LoopState = "actor_generating"
	StateActorRetrying   LoopState = "actor_retrying"
	StateCriticReviewing LoopState = "critic_reviewing"
	StateApproved        LoopState = "approved"
	StateNeedsRevision   LoopState = "needs_revision"
	StateCriticFailed    LoopState = "critic_failed"
	StateActorRevising   LoopState = "actor_revising"
	StateActorFailed     LoopState = "actor_failed"
	StateCompleted       LoopState = "completed"
)

type TerminationReason string

const (
	TerminationApproved      TerminationReason = "approved"
	TerminationMaxIterations TerminationReason = "max_iterations"
	TerminationFatalFallback TerminationReason = "fatal_fallback"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionRevise  Decision = "revise"
)

// Selection names the policy used to pick the final document when the loop runs out of iterations.
type Selection string

const (
	SelectLatest    Selection = "latest"
	SelectBestScore Selection = "best_score"
)

type ReviewDecision string

const (
	ReviewApprove ReviewDecision = "approve"
	ReviewReject  ReviewDecision = "reject"
)
