package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"gdd-orchestrator/internal/domain"
)

const GDDRefinementWorkflowName = "GDDRefinementWorkflow"

type WorkflowInput struct {
	JobID     string
	ObjectKey string
	// ReviewTimeout bounds the wait for a reviewer on unsuccessful runs; zero skips review.
	ReviewTimeout time.Duration
}

type WorkflowResult struct {
	JobID             string
	Status            domain.JobStatus
	TerminationReason domain.TerminationReason
	Success           bool
	ExportKeys        []string
}

func GDDRefinementWorkflow(ctx workflow.Context, input WorkflowInput) (WorkflowResult, error) {
	logger := workflow.GetLogger(ctx)

	var loaded LoadConceptOutput
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyLoadConcept), (*Activities).LoadConceptActivity, LoadConceptInput{
		JobID:     input.JobID,
		ObjectKey: input.ObjectKey,
	}).Get(ctx, &loaded); err != nil {
		return failJob(ctx, input.JobID, "load concept", err)
	}

	var refined RunRefinementOutput
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyRunRefinement), (*Activities).RunRefinementActivity, RunRefinementInput{
		JobID:   input.JobID,
		Concept: loaded.Concept,
	}).Get(ctx, &refined); err != nil {
		return failJob(ctx, input.JobID, "run refinement", err)
	}
	result := refined.Result

	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyPersistResult), (*Activities).PersistResultActivity, PersistResultInput{
		JobID:  input.JobID,
		Result: result,
	}).Get(ctx, nil); err != nil {
		return failJob(ctx, input.JobID, "persist result", err)
	}

	out := WorkflowResult{
		JobID:             input.JobID,
		TerminationReason: result.TerminationReason,
		Success:           result.Success,
	}

	if !result.Success && input.ReviewTimeout > 0 {
		if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyQueueReview), (*Activities).QueueReviewActivity, QueueReviewInput{
			JobID:   input.JobID,
			Reasons: result.ReviewReasons(),
		}).Get(ctx, nil); err != nil {
			return failJob(ctx, input.JobID, "queue review", err)
		}

		decision, timedOut := awaitReview(ctx, input.ReviewTimeout)
		switch {
		case timedOut:
			logger.Info("review window elapsed, exporting best-effort document", "JobID", input.JobID)
			_ = workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyResolveReview), (*Activities).ResolveReviewActivity, ResolveReviewInput{
				JobID:    input.JobID,
				Decision: "EXPIRED",
			}).Get(ctx, nil)
		case decision.Decision == domain.ReviewReject:
			if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyRejectJob), (*Activities).RejectJobActivity, RejectJobInput{
				JobID:    input.JobID,
				Reviewer: decision.Reviewer,
				Reason:   decision.Reason,
			}).Get(ctx, nil); err != nil {
				return failJob(ctx, input.JobID, "reject job", err)
			}
			out.Status = domain.StatusRejected
			return out, nil
		default:
			_ = workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyResolveReview), (*Activities).ResolveReviewActivity, ResolveReviewInput{
				JobID:    input.JobID,
				Decision: "APPROVED",
				Reviewer: decision.Reviewer,
			}).Get(ctx, nil)
		}
	}

	var exported ExportArtifactsOutput
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyExportArtifacts), (*Activities).ExportArtifactsActivity, ExportArtifactsInput{
		JobID:    input.JobID,
		Document: result.FinalGDD,
	}).Get(ctx, &exported); err != nil {
		return failJob(ctx, input.JobID, "export artifacts", err)
	}

	out.Status = domain.StatusCompleted
	out.ExportKeys = exported.Keys
	return out, nil
}

// awaitReview blocks until an approve/reject signal arrives or the window closes.
// Signals carrying any other decision are ignored.
func awaitReview(ctx workflow.Context, window time.Duration) (ReviewDecisionSignal, bool) {
	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	defer cancelTimer()
	timer := workflow.NewTimer(timerCtx, window)
	signalChan := workflow.GetSignalChannel(ctx, ReviewDecisionSignalName)

	for {
		var (
			decision ReviewDecisionSignal
			received bool
			timedOut bool
		)
		selector := workflow.NewSelector(ctx)
		selector.AddReceive(signalChan, func(c workflow.ReceiveChannel, _ bool) {
			c.Receive(ctx, &decision)
			received = true
		})
		selector.AddFuture(timer, func(workflow.Future) {
			timedOut = true
		})
		selector.Select(ctx)

		if timedOut {
			return ReviewDecisionSignal{}, true
		}
		if !received {
			continue
		}
		switch decision.Decision {
		case domain.ReviewApprove, domain.ReviewReject:
			return decision, false
		default:
			continue
		}
	}
}

func failJob(ctx workflow.Context, jobID, step string, cause error) (WorkflowResult, error) {
	reason := fmt.Sprintf("%s: %v", step, cause)
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyMarkJobFailed), (*Activities).MarkJobFailedActivity, MarkJobFailedInput{
		JobID:  jobID,
		Reason: reason,
	}).Get(ctx, nil); err != nil {
		workflow.GetLogger(ctx).Error("mark job failed", "JobID", jobID, "Error", err)
	}
	return WorkflowResult{JobID: jobID, Status: domain.StatusFailed}, fmt.Errorf("%s: %w", step, cause)
}
