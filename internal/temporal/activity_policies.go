package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	ActivityPolicyLoadConcept     = "load_concept"
	ActivityPolicyRunRefinement   = "run_refinement"
	ActivityPolicyPersistResult   = "persist_result"
	ActivityPolicyQueueReview     = "queue_review"
	ActivityPolicyResolveReview   = "resolve_review"
	ActivityPolicyRejectJob       = "reject_job"
	ActivityPolicyExportArtifacts = "export_artifacts"
	ActivityPolicyMarkJobFailed   = "mark_job_failed"
)

type activityPolicy struct {
	StartToCloseTimeout time.Duration
	RetryPolicy         temporal.RetryPolicy
}

var storageRetry = temporal.RetryPolicy{
	InitialInterval:    1 * time.Second,
	BackoffCoefficient: 2,
	MaximumInterval:    10 * time.Second,
	MaximumAttempts:    3,
}

var activityPolicies = map[string]activityPolicy{
	ActivityPolicyLoadConcept: {
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         storageRetry,
	},
	// The orchestrator owns role retries; a Temporal retry would rerun every iteration.
	ActivityPolicyRunRefinement: {
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	},
	ActivityPolicyPersistResult: {
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         storageRetry,
	},
	ActivityPolicyQueueReview: {
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         storageRetry,
	},
	ActivityPolicyResolveReview: {
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         storageRetry,
	},
	ActivityPolicyRejectJob: {
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         storageRetry,
	},
	ActivityPolicyExportArtifacts: {
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         storageRetry,
	},
	ActivityPolicyMarkJobFailed: {
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         storageRetry,
	},
}

func ActivityOptionsFor(policyName string) (workflow.ActivityOptions, error) {
	policy, ok := activityPolicies[policyName]
	if !ok {
		return workflow.ActivityOptions{}, fmt.Errorf("unknown activity policy: %s", policyName)
	}

	retry := policy.RetryPolicy
	return workflow.ActivityOptions{
		StartToCloseTimeout: policy.StartToCloseTimeout,
		RetryPolicy:         &retry,
	}, nil
}

func mustActivityContext(ctx workflow.Context, policyName string) workflow.Context {
	ao, err := ActivityOptionsFor(policyName)
	if err != nil {
		panic(err)
	}
	return workflow.WithActivityOptions(ctx, ao)
}
