package temporal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"gdd-orchestrator/internal/domain"
	"gdd-orchestrator/internal/export"
	"gdd-orchestrator/internal/llm"
	"gdd-orchestrator/internal/logging"
	"gdd-orchestrator/internal/refinement"
	"gdd-orchestrator/internal/storage"
)

const errTypeInvalidConcept = "InvalidConcept"

// ExportedFormats are written to object storage when a job completes.
var ExportedFormats = []export.Format{export.FormatJSON, export.FormatMarkdown, export.FormatHTML}

type ActivityStore interface {
	CreateJob(ctx context.Context, jobID, concept string) error
	SetJobObjectKey(ctx context.Context, jobID, objectKey string) error
	GetJob(ctx context.Context, jobID string) (domain.JobRecord, error)
	UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus) error
	InsertAudit(ctx context.Context, jobID string, state domain.AuditState, detail any) error
	SaveIteration(ctx context.Context, row domain.IterationRow) error
	SaveResult(ctx context.Context, jobID string, result domain.RefinementResult) error
	MarkFailed(ctx context.Context, jobID, reason string) error
	QueueReview(ctx context.Context, jobID string, reasons []string) error
	ResolveReview(ctx context.Context, jobID string, decision string) error
}

type BlobStore interface {
	GetObject(ctx context.Context, objectKey string) ([]byte, error)
	PutExport(ctx context.Context, jobID, filename, contentType string, content []byte) (string, error)
}

type Activities struct {
	Store           ActivityStore
	Blob            BlobStore
	LLM             llm.Client
	Refinement      refinement.Config
	MaxConceptBytes int
	Logger          *slog.Logger
	// Options are appended to the orchestrator built for every run.
	Options []refinement.Option
}

type LoadConceptInput struct {
	JobID     string
	ObjectKey string
}

type LoadConceptOutput struct {
	Concept string
}

type RunRefinementInput struct {
	JobID   string
	Concept string
}

type RunRefinementOutput struct {
	Result domain.RefinementResult
}

type PersistResultInput struct {
	JobID  string
	Result domain.RefinementResult
}

type QueueReviewInput struct {
	JobID   string
	Reasons []string
}

type ResolveReviewInput struct {
	JobID    string
	Decision string
	Reviewer string
}

type RejectJobInput struct {
	JobID    string
	Reviewer string
	Reason   string
}

type ExportArtifactsInput struct {
	JobID    string
	Document domain.Document
}

type ExportArtifactsOutput struct {
	Keys []string
}

type MarkJobFailedInput struct {
	JobID  string
	Reason string
}

func (a *Activities) logger(ctx context.Context) *slog.Logger {
	l := a.Logger
	if l == nil {
		l = slog.Default()
	}
	return logging.ForJob(ctx, l)
}

// LoadConceptActivity reads the uploaded concept and registers the job when the object
// arrived without going through the API.
func (a *Activities) LoadConceptActivity(ctx context.Context, input LoadConceptInput) (LoadConceptOutput, error) {
	objectKey := input.ObjectKey
	if objectKey == "" {
		objectKey = storage.ConceptKey(input.JobID)
	}
	raw, err := a.Blob.GetObject(ctx, objectKey)
	if err != nil {
		return LoadConceptOutput{}, fmt.Errorf("get concept object: %w", err)
	}
	if err := domain.ValidateConcept(string(raw), a.MaxConceptBytes); err != nil {
		return LoadConceptOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), errTypeInvalidConcept, err)
	}
	concept := strings.TrimSpace(string(raw))

	existing, err := a.Store.GetJob(ctx, input.JobID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return LoadConceptOutput{}, err
	}
	if errors.Is(err, sql.ErrNoRows) {
		if err := a.Store.CreateJob(ctx, input.JobID, concept); err != nil {
			return LoadConceptOutput{}, err
		}
	}
	if errors.Is(err, sql.ErrNoRows) || existing.ObjectKey == "" {
		if err := a.Store.SetJobObjectKey(ctx, input.JobID, objectKey); err != nil {
			return LoadConceptOutput{}, err
		}
	}
	if err := a.Store.InsertAudit(ctx, input.JobID, domain.AuditStored, map[string]any{"object_key": objectKey}); err != nil {
		return LoadConceptOutput{}, err
	}
	return LoadConceptOutput{Concept: concept}, nil
}

// RunRefinementActivity runs the Actor/Critic loop and stores every iteration as it completes.
func (a *Activities) RunRefinementActivity(ctx context.Context, input RunRefinementInput) (RunRefinementOutput, error) {
	ctx = logging.WithJobID(ctx, input.JobID)
	logger := a.logger(ctx)

	if err := a.Store.UpdateJobStatus(ctx, input.JobID, domain.StatusGenerating); err != nil {
		return RunRefinementOutput{}, err
	}
	if err := a.Store.InsertAudit(ctx, input.JobID, domain.AuditGenerating, map[string]any{
		"max_iterations": a.Refinement.MaxIterations,
		"actor_model":    a.Refinement.ActorModel,
		"critic_model":   a.Refinement.CriticModel,
	}); err != nil {
		return RunRefinementOutput{}, err
	}

	observer := func(rec domain.IterationRecord) {
		activity.RecordHeartbeat(ctx, rec.Iteration)
		row, err := domain.NewIterationRow(input.JobID, rec)
		if err != nil {
			logger.Warn("encode iteration", "iteration", rec.Iteration, "error", err.Error())
			return
		}
		if err := a.Store.SaveIteration(ctx, row); err != nil {
			logger.Warn("save iteration", "iteration", rec.Iteration, "error", err.Error())
			return
		}
		_ = a.Store.InsertAudit(ctx, input.JobID, domain.AuditIteration, map[string]any{
			"iteration": rec.Iteration,
			"state":     rec.State,
			"issues":    row.Issues,
		})
	}

	opts := append([]refinement.Option{
		refinement.WithLogger(logger),
		refinement.WithObserver(observer),
	}, a.Options...)
	orch, err := refinement.New(a.Refinement, a.LLM, a.LLM, opts...)
	if err != nil {
		return RunRefinementOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidConfig", err)
	}
	result, err := orch.Execute(ctx, input.Concept)
	if err != nil {
		return RunRefinementOutput{}, err
	}
	return RunRefinementOutput{Result: result}, nil
}

func (a *Activities) PersistResultActivity(ctx context.Context, input PersistResultInput) error {
	if err := a.Store.SaveResult(ctx, input.JobID, input.Result); err != nil {
		return err
	}
	detail := map[string]any{
		"termination_reason": input.Result.TerminationReason,
		"success":            input.Result.Success,
		"total_iterations":   input.Result.TotalIterations,
		"input_tokens":       input.Result.Usage.InputTokens,
		"output_tokens":      input.Result.Usage.OutputTokens,
	}
	if score, ok := input.Result.FinalScore(); ok {
		detail["overall_score"] = score
	}
	return a.Store.InsertAudit(ctx, input.JobID, domain.AuditPersisted, detail)
}

func (a *Activities) QueueReviewActivity(ctx context.Context, input QueueReviewInput) error {
	if err := a.Store.QueueReview(ctx, input.JobID, input.Reasons); err != nil {
		return err
	}
	return a.Store.InsertAudit(ctx, input.JobID, domain.AuditReview, map[string]any{"reasons": input.Reasons})
}

func (a *Activities) ResolveReviewActivity(ctx context.Context, input ResolveReviewInput) error {
	if err := a.Store.ResolveReview(ctx, input.JobID, input.Decision); err != nil {
		return err
	}
	return a.Store.InsertAudit(ctx, input.JobID, domain.AuditReviewed, map[string]any{
		"decision": input.Decision,
		"reviewer": input.Reviewer,
	})
}

func (a *Activities) RejectJobActivity(ctx context.Context, input RejectJobInput) error {
	reason := input.Reason
	if reason == "" {
		reason = "rejected by reviewer"
	}
	if err := a.Store.ResolveReview(ctx, input.JobID, "REJECTED"); err != nil {
		return err
	}
	if err := a.Store.UpdateJobStatus(ctx, input.JobID, domain.StatusRejected); err != nil {
		return err
	}
	return a.Store.InsertAudit(ctx, input.JobID, domain.AuditRejected, map[string]any{
		"reason":   reason,
		"reviewer": input.Reviewer,
	})
}

// ExportArtifactsActivity renders the final document in every exported format and completes the job.
func (a *Activities) ExportArtifactsActivity(ctx context.Context, input ExportArtifactsInput) (ExportArtifactsOutput, error) {
	keys := make([]string, 0, len(ExportedFormats))
	for _, f := range ExportedFormats {
		body, err := export.Render(f, input.Document)
		if err != nil {
			return ExportArtifactsOutput{}, fmt.Errorf("render %s: %w", f, err)
		}
		key, err := a.Blob.PutExport(ctx, input.JobID, f.Filename(), f.ContentType(), body)
		if err != nil {
			return ExportArtifactsOutput{}, fmt.Errorf("store %s: %w", f, err)
		}
		keys = append(keys, key)
	}
	if err := a.Store.InsertAudit(ctx, input.JobID, domain.AuditExported, map[string]any{"keys": keys}); err != nil {
		return ExportArtifactsOutput{}, err
	}
	if err := a.Store.UpdateJobStatus(ctx, input.JobID, domain.StatusCompleted); err != nil {
		return ExportArtifactsOutput{}, err
	}
	if err := a.Store.InsertAudit(ctx, input.JobID, domain.AuditCompleted, nil); err != nil {
		return ExportArtifactsOutput{}, err
	}
	return ExportArtifactsOutput{Keys: keys}, nil
}

func (a *Activities) MarkJobFailedActivity(ctx context.Context, input MarkJobFailedInput) error {
	if err := a.Store.MarkFailed(ctx, input.JobID, input.Reason); err != nil {
		return err
	}
	return a.Store.InsertAudit(ctx, input.JobID, domain.AuditFailed, map[string]any{"reason": input.Reason})
}
