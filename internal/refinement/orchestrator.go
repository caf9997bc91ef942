// Package refinement drives the actor/critic loop that turns a game concept into a
// reviewed design document.
package refinement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gdd-orchestrator/internal/domain"
	"gdd-orchestrator/internal/fallback"
	"gdd-orchestrator/internal/invoker"
	"gdd-orchestrator/internal/llm"
)

type options struct {
	logger      *slog.Logger
	now         func() time.Time
	retryable   func(error) bool
	observer    func(domain.IterationRecord)
	invokerOpts []invoker.Option
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRetryPredicate decides which role failures are worth another attempt.
func WithRetryPredicate(fn func(error) bool) Option {
	return func(o *options) { o.retryable = fn }
}

// WithObserver receives every iteration record as soon as it is final.
func WithObserver(fn func(domain.IterationRecord)) Option {
	return func(o *options) { o.observer = fn }
}

func WithInvokerOptions(opts ...invoker.Option) Option {
	return func(o *options) { o.invokerOpts = append(o.invokerOpts, opts...) }
}

// Orchestrator holds only immutable configuration; every Execute call keeps its
// loop state on its own stack, so one Orchestrator may serve concurrent runs.
type Orchestrator struct {
	cfg      Config
	actor    *invoker.Invoker[domain.Document]
	critic   *invoker.Invoker[domain.Feedback]
	logger   *slog.Logger
	now      func() time.Time
	observer func(domain.IterationRecord)
}

func New(cfg Config, actor, critic llm.Client, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if actor == nil || critic == nil {
		return nil, &ConfigError{Problems: []string{"actor and critic clients are required"}}
	}
	o := options{
		logger:    slog.Default(),
		now:       time.Now,
		retryable: llm.IsRetryable,
	}
	for _, opt := range opts {
		opt(&o)
	}

	policy := invoker.Policy{
		MaxAttempts: cfg.MaxRetries,
		BackoffBase: cfg.BackoffBase,
		Jitter:      cfg.BackoffJitter,
		Retryable:   o.retryable,
	}
	logger := o.logger.With("component", "refinement")
	invOpts := append([]invoker.Option{
		invoker.WithClock(o.now),
		invoker.WithLogger(logger),
		invoker.WithRetryHook(func(role string, attempt int, cause error) {
			if role == llm.RoleActor {
				logger.Info("state transition", "state", domain.StateActorRetrying, "attempt", attempt, "error", cause.Error())
			}
		}),
	}, o.invokerOpts...)

	return &Orchestrator{
		cfg:      cfg,
		actor:    invoker.New(actor, domain.ParseDocument, policy, invOpts...),
		critic:   invoker.New(critic, domain.ParseFeedback, policy, invOpts...),
		logger:   logger,
		now:      o.now,
		observer: o.observer,
	}, nil
}

// Execute runs one concept through the loop with a single client serving both roles.
func Execute(ctx context.Context, concept string, cfg Config, client llm.Client, opts ...Option) (domain.RefinementResult, error) {
	o, err := New(cfg, client, client, opts...)
	if err != nil {
		return domain.RefinementResult{}, err
	}
	return o.Execute(ctx, concept)
}

type run struct {
	concept string
	started time.Time
	records []domain.IterationRecord
	usage   domain.TokenUsage
}

// Execute always terminates with a usable document unless ctx is cancelled, in which
// case it returns ctx.Err() and no partial result. Generation failures never surface as errors.
// An Actor failure on the first iteration yields the fallback document. A failure while
// revising ends the run as fatal_fallback but keeps the last reviewed document instead of
// the generic fallback.
func (o *Orchestrator) Execute(ctx context.Context, concept string) (domain.RefinementResult, error) {
	r := &run{concept: concept, started: o.now()}
	o.logger.Info("state transition", "state", domain.StateInitializing, "max_iterations", o.cfg.MaxIterations)

	var (
		prevDoc      domain.Document
		prevFeedback domain.Feedback
	)
	for i := 0; i < o.cfg.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return domain.RefinementResult{}, err
		}

		rec := domain.IterationRecord{Iteration: i}
		prompt := llm.BuildActorUserPrompt(concept)
		if i > 0 {
			o.logger.Info("state transition", "iteration", i, "state", domain.StateActorRevising)
			prompt = llm.BuildRevisionUserPrompt(concept, prevDoc, prevFeedback)
		}
		o.logger.Info("state transition", "iteration", i, "state", domain.StateActorGenerating)

		rec.ActorStartedAt = o.now()
		doc, actorMeta, err := o.actor.Invoke(ctx, invoker.Request{
			Role:         llm.RoleActor,
			Model:        o.cfg.ActorModel,
			SystemPrompt: llm.ActorSystem,
			UserPrompt:   prompt,
			Temperature:  o.cfg.ActorTemperature,
			MaxTokens:    o.cfg.MaxTokens,
			Timeout:      o.cfg.ActorTimeout,
			JSONMode:     o.cfg.JSONMode,
		})
		rec.ActorFinishedAt = o.now()
		rec.Actor = roleMetadata(actorMeta)
		r.usage.Add(rec.Actor)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.RefinementResult{}, ctxErr
			}
			rec.State = domain.StateActorFailed
			rec.Error = err.Error()
			rec.Fallback = true
			final := prevDoc
			if i == 0 {
				final = fallbackFor(concept, err)
			}
			rec.Document = final
			o.logger.Warn("state transition", "iteration", i, "state", domain.StateActorFailed, "error", err.Error())
			o.record(r, rec)
			return o.finish(r, final, domain.TerminationFatalFallback, false), nil
		}
		rec.Document = doc

		o.logger.Info("state transition", "iteration", i, "state", domain.StateCriticReviewing)
		criticStart := o.now()
		rec.CriticStartedAt = &criticStart
		fb, criticMeta, err := o.critic.Invoke(ctx, invoker.Request{
			Role:         llm.RoleCritic,
			Model:        o.cfg.CriticModel,
			SystemPrompt: llm.CriticSystem,
			UserPrompt:   llm.BuildCriticUserPrompt(concept, doc),
			Temperature:  o.cfg.CriticTemperature,
			MaxTokens:    o.cfg.CriticMaxTokens(),
			Timeout:      o.cfg.CriticTimeout,
			JSONMode:     o.cfg.JSONMode,
		})
		criticEnd := o.now()
		rec.CriticFinishedAt = &criticEnd
		rec.Critic = roleMetadata(criticMeta)
		r.usage.Add(rec.Critic)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.RefinementResult{}, ctxErr
			}
			rec.State = domain.StateCriticFailed
			rec.AutoApproved = true
			rec.Error = err.Error()
			o.logger.Warn("state transition", "iteration", i, "state", domain.StateCriticFailed,
				"error", err.Error(), "note", "auto-approved, manual review recommended")
			o.record(r, rec)
			return o.finish(r, doc, domain.TerminationApproved, false), nil
		}
		rec.Feedback = &fb

		decision := fb.EffectiveDecision()
		if o.cfg.EnforceApprovalThreshold {
			decision = fb.DecisionWithThreshold(o.cfg.ApprovalThreshold)
		}
		if decision == domain.DecisionApprove {
			rec.State = domain.StateApproved
			o.logTransition(rec, fb)
			o.record(r, rec)
			return o.finish(r, doc, domain.TerminationApproved, true), nil
		}

		rec.State = domain.StateNeedsRevision
		o.logTransition(rec, fb)
		o.record(r, rec)
		prevDoc, prevFeedback = doc, fb
	}

	return o.finish(r, selectFinal(r.records, o.cfg.FinalSelection), domain.TerminationMaxIterations, false), nil
}

func (o *Orchestrator) record(r *run, rec domain.IterationRecord) {
	r.records = append(r.records, rec)
	if o.observer != nil {
		o.observer(rec)
	}
}

func (o *Orchestrator) finish(r *run, final domain.Document, reason domain.TerminationReason, success bool) domain.RefinementResult {
	finished := o.now()
	o.logger.Info("state transition", "state", domain.StateCompleted,
		"reason", reason, "success", success, "iterations", len(r.records))
	return domain.RefinementResult{
		Concept:           r.concept,
		FinalGDD:          final,
		Iterations:        r.records,
		TerminationReason: reason,
		Success:           success,
		TotalIterations:   len(r.records),
		Selection:         o.cfg.FinalSelection,
		StartedAt:         r.started,
		FinishedAt:        finished,
		DurationMS:        finished.Sub(r.started).Milliseconds(),
		Usage:             r.usage,
	}
}

func (o *Orchestrator) logTransition(rec domain.IterationRecord, fb domain.Feedback) {
	o.logger.Info("state transition",
		"iteration", rec.Iteration,
		"state", rec.State,
		"score", fb.OverallScore(),
		"issues", len(fb.BlockingIssues),
		"critical", fb.HasCritical(),
	)
}

// selectFinal picks the document returned when the loop runs out of iterations.
// latest assumes the newest revision is the best one; best_score trusts the critic's scores.
func selectFinal(records []domain.IterationRecord, policy domain.Selection) domain.Document {
	last := records[len(records)-1].Document
	if policy != domain.SelectBestScore {
		return last
	}
	best, bestScore := last, -1.0
	for _, rec := range records {
		if rec.Feedback == nil {
			continue
		}
		// >= keeps the later document on ties
		if s := rec.Feedback.OverallScore(); s >= bestScore {
			best, bestScore = rec.Document, s
		}
	}
	return best
}

func fallbackFor(concept string, err error) domain.Document {
	if errors.Is(err, invoker.ErrAttemptTimeout) {
		return fallback.TemplateDocument(concept)
	}
	return fallback.MinimalDocument(concept)
}

func roleMetadata(m invoker.Metadata) *domain.RoleMetadata {
	if m.Attempts == 0 {
		return nil
	}
	return &domain.RoleMetadata{
		Role:         m.Role,
		Model:        m.Model,
		Attempts:     m.Attempts,
		InputTokens:  m.InputTokens,
		OutputTokens: m.OutputTokens,
		Latency:      m.Latency,
		FinishReason: m.FinishReason,
	}
}
