package temporal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"gdd-orchestrator/internal/domain"
	"gdd-orchestrator/internal/llm"
	"gdd-orchestrator/internal/refinement"
	"gdd-orchestrator/internal/storage"
)

type fakeStore struct {
	mu         sync.Mutex
	jobs       map[string]domain.JobRecord
	iterations map[string][]domain.IterationRow
	results    map[string]domain.RefinementResult
	reviews    map[string]domain.ReviewQueueItem
	audit      map[string][]domain.AuditState
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:       make(map[string]domain.JobRecord),
		iterations: make(map[string][]domain.IterationRow),
		results:    make(map[string]domain.RefinementResult),
		reviews:    make(map[string]domain.ReviewQueueItem),
		audit:      make(map[string][]domain.AuditState),
	}
}

func (f *fakeStore) CreateJob(_ context.Context, jobID, concept string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[jobID]; !ok {
		f.jobs[jobID] = domain.JobRecord{ID: jobID, Concept: concept, Status: domain.StatusReceived}
	}
	return nil
}

func (f *fakeStore) SetJobObjectKey(_ context.Context, jobID, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.jobs[jobID]
	rec.ObjectKey = objectKey
	if rec.Status == domain.StatusReceived {
		rec.Status = domain.StatusStored
	}
	f.jobs[jobID] = rec
	return nil
}

func (f *fakeStore) GetJob(_ context.Context, jobID string) (domain.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.jobs[jobID]
	if !ok {
		return domain.JobRecord{}, sql.ErrNoRows
	}
	return rec, nil
}

func (f *fakeStore) UpdateJobStatus(_ context.Context, jobID string, status domain.JobStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.jobs[jobID]
	rec.Status = status
	f.jobs[jobID] = rec
	return nil
}

func (f *fakeStore) InsertAudit(_ context.Context, jobID string, state domain.AuditState, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audit[jobID] = append(f.audit[jobID], state)
	return nil
}

func (f *fakeStore) SaveIteration(_ context.Context, row domain.IterationRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.iterations[row.JobID] = append(f.iterations[row.JobID], row)
	return nil
}

func (f *fakeStore) SaveResult(_ context.Context, jobID string, result domain.RefinementResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	final, err := json.Marshal(result.FinalGDD)
	if err != nil {
		return err
	}
	rec := f.jobs[jobID]
	rec.FinalJSON = final
	rec.Success = result.Success
	rec.TerminationReason = result.TerminationReason
	rec.TotalIterations = result.TotalIterations
	rec.Status = domain.StatusForTermination(result.TerminationReason)
	f.jobs[jobID] = rec
	f.results[jobID] = result
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, jobID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.jobs[jobID]
	rec.Status = domain.StatusFailed
	rec.FailureReason = &reason
	f.jobs[jobID] = rec
	return nil
}

func (f *fakeStore) QueueReview(_ context.Context, jobID string, reasons []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.jobs[jobID]
	rec.Status = domain.StatusNeedsReview
	f.jobs[jobID] = rec
	f.reviews[jobID] = domain.ReviewQueueItem{JobID: jobID, Reasons: reasons, Status: "PENDING"}
	return nil
}

func (f *fakeStore) ResolveReview(_ context.Context, jobID string, decision string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.reviews[jobID]
	item.JobID = jobID
	item.Status = decision
	f.reviews[jobID] = item
	return nil
}

func (f *fakeStore) job(jobID string) domain.JobRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[jobID]
}

func (f *fakeStore) auditTrail(jobID string) []domain.AuditState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AuditState(nil), f.audit[jobID]...)
}

type fakeBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: make(map[string][]byte)}
}

func (b *fakeBlob) putConcept(jobID, concept string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := storage.ConceptKey(jobID)
	b.objects[key] = []byte(concept)
	return key
}

func (b *fakeBlob) GetObject(_ context.Context, objectKey string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[objectKey]
	if !ok {
		return nil, errors.New("object not found: " + objectKey)
	}
	return data, nil
}

func (b *fakeBlob) PutExport(_ context.Context, jobID, filename, _ string, content []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := storage.ExportKey(jobID, filename)
	b.objects[key] = content
	return key, nil
}

func (b *fakeBlob) object(key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	return data, ok
}

func reviseJSON(issues ...domain.BlockingIssue) string {
	b, err := json.Marshal(domain.Feedback{
		Decision:          domain.DecisionRevise,
		BlockingIssues:    issues,
		FeasibilityScore:  6,
		CoherenceScore:    6,
		FunFactorScore:    5,
		CompletenessScore: 6,
		OriginalityScore:  6,
	})
	if err != nil {
		panic(err)
	}
	return string(b)
}

func craftingIssue() domain.BlockingIssue {
	return domain.BlockingIssue{
		Section:    "systems",
		Issue:      "No crafting despite scavenging being the core verb",
		Severity:   domain.SeverityMajor,
		Suggestion: "Add a crafting system fed by scavenged loot",
	}
}

func newTestActivities(store *fakeStore, blob *fakeBlob, client llm.Client) *Activities {
	cfg := refinement.DefaultConfig()
	cfg.MaxIterations = 2
	cfg.BackoffJitter = 0
	return &Activities{
		Store:      store,
		Blob:       blob,
		LLM:        client,
		Refinement: cfg,
		Logger:     slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
}
