package refinement

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"gdd-orchestrator/internal/domain"
	"gdd-orchestrator/internal/fallback"
	"gdd-orchestrator/internal/invoker"
	"gdd-orchestrator/internal/llm"
)

const zombieConcept = "zombie survival roguelike"

func gddJSON(title string) string {
	doc := fallback.MinimalDocument(zombieConcept)
	doc.Meta.Title = title
	doc.AdditionalNotes = nil
	return doc.JSON()
}

func feedbackJSON(decision domain.Decision, scores [5]int, issues ...domain.BlockingIssue) string {
	if issues == nil {
		issues = []domain.BlockingIssue{}
	}
	b, err := json.Marshal(domain.Feedback{
		Decision:          decision,
		BlockingIssues:    issues,
		FeasibilityScore:  scores[0],
		CoherenceScore:    scores[1],
		FunFactorScore:    scores[2],
		CompletenessScore: scores[3],
		OriginalityScore:  scores[4],
	})
	if err != nil {
		panic(err)
	}
	return string(b)
}

func majorIssue(text string) domain.BlockingIssue {
	return domain.BlockingIssue{Section: "systems", Issue: text, Severity: domain.SeverityMajor, Suggestion: "Add a crafting system tied to scavenged loot"}
}

func criticalIssue(text string) domain.BlockingIssue {
	return domain.BlockingIssue{Section: "core_loop", Issue: text, Severity: domain.SeverityCritical, Suggestion: "Define what the player does every minute"}
}

func content(s string) llm.MockResponse {
	return llm.MockResponse{Content: s}
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BackoffJitter = 0
	cfg.ActorTimeout = 2 * time.Second
	cfg.CriticTimeout = 2 * time.Second
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(cfg Config, client llm.Client, sleeper *sleepRecorder, extra ...Option) (*Orchestrator, error) {
	opts := append([]Option{
		WithLogger(quietLogger()),
		WithInvokerOptions(invoker.WithSleep(sleeper.sleep)),
	}, extra...)
	return New(cfg, client, client, opts...)
}

func callsFor(m *llm.MockClient, role string) []llm.CompletionRequest {
	out := make([]llm.CompletionRequest, 0)
	for _, c := range m.Calls() {
		if c.Role == role {
			out = append(out, c)
		}
	}
	return out
}
