package llm

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"gdd-orchestrator/internal/domain"
	"gdd-orchestrator/internal/fallback"
)

type MockResponse struct {
	Content string
	Err     error
}

// MockClient replays scripted responses per role and falls back to a valid
// document or an approving review once a script is exhausted.
type MockClient struct {
	mu      sync.Mutex
	scripts map[string][]MockResponse
	calls   []CompletionRequest
}

func NewMockClient() *MockClient {
	return &MockClient{scripts: make(map[string][]MockResponse)}
}

func (m *MockClient) Script(role string, responses ...MockResponse) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[role] = append(m.scripts[role], responses...)
	return m
}

func (m *MockClient) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	if err := ctx.Err(); err != nil {
		return Completion{}, err
	}
	m.mu.Lock()
	m.calls = append(m.calls, req)
	var next *MockResponse
	if queue := m.scripts[req.Role]; len(queue) > 0 {
		next = &queue[0]
		m.scripts[req.Role] = queue[1:]
	}
	m.mu.Unlock()

	if next != nil {
		if next.Err != nil {
			return Completion{}, next.Err
		}
		return m.completion(req, next.Content), nil
	}
	if req.Role == RoleCritic {
		return m.completion(req, defaultReview()), nil
	}
	return m.completion(req, defaultDocument(req.UserPrompt)), nil
}

func (m *MockClient) completion(req CompletionRequest, content string) Completion {
	return Completion{
		Content:      content,
		Model:        "mock",
		FinishReason: "stop",
		InputTokens:  int64(len(strings.Fields(req.SystemPrompt + " " + req.UserPrompt))),
		OutputTokens: int64(len(strings.Fields(content))),
	}
}

func defaultDocument(prompt string) string {
	concept := conceptFromPrompt(prompt)
	doc := fallback.TemplateDocument(concept)
	doc.Meta.Title = strings.TrimSuffix(doc.Meta.Title, " (Fallback)")
	doc.AdditionalNotes = nil
	return doc.JSON()
}

func defaultReview() string {
	notes := "Mock review: document accepted without changes."
	b, _ := json.Marshal(domain.Feedback{
		Decision:          domain.DecisionApprove,
		BlockingIssues:    []domain.BlockingIssue{},
		FeasibilityScore:  8,
		CoherenceScore:    8,
		FunFactorScore:    8,
		CompletenessScore: 8,
		OriginalityScore:  8,
		ReviewNotes:       &notes,
	})
	return string(b)
}

func conceptFromPrompt(prompt string) string {
	const marker = "Game concept:\n"
	i := strings.Index(prompt, marker)
	if i < 0 {
		return prompt
	}
	rest := prompt[i+len(marker):]
	if j := strings.Index(rest, "\n\n"); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}
