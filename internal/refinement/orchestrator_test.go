package refinement

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"gdd-orchestrator/internal/domain"
	"gdd-orchestrator/internal/invoker"
	"gdd-orchestrator/internal/llm"
)

var _ = Describe("Orchestrator", func() {
	var (
		client  *llm.MockClient
		sleeper *sleepRecorder
		ctx     context.Context
	)

	BeforeEach(func() {
		client = llm.NewMockClient()
		sleeper = &sleepRecorder{}
		ctx = context.Background()
	})

	It("revises a zombie survival roguelike once and then approves it", func() {
		issue := "Scavenging has no link to the night defence phase"
		client.Script(llm.RoleActor, content(gddJSON("Dead Reckoning")), content(gddJSON("Dead Reckoning II")))
		client.Script(llm.RoleCritic,
			content(feedbackJSON(domain.DecisionRevise, [5]int{7, 6, 7, 7, 7}, majorIssue(issue))),
			content(feedbackJSON(domain.DecisionApprove, [5]int{8, 8, 8, 8, 8})),
		)

		o, err := newTestOrchestrator(testConfig(), client, sleeper)
		Expect(err).NotTo(HaveOccurred())

		res, err := o.Execute(ctx, zombieConcept)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.TerminationReason).To(Equal(domain.TerminationApproved))
		Expect(res.Success).To(BeTrue())
		Expect(res.Iterations).To(HaveLen(2))
		Expect(res.FinalGDD.Meta.Title).To(Equal("Dead Reckoning II"))

		By("scoring the first review at 6.8")
		Expect(res.Iterations[0].Feedback).NotTo(BeNil())
		Expect(res.Iterations[0].Feedback.OverallScore()).To(BeNumerically("~", 6.8, 1e-9))
		Expect(res.Iterations[0].State).To(Equal(domain.StateNeedsRevision))
		Expect(res.Iterations[1].State).To(Equal(domain.StateApproved))

		By("embedding the literal blocking issue in the revision prompt")
		actorCalls := callsFor(client, llm.RoleActor)
		Expect(actorCalls).To(HaveLen(2))
		Expect(actorCalls[0].UserPrompt).NotTo(ContainSubstring(issue))
		Expect(actorCalls[1].UserPrompt).To(ContainSubstring(issue))
		Expect(actorCalls[1].UserPrompt).To(ContainSubstring("Dead Reckoning"))

		By("alternating actor and critic calls")
		roles := make([]string, 0)
		for _, c := range client.Calls() {
			roles = append(roles, c.Role)
		}
		Expect(roles).To(Equal([]string{llm.RoleActor, llm.RoleCritic, llm.RoleActor, llm.RoleCritic}))
	})

	It("stops after max iterations and returns the latest document", func() {
		client.Script(llm.RoleActor, content(gddJSON("Draft One")), content(gddJSON("Draft Two")), content(gddJSON("Draft Three")))
		client.Script(llm.RoleCritic,
			content(feedbackJSON(domain.DecisionRevise, [5]int{6, 6, 6, 6, 6}, majorIssue("The economy loop never closes"))),
			content(feedbackJSON(domain.DecisionRevise, [5]int{9, 9, 9, 9, 9}, majorIssue("Night phase pacing is still uneven"))),
			content(feedbackJSON(domain.DecisionRevise, [5]int{5, 5, 5, 5, 5}, majorIssue("Meta progression feels grindy now"))),
		)

		o, err := newTestOrchestrator(testConfig(), client, sleeper)
		Expect(err).NotTo(HaveOccurred())

		res, err := o.Execute(ctx, zombieConcept)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.TerminationReason).To(Equal(domain.TerminationMaxIterations))
		Expect(res.Success).To(BeFalse())
		Expect(res.Iterations).To(HaveLen(3))
		Expect(res.TotalIterations).To(Equal(3))
		Expect(res.FinalGDD.Meta.Title).To(Equal("Draft Three"))
		Expect(res.Selection).To(Equal(domain.SelectLatest))
		Expect(callsFor(client, llm.RoleActor)).To(HaveLen(3))
	})

	It("can prefer the best scored document when iterations run out", func() {
		client.Script(llm.RoleActor, content(gddJSON("Draft One")), content(gddJSON("Draft Two")), content(gddJSON("Draft Three")))
		client.Script(llm.RoleCritic,
			content(feedbackJSON(domain.DecisionRevise, [5]int{6, 6, 6, 6, 6}, majorIssue("The economy loop never closes"))),
			content(feedbackJSON(domain.DecisionRevise, [5]int{9, 9, 9, 9, 9}, majorIssue("Night phase pacing is still uneven"))),
			content(feedbackJSON(domain.DecisionRevise, [5]int{5, 5, 5, 5, 5}, majorIssue("Meta progression feels grindy now"))),
		)
		cfg := testConfig()
		cfg.FinalSelection = domain.SelectBestScore

		o, err := newTestOrchestrator(cfg, client, sleeper)
		Expect(err).NotTo(HaveOccurred())

		res, err := o.Execute(ctx, zombieConcept)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.FinalGDD.Meta.Title).To(Equal("Draft Two"))
		Expect(res.Selection).To(Equal(domain.SelectBestScore))
	})

	It("treats an approval with a critical issue as a revision", func() {
		client.Script(llm.RoleCritic,
			content(feedbackJSON(domain.DecisionApprove, [5]int{9, 9, 9, 9, 9}, criticalIssue("There is no moment to moment gameplay"))),
		)

		o, err := newTestOrchestrator(testConfig(), client, sleeper)
		Expect(err).NotTo(HaveOccurred())

		res, err := o.Execute(ctx, zombieConcept)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Iterations).To(HaveLen(2))
		Expect(res.Iterations[0].State).To(Equal(domain.StateNeedsRevision))
		Expect(res.TerminationReason).To(Equal(domain.TerminationApproved))
		Expect(callsFor(client, llm.RoleActor)[1].UserPrompt).To(ContainSubstring("There is no moment to moment gameplay"))
	})

	It("only enforces the score threshold when configured", func() {
		low := feedbackJSON(domain.DecisionApprove, [5]int{5, 5, 5, 5, 5})

		o, err := newTestOrchestrator(testConfig(), client.Script(llm.RoleCritic, content(low)), sleeper)
		Expect(err).NotTo(HaveOccurred())
		res, err := o.Execute(ctx, zombieConcept)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Iterations).To(HaveLen(1))

		strict := llm.NewMockClient().Script(llm.RoleCritic, content(low))
		cfg := testConfig()
		cfg.EnforceApprovalThreshold = true
		o, err = newTestOrchestrator(cfg, strict, sleeper)
		Expect(err).NotTo(HaveOccurred())
		res, err = o.Execute(ctx, zombieConcept)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Iterations).To(HaveLen(2))
		Expect(res.Iterations[0].State).To(Equal(domain.StateNeedsRevision))
	})

	It("retries malformed actor output with exponential backoff", func() {
		client.Script(llm.RoleActor, content("I cannot do JSON today"), content(`{"meta": {"title": "half"}}`), content(gddJSON("Third Time Lucky")))

		o, err := newTestOrchestrator(testConfig(), client, sleeper)
		Expect(err).NotTo(HaveOccurred())

		res, err := o.Execute(ctx, zombieConcept)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Success).To(BeTrue())
		Expect(res.Iterations).To(HaveLen(1))
		Expect(res.Iterations[0].Actor.Attempts).To(Equal(3))
		Expect(sleeper.recorded()).To(Equal([]time.Duration{time.Second, 2 * time.Second}))
		Expect(res.FinalGDD.Meta.Title).To(Equal("Third Time Lucky"))
	})

	It("falls back to a minimal valid document when the first actor call never succeeds", func() {
		boom := errors.New("connection refused")
		client.Script(llm.RoleActor, llm.MockResponse{Err: boom}, llm.MockResponse{Err: boom}, llm.MockResponse{Err: boom})

		o, err := newTestOrchestrator(testConfig(), client, sleeper)
		Expect(err).NotTo(HaveOccurred())

		res, err := o.Execute(ctx, zombieConcept)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.TerminationReason).To(Equal(domain.TerminationFatalFallback))
		Expect(res.Success).To(BeFalse())
		Expect(res.Iterations).To(HaveLen(1))
		Expect(res.Iterations[0].State).To(Equal(domain.StateActorFailed))
		Expect(res.Iterations[0].Fallback).To(BeTrue())
		Expect(res.Iterations[0].Error).To(ContainSubstring("connection refused"))
		Expect(res.FinalGDD.Meta.Title).To(HaveSuffix("(Fallback)"))
		Expect(domain.ValidateDocument(res.FinalGDD)).To(Succeed())
		Expect(callsFor(client, llm.RoleCritic)).To(BeEmpty())
	})

	It("keeps the last reviewed document when a revision fails", func() {
		boom := errors.New("upstream 502")
		client.Script(llm.RoleActor, content(gddJSON("Reviewed Draft")), llm.MockResponse{Err: boom}, llm.MockResponse{Err: boom}, llm.MockResponse{Err: boom})
		client.Script(llm.RoleCritic, content(feedbackJSON(domain.DecisionRevise, [5]int{6, 6, 6, 6, 6}, majorIssue("Combat has no stamina cost"))))

		o, err := newTestOrchestrator(testConfig(), client, sleeper)
		Expect(err).NotTo(HaveOccurred())

		res, err := o.Execute(ctx, zombieConcept)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.TerminationReason).To(Equal(domain.TerminationFatalFallback))
		Expect(res.Iterations).To(HaveLen(2))
		Expect(res.FinalGDD.Meta.Title).To(Equal("Reviewed Draft"))
		Expect(res.Iterations[1].Document.Meta.Title).To(Equal("Reviewed Draft"))
	})

	It("auto-approves the current document when the critic fails", func() {
		client.Script(llm.RoleActor, content(gddJSON("Unreviewed")))
		client.Script(llm.RoleCritic, content("nope"), content("still nope"), content("never"))

		o, err := newTestOrchestrator(testConfig(), client, sleeper)
		Expect(err).NotTo(HaveOccurred())

		res, err := o.Execute(ctx, zombieConcept)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.TerminationReason).To(Equal(domain.TerminationApproved))
		Expect(res.Success).To(BeFalse())
		Expect(res.Iterations).To(HaveLen(1))
		Expect(res.Iterations[0].Feedback).To(BeNil())
		Expect(res.Iterations[0].AutoApproved).To(BeTrue())
		Expect(res.Iterations[0].State).To(Equal(domain.StateCriticFailed))
		Expect(res.Iterations[0].Error).NotTo(BeEmpty())
		Expect(res.FinalGDD.Meta.Title).To(Equal("Unreviewed"))
		Expect(res.FinalFeedback()).To(BeNil())
	})

	It("returns no result when the caller cancels", func() {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()
		client.Script(llm.RoleActor, content("garbage"))

		o, err := New(testConfig(), client, client,
			WithLogger(quietLogger()),
			WithInvokerOptions(invoker.WithSleep(func(ctx context.Context, _ time.Duration) error {
				cancel()
				return ctx.Err()
			})),
		)
		Expect(err).NotTo(HaveOccurred())

		res, err := o.Execute(cctx, zombieConcept)
		Expect(err).To(MatchError(context.Canceled))
		Expect(res.Iterations).To(BeNil())
		Expect(res.FinalGDD.Meta.Title).To(BeEmpty())
	})

	It("reports every record to the observer and totals token usage", func() {
		seen := make([]domain.IterationRecord, 0)
		client.Script(llm.RoleCritic, content(feedbackJSON(domain.DecisionRevise, [5]int{6, 6, 6, 6, 6}, majorIssue("Crafting recipes are undefined"))))

		o, err := newTestOrchestrator(testConfig(), client, sleeper, WithObserver(func(rec domain.IterationRecord) {
			seen = append(seen, rec)
		}))
		Expect(err).NotTo(HaveOccurred())

		res, err := o.Execute(ctx, zombieConcept)
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(HaveLen(len(res.Iterations)))
		Expect(res.Usage.Total()).To(BeNumerically(">", 0))

		var sum int64
		for _, rec := range res.Iterations {
			sum += rec.Actor.InputTokens + rec.Actor.OutputTokens + rec.Critic.InputTokens + rec.Critic.OutputTokens
		}
		Expect(res.Usage.Total()).To(Equal(sum))
	})

	It("is safe to share between concurrent runs", func() {
		o, err := newTestOrchestrator(testConfig(), client, sleeper)
		Expect(err).NotTo(HaveOccurred())

		var wg sync.WaitGroup
		results := make([]domain.RefinementResult, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				res, err := o.Execute(ctx, strings.Repeat("cozy ", i+1)+"farming sim")
				Expect(err).NotTo(HaveOccurred())
				results[i] = res
			}(i)
		}
		wg.Wait()
		for i, res := range results {
			Expect(res.Success).To(BeTrue())
			Expect(res.Iterations).To(HaveLen(1))
			Expect(res.Concept).To(HavePrefix(strings.Repeat("cozy ", i+1)))
		}
	})

	It("rejects an invalid configuration at construction", func() {
		cfg := testConfig()
		cfg.MaxIterations = 0
		cfg.FinalSelection = "random"
		_, err := New(cfg, client, client)
		var ce *ConfigError
		Expect(errors.As(err, &ce)).To(BeTrue())
		Expect(ce.Problems).To(HaveLen(2))
	})
})
