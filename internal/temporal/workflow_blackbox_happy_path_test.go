package temporal

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/testsuite"

	"gdd-orchestrator/internal/domain"
	"gdd-orchestrator/internal/llm"
)

type activityTrace struct {
	mu sync.Mutex

	startedOrder   []string
	completedOrder []string

	loadIn     *LoadConceptInput
	loadOut    *LoadConceptOutput
	runIn      *RunRefinementInput
	runOut     *RunRefinementOutput
	persistIn  *PersistResultInput
	exportOut  *ExportArtifactsOutput
	reviewRuns int
}

func (t *activityTrace) recordStarted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedOrder = append(t.startedOrder, name)
}

func (t *activityTrace) recordCompleted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completedOrder = append(t.completedOrder, name)
}

var _ = Describe("GDDRefinementWorkflow blackbox happy path", func() {
	It("loads the concept, refines it to approval, persists and exports the final document", func() {
		var suite testsuite.WorkflowTestSuite
		env := suite.NewTestWorkflowEnvironment()

		store := newFakeStore()
		blob := newFakeBlob()
		client := llm.NewMockClient()
		acts := newTestActivities(store, blob, client)
		trace := &activityTrace{}

		env.SetOnActivityStartedListener(func(info *activity.Info, _ context.Context, args converter.EncodedValues) {
			trace.recordStarted(info.ActivityType.Name)

			switch info.ActivityType.Name {
			case "LoadConceptActivity":
				var in LoadConceptInput
				_ = args.Get(&in)
				trace.mu.Lock()
				trace.loadIn = &in
				trace.mu.Unlock()
			case "RunRefinementActivity":
				var in RunRefinementInput
				_ = args.Get(&in)
				trace.mu.Lock()
				trace.runIn = &in
				trace.mu.Unlock()
			case "PersistResultActivity":
				var in PersistResultInput
				_ = args.Get(&in)
				trace.mu.Lock()
				trace.persistIn = &in
				trace.mu.Unlock()
			case "QueueReviewActivity", "RejectJobActivity":
				trace.mu.Lock()
				trace.reviewRuns++
				trace.mu.Unlock()
			}
		})

		env.SetOnActivityCompletedListener(func(info *activity.Info, result converter.EncodedValue, _ error) {
			trace.recordCompleted(info.ActivityType.Name)

			switch info.ActivityType.Name {
			case "LoadConceptActivity":
				var out LoadConceptOutput
				_ = result.Get(&out)
				trace.mu.Lock()
				trace.loadOut = &out
				trace.mu.Unlock()
			case "RunRefinementActivity":
				var out RunRefinementOutput
				_ = result.Get(&out)
				trace.mu.Lock()
				trace.runOut = &out
				trace.mu.Unlock()
			case "ExportArtifactsActivity":
				var out ExportArtifactsOutput
				_ = result.Get(&out)
				trace.mu.Lock()
				trace.exportOut = &out
				trace.mu.Unlock()
			}
		})

		registerAll(env, acts)

		jobID := "gdd-happy-blackbox-1"
		concept := "zombie survival roguelike with base building"

		By("simulating a concept upload to object storage")
		objectKey := blob.putConcept(jobID, "  "+concept+"\n")

		By("triggering the workflow execution")
		env.ExecuteWorkflow(GDDRefinementWorkflow, WorkflowInput{
			JobID:         jobID,
			ObjectKey:     objectKey,
			ReviewTimeout: time.Hour,
		})

		By("validating workflow completes successfully")
		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		Expect(env.GetWorkflowError()).ToNot(HaveOccurred())

		var wfResult WorkflowResult
		Expect(env.GetWorkflowResult(&wfResult)).To(Succeed())
		Expect(wfResult.JobID).To(Equal(jobID))
		Expect(wfResult.Status).To(Equal(domain.StatusCompleted))
		Expect(wfResult.TerminationReason).To(Equal(domain.TerminationApproved))
		Expect(wfResult.Success).To(BeTrue())
		Expect(wfResult.ExportKeys).To(ConsistOf(
			"exports/"+jobID+"/gdd.json",
			"exports/"+jobID+"/gdd.md",
			"exports/"+jobID+"/gdd.html",
		))

		By("validating each activity input and output")
		expectedOrder := []string{
			"LoadConceptActivity",
			"RunRefinementActivity",
			"PersistResultActivity",
			"ExportArtifactsActivity",
		}
		Expect(trace.startedOrder).To(Equal(expectedOrder))
		Expect(trace.completedOrder).To(Equal(expectedOrder))
		Expect(trace.reviewRuns).To(Equal(0))

		Expect(trace.loadIn).ToNot(BeNil())
		Expect(trace.loadIn.ObjectKey).To(Equal("concepts/" + jobID + "/concept.txt"))
		Expect(trace.loadOut).ToNot(BeNil())
		Expect(trace.loadOut.Concept).To(Equal(concept))

		Expect(trace.runIn).ToNot(BeNil())
		Expect(trace.runIn.Concept).To(Equal(concept))
		Expect(trace.runOut).ToNot(BeNil())
		Expect(trace.runOut.Result.TotalIterations).To(Equal(1))
		Expect(trace.runOut.Result.Iterations[0].State).To(Equal(domain.StateApproved))
		Expect(domain.ValidateDocument(trace.runOut.Result.FinalGDD)).To(Succeed())

		Expect(trace.persistIn).ToNot(BeNil())
		Expect(trace.persistIn.Result.FinalGDD.Meta.Title).To(Equal(trace.runOut.Result.FinalGDD.Meta.Title))

		By("validating persisted side effects")
		rec := store.job(jobID)
		Expect(rec.Status).To(Equal(domain.StatusCompleted))
		Expect(rec.Concept).To(Equal(concept))
		Expect(rec.ObjectKey).To(Equal(objectKey))
		Expect(rec.TerminationReason).To(Equal(domain.TerminationApproved))
		Expect(store.auditTrail(jobID)).To(Equal([]domain.AuditState{
			domain.AuditStored,
			domain.AuditGenerating,
			domain.AuditIteration,
			domain.AuditPersisted,
			domain.AuditExported,
			domain.AuditCompleted,
		}))

		md, ok := blob.object("exports/" + jobID + "/gdd.md")
		Expect(ok).To(BeTrue())
		Expect(string(md)).To(ContainSubstring("# " + trace.runOut.Result.FinalGDD.Meta.Title))

		stored, ok := blob.object("exports/" + jobID + "/gdd.json")
		Expect(ok).To(BeTrue())
		Expect(string(stored)).To(MatchJSON(trace.runOut.Result.FinalGDD.JSON()))
	})
})
