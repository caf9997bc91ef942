package main

import (
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"gdd-orchestrator/internal/config"
	"gdd-orchestrator/internal/llm"
	"gdd-orchestrator/internal/logging"
	"gdd-orchestrator/internal/storage"
	appTemporal "gdd-orchestrator/internal/temporal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer store.Close()

	blob, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
	if err != nil {
		log.Fatalf("connect minio: %v", err)
	}

	generator, err := llm.NewClient(cfg.LLMProvider, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	if err != nil {
		log.Fatalf("build llm client: %v", err)
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		log.Fatalf("connect temporal: %v", err)
	}
	defer temporalClient.Close()

	activities := &appTemporal.Activities{
		Store:           store,
		Blob:            blob,
		LLM:             generator,
		Refinement:      cfg.Refinement(),
		MaxConceptBytes: cfg.MaxConceptBytes,
		Logger:          logging.New(cfg.LogLevel, "worker"),
	}

	w := worker.New(temporalClient, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(appTemporal.GDDRefinementWorkflow, workflow.RegisterOptions{Name: appTemporal.GDDRefinementWorkflowName})
	w.RegisterActivity(activities.LoadConceptActivity)
	w.RegisterActivity(activities.RunRefinementActivity)
	w.RegisterActivity(activities.PersistResultActivity)
	w.RegisterActivity(activities.QueueReviewActivity)
	w.RegisterActivity(activities.ResolveReviewActivity)
	w.RegisterActivity(activities.RejectJobActivity)
	w.RegisterActivity(activities.ExportArtifactsActivity)
	w.RegisterActivity(activities.MarkJobFailedActivity)

	log.Printf("worker running on task queue %s provider=%s max_iterations=%d", cfg.TemporalTaskQueue, cfg.LLMProvider, cfg.Loop.MaxIterations)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker stopped with error: %v", err)
	}
}
