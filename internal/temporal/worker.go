package temporal

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// ingestWorkflowID is fixed so that a second ingestion against the same
// deployment cannot start while one is already running.
const ingestWorkflowID = "ragbot-ingest"

// StartWorker creates and starts a Temporal worker hosting the ingestion
// workflow.
func StartWorker(c client.Client, taskQueue string) (worker.Worker, error) {
	w := worker.New(c, taskQueue, worker.Options{})

	w.RegisterWorkflow(IngestWorkflow)
	w.RegisterActivity(IngestActivity)

	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("starting worker: %w", err)
	}
	return w, nil
}

// RunIngest triggers an ingestion workflow and waits for its result.
func RunIngest(ctx context.Context, c client.Client, taskQueue string, input IngestInput) (*IngestResult, error) {
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        ingestWorkflowID,
		TaskQueue: taskQueue,
	}, IngestWorkflow, input)
	if err != nil {
		return nil, fmt.Errorf("starting ingest workflow: %w", err)
	}

	var result IngestResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("ingest workflow: %w", err)
	}
	return &result, nil
}
