// Package temporal runs the ingestion pipeline as a durable workflow, so
// batch rebuilds can be triggered remotely and concurrent runs against the
// same index are serialized by workflow ID.
package temporal

import (
	"fmt"
	"time"

	sdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// IngestInput holds the workflow parameters.
type IngestInput struct {
	// DocsDir overrides the worker's configured documents directory when
	// non-empty.
	DocsDir string
}

// IngestResult holds the workflow result.
type IngestResult struct {
	Documents int
	Chunks    int
}

// IngestWorkflow executes one full index rebuild. The pipeline is fail-fast
// by design, so the activity runs with a single attempt: a failed run is
// reported, not resumed.
func IngestWorkflow(ctx workflow.Context, input IngestInput) (*IngestResult, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy:         &sdk.RetryPolicy{MaximumAttempts: 1},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var result IngestResult
	if err := workflow.ExecuteActivity(ctx, IngestActivity, input).Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	return &result, nil
}
