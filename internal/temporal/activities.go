package temporal

import (
	"context"
	"errors"

	"ragbot/internal/ingest"
)

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Pipeline *ingest.Pipeline
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

// IngestActivity runs the whole pipeline in one activity. Splitting the
// stages into separate activities would mean shipping every document and
// vector through workflow history; the pipeline is a single local batch.
func IngestActivity(ctx context.Context, input IngestInput) (IngestResult, error) {
	if deps == nil || deps.Pipeline == nil {
		return IngestResult{}, errors.New("ingest pipeline not configured on this worker")
	}

	p := *deps.Pipeline
	if input.DocsDir != "" {
		p.DocsDir = input.DocsDir
	}

	stats, err := p.Run(ctx)
	if err != nil {
		return IngestResult{}, err
	}
	return IngestResult{Documents: stats.Documents, Chunks: stats.Chunks}, nil
}
