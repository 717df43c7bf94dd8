package driving

import (
	"context"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

// IngestJob is a handle on an asynchronous ingestion batch.
type IngestJob interface {
	// ID returns the job identifier.
	ID() string

	// Outcomes streams per-source outcomes as they complete.
	// The channel is closed when the batch finishes.
	Outcomes() <-chan domain.IngestOutcome

	// Wait blocks until the batch finishes and returns outcomes in input order.
	Wait(ctx context.Context) ([]domain.IngestOutcome, error)

	// Done reports whether the batch has finished.
	Done() bool
}

// IngestService turns source ids into indexed chunks.
type IngestService interface {
	// Ingest processes the sources and returns one outcome per input,
	// in input order. Per-source failures never abort the batch.
	Ingest(ctx context.Context, inputs []string, force bool) ([]domain.IngestOutcome, error)

	// IngestAsync starts the same batch in the background.
	IngestAsync(ctx context.Context, inputs []string, force bool) (IngestJob, error)

	// IngestFile ingests a local .vtt or .srt transcript.
	IngestFile(ctx context.Context, path string, force bool) (domain.IngestOutcome, error)

	// Job returns a previously started async job.
	Job(id string) (IngestJob, bool)
}
