package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

var (
	ingestForce bool
	ingestAsync bool
	ingestFiles []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [video-id-or-url...]",
	Short: "Fetch, chunk and index video transcripts",
	Long: `Fetches the transcript of each video, splits it into overlapping chunks,
embeds the chunks and adds them to the index.

Videos that were already ingested successfully are skipped unless --force
is given, in which case their chunks are replaced. A failure for one video
never stops the rest of the batch.

Local WebVTT or SRT files can be ingested with --file.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestForce, "force", "f", false, "re-ingest videos that were already processed")
	ingestCmd.Flags().BoolVar(&ingestAsync, "async", false, "run as a background job and stream outcomes")
	ingestCmd.Flags().StringSliceVar(&ingestFiles, "file", nil, "ingest a local .vtt or .srt transcript")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return notConfigured("ingest service")
	}
	if len(args) == 0 && len(ingestFiles) == 0 {
		return errors.New("provide at least one video id, URL or --file")
	}

	ctx := cmd.Context()
	var outcomes []domain.IngestOutcome

	for _, path := range ingestFiles {
		outcome, err := ingestService.IngestFile(ctx, path, ingestForce)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		outcomes = append(outcomes, outcome)
		if !jsonOutput {
			printOutcome(cmd, outcome)
		}
	}

	if len(args) > 0 {
		batch, err := ingestIDs(cmd, args)
		if err != nil {
			return err
		}
		outcomes = append(outcomes, batch...)
	}

	if jsonOutput {
		return printJSON(cmd, outcomes)
	}

	printIngestSummary(cmd, outcomes)
	return nil
}

func ingestIDs(cmd *cobra.Command, args []string) ([]domain.IngestOutcome, error) {
	ctx := cmd.Context()

	if !ingestAsync {
		outcomes, err := ingestService.Ingest(ctx, args, ingestForce)
		if err != nil {
			return nil, fmt.Errorf("ingest failed: %w", err)
		}
		if !jsonOutput {
			for i := range outcomes {
				printOutcome(cmd, outcomes[i])
			}
		}
		return outcomes, nil
	}

	job, err := ingestService.IngestAsync(ctx, args, ingestForce)
	if err != nil {
		return nil, fmt.Errorf("ingest failed: %w", err)
	}
	if !jsonOutput {
		cmd.Printf("Started job %s\n", job.ID())
		for outcome := range job.Outcomes() {
			printOutcome(cmd, outcome)
		}
	}
	return job.Wait(ctx)
}

func printOutcome(cmd *cobra.Command, o domain.IngestOutcome) {
	name := o.SourceID
	if o.Title != "" {
		name = fmt.Sprintf("%s (%s)", o.SourceID, o.Title)
	}

	switch o.Status {
	case domain.IngestSuccess:
		cmd.Printf("  ✓ %s: %d chunks\n", name, o.ChunkCount)
	case domain.IngestSkipped:
		cmd.Printf("  - %s: already ingested\n", name)
	default:
		cmd.Printf("  ✗ %s: %s\n", name, o.Message)
	}
}

func printIngestSummary(cmd *cobra.Command, outcomes []domain.IngestOutcome) {
	var ok, skipped, failed, chunks int
	for i := range outcomes {
		switch outcomes[i].Status {
		case domain.IngestSuccess:
			ok++
			chunks += outcomes[i].ChunkCount
		case domain.IngestSkipped:
			skipped++
		default:
			failed++
		}
	}
	cmd.Println()
	cmd.Printf("Ingested %d, skipped %d, failed %d (%d chunks added)\n", ok, skipped, failed, chunks)
}
