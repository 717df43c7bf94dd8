package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

var sourcesCmd = &cobra.Command{
	Use:     "sources",
	Aliases: []string{"source"},
	Short:   "Manage ingested videos",
	RunE:    runSourcesList,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every ingestion attempt",
	Args:  cobra.NoArgs,
	RunE:  runSourcesList,
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove [video-id]",
	Short: "Remove a video from the index and registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesRemove,
}

var sourcesSummaryCmd = &cobra.Command{
	Use:   "summary [video-id]",
	Short: "Summarise an ingested video",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesSummary,
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesRemoveCmd)
	sourcesCmd.AddCommand(sourcesSummaryCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func runSourcesList(cmd *cobra.Command, _ []string) error {
	if sourceService == nil {
		return notConfigured("source service")
	}

	entries, err := sourceService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, entries)
	}

	if len(entries) == 0 {
		cmd.Println("No videos ingested yet.")
		return nil
	}

	for i := range entries {
		e := &entries[i]
		title := e.Source.Title
		if title == "" {
			title = "(untitled)"
		}
		cmd.Printf("  %s  %-7s  %s\n", e.Source.ID, e.Status, title)
		if e.Status == domain.IngestSuccess {
			cmd.Printf("      %d chunks, %s, %s\n", e.ChunkCount, e.Language, e.Timestamp.Local().Format("2006-01-02 15:04"))
		} else if e.Message != "" {
			cmd.Printf("      %s\n", e.Message)
		}
	}
	return nil
}

func runSourcesRemove(cmd *cobra.Command, args []string) error {
	if sourceService == nil {
		return notConfigured("source service")
	}

	id, err := domain.ExtractVideoID(args[0])
	if err != nil {
		id = args[0]
	}
	if err := sourceService.Remove(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to remove %s: %w", id, err)
	}
	cmd.Printf("Removed %s\n", id)
	return nil
}

func runSourcesSummary(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return notConfigured("answer service")
	}

	id, err := domain.ExtractVideoID(args[0])
	if err != nil {
		id = args[0]
	}
	summary, err := answerService.Summarize(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("summary failed: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, summary)
	}
	cmd.Printf("%s\n%s\n\n%s\n", summary.Title, summary.URL, summary.Summary)
	return nil
}
