package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the vector index from stored chunks",
	Long: `Reconstructs the vector index from the chunk text and embeddings kept
in the registry database. No transcripts are fetched and no embeddings are
requested. Use this after the index file is reported corrupted.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index and registry status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(statusCmd)
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return notConfigured("index service")
	}

	result, err := indexService.Rebuild(cmd.Context())
	if errors.Is(err, domain.ErrIndexBusy) {
		return errors.New("a rebuild is already running, try again shortly")
	}
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, result)
	}
	cmd.Printf("Index rebuilt: %d -> %d chunks\n", result.Previous, result.Current)
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if statusService == nil {
		return notConfigured("status service")
	}

	st, err := statusService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, st)
	}

	cmd.Printf("Index:        %s\n", st.Status)
	cmd.Printf("Videos:       %d\n", st.SourceCount)
	cmd.Printf("Chunks:       %d\n", st.ChunkCount)
	cmd.Printf("Registry:     %d entries\n", st.RegistryCount)
	if st.LastUpdated.IsZero() {
		cmd.Println("Last updated: never")
	} else {
		cmd.Printf("Last updated: %s\n", st.LastUpdated.Local().Format("2006-01-02 15:04:05"))
	}
	if st.Status == domain.IndexCorrupted {
		cmd.Println()
		cmd.Println("The index file is corrupted. Run 'ragtube rebuild' to restore it.")
	}
	return nil
}
