package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

var (
	searchLimit  int
	similarLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search transcript passages",
	Long: `Returns the transcript passages most similar to the query, without
generating an answer. Passages below the similarity threshold are dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var similarCmd = &cobra.Command{
	Use:   "similar [query]",
	Short: "Find videos related to a query",
	Long: `Groups matching passages by video and ranks the videos by their best
passage score.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (0 = configured default)")
	similarCmd.Flags().IntVarP(&similarLimit, "limit", "n", 5, "maximum number of videos")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(similarCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return notConfigured("search service")
	}

	hits, err := searchService.SearchContent(cmd.Context(), args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, hits)
	}
	return outputSearchTable(cmd, hits)
}

func outputSearchTable(cmd *cobra.Command, hits []domain.SearchHit) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range hits {
		h := &hits[i]
		cmd.Printf("  [%d] %s @ %s (%.2f)\n", i+1, h.Title, h.Timestamp, h.Score)
		if h.URL != "" {
			cmd.Printf("      %s\n", h.URL)
		}
		cmd.Printf("      %s\n", snippet(h.Content, 160))
		cmd.Println()
	}
	return nil
}

func runSimilar(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return notConfigured("search service")
	}

	sources, err := searchService.SimilarSources(cmd.Context(), args[0], similarLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, sources)
	}

	if len(sources) == 0 {
		cmd.Println("No related videos found.")
		return nil
	}
	for i := range sources {
		s := &sources[i]
		cmd.Printf("  [%d] %s (max %.2f, avg %.2f, %d passages)\n",
			i+1, s.Title, s.MaxScore, s.AverageScore, s.ChunkCount)
		if s.URL != "" {
			cmd.Printf("      %s\n", s.URL)
		}
	}
	return nil
}

// snippet shortens text to at most n runes.
func snippet(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
