package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

var askK int

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the ingested transcripts",
	Long: `Retrieves the passages most similar to the question and asks the
language model to answer using only those passages. Each answer lists the
videos and timestamps it drew on.

When no passage clears the similarity threshold, a fixed reply is returned
and the language model is not called.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askK, "top-k", "k", 0, "number of passages to retrieve (0 = configured default)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return notConfigured("answer service")
	}

	answer, err := answerService.Ask(cmd.Context(), args[0], askK)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, answer)
	}

	cmd.Println(answer.Text)
	printCitations(cmd, answer.Citations)
	return nil
}

func printCitations(cmd *cobra.Command, citations []domain.Citation) {
	if len(citations) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i := range citations {
		c := &citations[i]
		cmd.Printf("  [%d] %s @ %s (%.2f)\n", i+1, c.Title, c.Timestamp, c.Score)
		if c.URL != "" {
			cmd.Printf("      %s\n", c.URL)
		}
	}
}
