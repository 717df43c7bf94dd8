// Package cli provides the cobra command tree for ragtube.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragtube/internal/core/ports/driving"
	"github.com/custodia-labs/ragtube/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// skipServices marks commands that run without opening the data directory.
const skipServices = "skip-services"

// Services holds the driving ports the commands call.
type Services struct {
	Ingest   driving.IngestService
	Answer   driving.AnswerService
	Search   driving.SearchService
	Index    driving.IndexService
	Status   driving.StatusService
	Source   driving.SourceService
	Settings driving.SettingsService
	Watch    driving.WatchService
}

// Bootstrap opens the stores under dataDir and wires the services.
// The returned closer is called once the command finishes.
type Bootstrap func(ctx context.Context, dataDir string) (*Services, func(), error)

var (
	ingestService   driving.IngestService
	answerService   driving.AnswerService
	searchService   driving.SearchService
	indexService    driving.IndexService
	statusService   driving.StatusService
	sourceService   driving.SourceService
	settingsService driving.SettingsService
	watchService    driving.WatchService
)

var (
	verbose    bool
	dataDir    string
	jsonOutput bool

	bootstrap     Bootstrap
	closeServices func()
)

var rootCmd = &cobra.Command{
	Use:   "ragtube",
	Short: "Ask questions about video transcripts",
	Long: `ragtube ingests video transcripts, indexes them for semantic search and
answers questions with passages cited by video and timestamp.

Get started:
  ragtube settings set embedding.api_key
  ragtube ingest https://www.youtube.com/watch?v=dQw4w9WgXcQ
  ragtube ask "What is the video about?"`,
	SilenceUsage:      true,
	PersistentPreRunE: openServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.ragtube)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output results as JSON")
}

// SetServices sets the services used by the commands.
func SetServices(s *Services) {
	ingestService = s.Ingest
	answerService = s.Answer
	searchService = s.Search
	indexService = s.Index
	statusService = s.Status
	sourceService = s.Source
	settingsService = s.Settings
	watchService = s.Watch
}

// Execute runs the root command. boot is called before any command that
// needs services; it may be nil when SetServices was called directly.
func Execute(ctx context.Context, boot Bootstrap) error {
	bootstrap = boot
	defer func() {
		if closeServices != nil {
			closeServices()
			closeServices = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func openServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if bootstrap == nil || cmd.Annotations[skipServices] == "true" {
		return nil
	}

	svcs, closer, err := bootstrap(cmd.Context(), dataDir)
	if err != nil {
		return err
	}
	SetServices(svcs)
	closeServices = closer
	return nil
}

// printJSON writes v as indented JSON to the command output.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

var errNotConfigured = errors.New("service not configured")

func notConfigured(name string) error {
	return fmt.Errorf("%s %w", name, errNotConfigured)
}
