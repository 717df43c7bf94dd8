package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest transcript files dropped into a directory",
	Long: `Watches a directory for .vtt and .srt files. Files already present are
ingested once; files that are created or changed afterwards are re-ingested,
replacing their previous chunks. Runs until interrupted.

The directory defaults to the storage.watch_dir setting.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchService == nil {
		return notConfigured("watch service")
	}

	dir := ""
	if len(args) > 0 {
		dir = args[0]
	} else if settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return err
		}
		dir = settings.Storage.WatchDir
	}
	if dir == "" {
		return errors.New("no directory given and storage.watch_dir is not set")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)
	return watchService.Run(ctx, dir)
}
