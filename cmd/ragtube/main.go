// Command ragtube ingests video transcripts and answers questions about them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/ragtube/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragtube/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragtube/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragtube/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/ragtube/internal/adapters/driven/watcher"
	"github.com/custodia-labs/ragtube/internal/adapters/driven/youtube"
	"github.com/custodia-labs/ragtube/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragtube/internal/core/services"
	"github.com/custodia-labs/ragtube/internal/logger"
	"github.com/custodia-labs/ragtube/internal/normalisers/subtitle"
	"github.com/custodia-labs/ragtube/internal/postprocessors/chunker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, bootstrap)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// bootstrap opens the stores and wires every service. Config and prompts
// live in dataDir (or ~/.ragtube); the registry and the index follow
// storage.data_dir when set and no --data-dir was given.
func bootstrap(ctx context.Context, dataDir string) (*cli.Services, func(), error) {
	configDir, err := resolveDir(dataDir)
	if err != nil {
		return nil, nil, err
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}
	settings, err := services.NewSettingsService(configStore, nil).Get()
	if err != nil {
		return nil, nil, err
	}
	if err := settings.Validate(); err != nil {
		// Only settings stays usable so the value can be fixed.
		logger.Error("%v; fix it with 'ragtube settings set'", err)
		return &cli.Services{Settings: services.NewSettingsService(configStore, nil)}, func() {}, nil
	}

	storeDir := configDir
	if dataDir == "" && settings.Storage.DataDir != "" {
		storeDir = settings.Storage.DataDir
	}

	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("close: %v", err)
			}
		}
	}

	store, err := sqlite.NewStore(storeDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open registry: %w", err)
	}
	closers = append(closers, store.Close)

	idx, err := vectorindex.Open(storeDir)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("open index: %w", err)
	}
	closers = append(closers, idx.Close)

	aiResult := ai.Init(settings)
	closers = append(closers, func() error {
		aiResult.Close()
		return nil
	})

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	chunks, err := chunker.New(
		chunker.WithChunkSize(settings.RAG.ChunkSize),
		chunker.WithOverlap(settings.RAG.ChunkOverlap),
	)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	fetcher := services.NewRetryingFetcher(youtube.NewFetcher(youtube.Config{
		UserAgent:         settings.Fetch.UserAgent,
		RequestsPerSecond: settings.Fetch.RequestsPerSecond,
		MaxBackoff:        settings.Fetch.MaxSleep,
	}), settings.Fetch)

	embedder := services.NewBatchEmbedder(aiResult.EmbeddingService, settings.RAG)
	lock := &services.CommitLock{}

	ingest := services.NewIngestService(store, idx, fetcher, chunks, embedder, lock, settings)
	ingest.SetParser(subtitle.NewFileParser())

	index := services.NewIndexService(store, idx, lock, settings.Index.AutoRebuild)
	search := services.NewSearchService(embedder, idx, settings.RAG)

	fsWatcher, err := watcher.NewFSNotifyWatcher()
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("create watcher: %w", err)
	}
	closers = append(closers, fsWatcher.Stop)

	validator := ai.NewConfigValidator(ai.WithIndexDimensions(func() int {
		return idx.Stats().Dimensions
	}))

	if _, err := index.Reconcile(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("index check failed: %v", err)
	}

	return &cli.Services{
		Ingest:   ingest,
		Answer:   services.NewAnswerService(search, aiResult.LLMService, store, prompts, settings),
		Search:   search,
		Index:    index,
		Status:   services.NewStatusService(store, idx),
		Source:   services.NewSourceService(store, idx, lock),
		Settings: services.NewSettingsService(configStore, validator),
		Watch:    services.NewWatchService(fsWatcher, ingest),
	}, closeAll, nil
}

func resolveDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".ragtube"), nil
}
