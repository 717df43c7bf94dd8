package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
	"github.com/custodia-labs/ragtube/internal/core/ports/driving"
	"github.com/custodia-labs/ragtube/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// maxRetainedJobs bounds how many finished async jobs stay queryable.
const maxRetainedJobs = 100

// IngestService runs sources through fetch, chunk, embed and commit.
type IngestService struct {
	registry driven.RegistryStore
	index    driven.VectorIndex
	fetcher  driven.TranscriptFetcher
	chunker  driven.Chunker
	embedder *BatchEmbedder
	parser   driven.TranscriptParser
	lock     *CommitLock

	preferred []string
	fallback  []string
	workers   int

	mu       sync.Mutex
	jobs     map[string]*ingestJob
	jobOrder []string
}

// NewIngestService creates an ingestion service. The fetcher should already
// carry the retry policy (see RetryingFetcher). Share lock with the
// IndexService so rebuilds and commits never interleave.
func NewIngestService(
	registry driven.RegistryStore,
	index driven.VectorIndex,
	fetcher driven.TranscriptFetcher,
	chunker driven.Chunker,
	embedder *BatchEmbedder,
	lock *CommitLock,
	settings *domain.AppSettings,
) *IngestService {
	if lock == nil {
		lock = &CommitLock{}
	}
	workers := settings.General.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	return &IngestService{
		registry:  registry,
		index:     index,
		fetcher:   fetcher,
		chunker:   chunker,
		embedder:  embedder,
		lock:      lock,
		preferred: settings.Fetch.PreferredLanguages,
		fallback:  settings.Fetch.FallbackLanguages,
		workers:   workers,
		jobs:      make(map[string]*ingestJob),
	}
}

// SetParser enables IngestFile.
func (s *IngestService) SetParser(p driven.TranscriptParser) {
	s.parser = p
}

// Ingest processes inputs with at most MaxWorkers sources in flight and
// returns outcomes in input order.
func (s *IngestService) Ingest(ctx context.Context, inputs []string, force bool) ([]domain.IngestOutcome, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no sources given", domain.ErrInvalidInput)
	}
	logger.Section("Ingest")
	logger.Debug("Sources: %d, force: %t, workers: %d", len(inputs), force, s.workers)
	defer logger.Timed("ingest")()

	return s.run(ctx, inputs, force, nil), nil
}

// IngestAsync starts the batch in the background and returns its job.
// The batch runs to completion even if ctx is cancelled afterwards.
func (s *IngestService) IngestAsync(ctx context.Context, inputs []string, force bool) (driving.IngestJob, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no sources given", domain.ErrInvalidInput)
	}

	job := &ingestJob{
		id:       uuid.NewString(),
		outcomes: make(chan domain.IngestOutcome, len(inputs)),
		done:     make(chan struct{}),
	}
	s.trackJob(job)
	logger.Info("Started ingest job %s for %d sources", job.id, len(inputs))

	bg := context.WithoutCancel(ctx)
	go func() {
		results := s.run(bg, inputs, force, func(o domain.IngestOutcome) {
			job.outcomes <- o
		})
		job.finish(results)
	}()

	return job, nil
}

// Job returns a tracked async job.
func (s *IngestService) Job(id string) (driving.IngestJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return job, true
}

// IngestFile ingests a local transcript. The source id is the file name
// without extension; names that are video ids get a watch URL.
func (s *IngestService) IngestFile(ctx context.Context, path string, force bool) (domain.IngestOutcome, error) {
	if s.parser == nil {
		return domain.IngestOutcome{}, fmt.Errorf("%w: no transcript parser configured", domain.ErrConfiguration)
	}
	if !s.parser.Supports(path) {
		return domain.IngestOutcome{}, fmt.Errorf("%w: unsupported transcript file %s", domain.ErrInvalidInput, path)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	src := domain.Source{ID: name, Title: name}
	if id, err := domain.ExtractVideoID(name); err == nil {
		src.ID = id
		src.URL = domain.WatchURL(id)
	}

	if !force {
		if o, ok := s.alreadyProcessed(ctx, src.ID); ok {
			return o, nil
		}
	}

	segments, err := s.parser.ParseFile(path)
	if err != nil {
		return s.fail(ctx, src, "", fmt.Errorf("parse %s: %w", filepath.Base(path), err)), nil
	}

	return s.indexTranscript(ctx, src, "", segments, force), nil
}

func (s *IngestService) run(
	ctx context.Context, inputs []string, force bool, emit func(domain.IngestOutcome),
) []domain.IngestOutcome {
	results := make([]domain.IngestOutcome, len(inputs))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, input := range inputs {
		g.Go(func() error {
			o := s.ingestOne(ctx, input, force)
			results[i] = o
			if emit != nil {
				emit(o)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *IngestService) ingestOne(ctx context.Context, input string, force bool) domain.IngestOutcome {
	id, err := domain.ExtractVideoID(input)
	if err != nil {
		return domain.IngestOutcome{SourceID: input, Status: domain.IngestFailed, Message: err.Error()}
	}

	if !force {
		if o, ok := s.alreadyProcessed(ctx, id); ok {
			logger.Debug("%s: already processed, skipping", id)
			return o
		}
	}

	logger.Debug("%s: fetching transcript", id)
	tr, err := s.fetcher.Fetch(ctx, id, s.preferred, s.fallback)
	if err != nil {
		return s.fail(ctx, domain.Source{ID: id, URL: domain.WatchURL(id)}, "", err)
	}
	if tr.Source.ID == "" {
		tr.Source.ID = id
	}
	if tr.Source.URL == "" {
		tr.Source.URL = domain.WatchURL(id)
	}

	return s.indexTranscript(ctx, tr.Source, tr.Language, tr.Segments, force)
}

// indexTranscript chunks, embeds and commits one source.
func (s *IngestService) indexTranscript(
	ctx context.Context, src domain.Source, lang string, segments []domain.Segment, force bool,
) domain.IngestOutcome {
	chunks := s.chunker.Chunk(src.ID, segments)
	if len(chunks) == 0 {
		return s.fail(ctx, src, lang, fmt.Errorf("%w: transcript has no text", domain.ErrFetchUnavailable))
	}
	logger.Debug("%s: %d segments -> %d chunks", src.ID, len(segments), len(chunks))

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := s.embedder.EmbedAll(ctx, texts)
	if err != nil {
		return s.fail(ctx, src, lang, err)
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	entry := domain.RegistryEntry{
		Source:     src,
		Status:     domain.IngestSuccess,
		Language:   lang,
		ChunkCount: len(chunks),
	}

	committed, err := s.commit(ctx, entry, chunks, force)
	if err != nil {
		return s.fail(ctx, src, lang, err)
	}
	if !committed {
		o, _ := s.alreadyProcessed(ctx, src.ID)
		return o
	}

	logger.Info("%s: indexed %d chunks (%s)", src.ID, len(chunks), src.Title)
	return domain.IngestOutcome{
		SourceID:   src.ID,
		Title:      src.Title,
		Status:     domain.IngestSuccess,
		ChunkCount: len(chunks),
	}
}

// commit writes the registry entry with its chunks, then the index rows.
// If the index write fails the source's previous registry state is put
// back, so a failed re-ingest leaves an earlier success intact. Returns
// false when a concurrent worker committed the source first and force is
// off.
func (s *IngestService) commit(
	ctx context.Context, entry domain.RegistryEntry, chunks []domain.Chunk, force bool,
) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	id := entry.Source.ID
	if !force {
		ok, err := s.registry.Contains(ctx, id)
		if err != nil {
			return false, fmt.Errorf("check registry: %w", err)
		}
		if ok {
			return false, nil
		}
	}

	// A corrupted index accepts no writes until it is rebuilt.
	if s.index.Stats().Corrupted {
		return false, fmt.Errorf("index write: %w", domain.ErrIndexCorrupted)
	}

	prev, prevChunks, err := s.previous(ctx, id)
	if err != nil {
		return false, err
	}

	if err := s.registry.Commit(ctx, entry, chunks); err != nil {
		return false, fmt.Errorf("commit registry: %w", err)
	}

	rows := make([]driven.IndexRow, len(chunks))
	for i, c := range chunks {
		rows[i] = indexRow(entry.Source, c)
	}

	replace := force || s.index.SourceCounts()[id] > 0
	if replace {
		err = s.index.ReplaceSource(ctx, id, rows)
	} else {
		err = s.index.Append(ctx, rows)
	}
	if err == nil {
		return true, nil
	}

	logger.Warn("%s: index write failed, restoring previous state: %v", id, err)
	s.restore(context.WithoutCancel(ctx), id, prev, prevChunks)
	return false, fmt.Errorf("index write: %w", err)
}

// previous returns the source's current entry and stored chunks, or a nil
// entry when the registry has never seen it. Caller holds the commit lock.
func (s *IngestService) previous(ctx context.Context, id string) (*domain.RegistryEntry, []domain.Chunk, error) {
	prev, err := s.registry.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read registry: %w", err)
	}
	chunks, err := s.registry.Chunks(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("read registry chunks: %w", err)
	}
	return prev, chunks, nil
}

// restore puts back the registry entry and index rows a source had before a
// failed commit. Caller holds the commit lock.
func (s *IngestService) restore(ctx context.Context, id string, prev *domain.RegistryEntry, prevChunks []domain.Chunk) {
	if prev == nil {
		if err := s.registry.Delete(ctx, id); err != nil {
			logger.Error("%s: registry rollback failed: %v", id, err)
		}
		if s.index.SourceCounts()[id] > 0 {
			if err := s.index.RemoveSource(ctx, id); err != nil && !errors.Is(err, domain.ErrIndexCorrupted) {
				logger.Warn("%s: could not drop stale index rows: %v", id, err)
			}
		}
		return
	}

	if err := s.registry.Commit(ctx, *prev, prevChunks); err != nil {
		logger.Error("%s: registry rollback failed: %v", id, err)
		return
	}
	if s.index.Stats().Corrupted {
		return
	}

	var rows []driven.IndexRow
	if prev.Status == domain.IngestSuccess {
		rows = make([]driven.IndexRow, len(prevChunks))
		for i, c := range prevChunks {
			rows[i] = indexRow(prev.Source, c)
		}
	}
	if err := s.index.ReplaceSource(ctx, id, rows); err != nil {
		logger.Warn("%s: index out of step with registry, rebuild to resync: %v", id, err)
	}
}

// fail records a failed entry unless the source already has a success
// entry, which a failed retry never downgrades.
func (s *IngestService) fail(ctx context.Context, src domain.Source, lang string, cause error) domain.IngestOutcome {
	logger.Warn("%s: ingest failed: %v", src.ID, cause)

	s.lock.Lock()
	ok, err := s.registry.Contains(ctx, src.ID)
	if err == nil && !ok {
		err = s.registry.Record(ctx, domain.RegistryEntry{
			Source:   src,
			Status:   domain.IngestFailed,
			Language: lang,
			Message:  cause.Error(),
		})
	}
	s.lock.Unlock()
	if err != nil {
		logger.Warn("%s: could not record failure: %v", src.ID, err)
	}

	return domain.IngestOutcome{
		SourceID: src.ID,
		Title:    src.Title,
		Status:   domain.IngestFailed,
		Message:  cause.Error(),
	}
}

func (s *IngestService) alreadyProcessed(ctx context.Context, id string) (domain.IngestOutcome, bool) {
	entry, err := s.registry.Get(ctx, id)
	if err != nil || !entry.Processed() {
		return domain.IngestOutcome{}, false
	}
	return domain.IngestOutcome{
		SourceID:   id,
		Title:      entry.Source.Title,
		Status:     domain.IngestSkipped,
		ChunkCount: entry.ChunkCount,
		Message:    "already processed",
	}, true
}

func (s *IngestService) trackJob(job *ingestJob) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.id] = job
	s.jobOrder = append(s.jobOrder, job.id)

	for len(s.jobOrder) > maxRetainedJobs {
		oldest := s.jobs[s.jobOrder[0]]
		if oldest != nil && !oldest.Done() {
			break
		}
		delete(s.jobs, s.jobOrder[0])
		s.jobOrder = s.jobOrder[1:]
	}
}

// ingestJob is the handle returned by IngestAsync.
type ingestJob struct {
	id       string
	outcomes chan domain.IngestOutcome
	done     chan struct{}
	finished atomic.Bool
	results  []domain.IngestOutcome
}

func (j *ingestJob) ID() string { return j.id }

func (j *ingestJob) Outcomes() <-chan domain.IngestOutcome { return j.outcomes }

func (j *ingestJob) Done() bool { return j.finished.Load() }

// Wait blocks until the batch finishes or ctx is done.
func (j *ingestJob) Wait(ctx context.Context) ([]domain.IngestOutcome, error) {
	select {
	case <-j.done:
		return j.results, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (j *ingestJob) finish(results []domain.IngestOutcome) {
	j.results = results
	j.finished.Store(true)
	close(j.outcomes)
	close(j.done)
}
