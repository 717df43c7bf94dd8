package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragtube/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragtube/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
	"github.com/custodia-labs/ragtube/internal/postprocessors/chunker"
)

// --- Mock implementations ---

// mockFetcher implements driven.TranscriptFetcher for testing.
// Errors queued for an id are returned first, one per call.
type mockFetcher struct {
	mu          sync.Mutex
	transcripts map[string]*domain.Transcript
	errs        map[string][]error
	calls       map[string]int
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		transcripts: make(map[string]*domain.Transcript),
		errs:        make(map[string][]error),
		calls:       make(map[string]int),
	}
}

func (m *mockFetcher) add(id, title string, texts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	segs := make([]domain.Segment, len(texts))
	for i, t := range texts {
		segs[i] = domain.Segment{Text: t, Start: time.Duration(i*10) * time.Second, Duration: 10 * time.Second}
	}
	m.transcripts[id] = &domain.Transcript{
		Source:   domain.Source{ID: id, Title: title, Uploader: "Channel", URL: domain.WatchURL(id)},
		Language: "en",
		Segments: segs,
	}
}

func (m *mockFetcher) fail(id string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[id] = append(m.errs[id], errs...)
}

func (m *mockFetcher) callCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[id]
}

func (m *mockFetcher) Fetch(_ context.Context, id string, _, _ []string) (*domain.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[id]++
	if q := m.errs[id]; len(q) > 0 {
		m.errs[id] = q[1:]
		return nil, q[0]
	}
	tr, ok := m.transcripts[id]
	if !ok {
		return nil, domain.ErrFetchUnavailable
	}
	cp := *tr
	return &cp, nil
}

// testVocabulary defines the dimensions of mockEmbeddingService vectors.
var testVocabulary = []string{"cat", "dog", "go", "rust", "music", "cooking"}

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Each dimension counts one vocabulary word; a small constant keeps
// vectors non-zero.
type mockEmbeddingService struct {
	mu        sync.Mutex
	errs      []error
	batches   [][]string
	wrongSize bool
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	v := make([]float32, len(testVocabulary)+1)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,?!")
		for i, voc := range testVocabulary {
			if w == voc || w == voc+"s" {
				v[i]++
			}
		}
	}
	v[len(testVocabulary)] = 0.01
	return v
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, append([]string(nil), texts...))
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	if m.wrongSize {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockEmbeddingService) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func (m *mockEmbeddingService) Dimensions() int { return len(testVocabulary) + 1 }
func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }
func (m *mockEmbeddingService) Ping(context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error { return nil }

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	mu       sync.Mutex
	reply    string
	err      error
	chats    [][]driven.ChatMessage
	chatOpts []driven.ChatOptions
	prompts  []string
	genOpts  []driven.GenerateOptions
}

func (m *mockLLMService) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.genOpts = append(m.genOpts, opts)
	return m.reply, m.err
}

func (m *mockLLMService) Chat(_ context.Context, msgs []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = append(m.chats, msgs)
	m.chatOpts = append(m.chatOpts, opts)
	return m.reply, m.err
}

func (m *mockLLMService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chats) + len(m.prompts)
}

func (m *mockLLMService) ModelName() string { return "mock-llm" }
func (m *mockLLMService) Ping(context.Context) error { return nil }
func (m *mockLLMService) Close() error { return nil }

// faultyIndex wraps a driven.VectorIndex and injects write failures or a
// corrupted state.
type faultyIndex struct {
	driven.VectorIndex
	appendErr  error
	replaceErr error
	corrupted  bool
}

func (f *faultyIndex) Append(ctx context.Context, rows []driven.IndexRow) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.VectorIndex.Append(ctx, rows)
}

func (f *faultyIndex) ReplaceSource(ctx context.Context, id string, rows []driven.IndexRow) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	return f.VectorIndex.ReplaceSource(ctx, id, rows)
}

func (f *faultyIndex) Stats() domain.IndexStats {
	st := f.VectorIndex.Stats()
	st.Corrupted = st.Corrupted || f.corrupted
	return st
}

// noSleep records requested waits without sleeping.
type noSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (n *noSleep) sleep(ctx context.Context, d time.Duration) error {
	n.mu.Lock()
	n.waits = append(n.waits, d)
	n.mu.Unlock()
	return ctx.Err()
}

// --- Test harness ---

// testEnv wires the core services over in-memory and temp-dir adapters.
type testEnv struct {
	settings *domain.AppSettings
	registry *memory.RegistryStore
	index    *faultyIndex
	fetcher  *mockFetcher
	embed    *mockEmbeddingService
	llm      *mockLLMService
	lock     *CommitLock

	ingest  *IngestService
	indexes *IndexService
	search  *SearchService
	answer  *AnswerService
	status  *StatusService
	sources *SourceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	settings := domain.DefaultAppSettings()
	settings.RAG.ChunkSize = 200
	settings.RAG.ChunkOverlap = 20
	settings.RAG.SimilarityThreshold = 0.5
	settings.RAG.EmbedBatchSize = 2
	settings.Persona.EndingPhrase = ""
	settings.Persona.Greeting = ""

	idx, err := vectorindex.Open(t.TempDir())
	require.NoError(t, err)

	proc, err := chunker.New(
		chunker.WithChunkSize(settings.RAG.ChunkSize),
		chunker.WithOverlap(settings.RAG.ChunkOverlap),
	)
	require.NoError(t, err)

	env := &testEnv{
		settings: &settings,
		registry: memory.NewRegistryStore(),
		index:    &faultyIndex{VectorIndex: idx},
		fetcher:  newMockFetcher(),
		embed:    &mockEmbeddingService{},
		llm:      &mockLLMService{reply: "Cats sleep a lot."},
		lock:     &CommitLock{},
	}

	embedder := NewBatchEmbedder(env.embed, settings.RAG)
	embedder.SetSleeper((&noSleep{}).sleep)

	env.ingest = NewIngestService(env.registry, env.index, env.fetcher, proc, embedder, env.lock, env.settings)
	env.indexes = NewIndexService(env.registry, env.index, env.lock, true)
	env.search = NewSearchService(embedder, env.index, settings.RAG)
	env.answer = NewAnswerService(env.search, env.llm, env.registry, nil, env.settings)
	env.status = NewStatusService(env.registry, env.index)
	env.sources = NewSourceService(env.registry, env.index, env.lock)
	return env
}

// seed registers the standard test corpus with the fetcher.
func (e *testEnv) seed() {
	e.fetcher.add("catcatcat01", "All About Cats", "Cats purr when happy.", "A cat sleeps most of the day.")
	e.fetcher.add("dogdogdog01", "Dog Training", "Dogs learn commands quickly.", "Reward the dog after each try.")
	e.fetcher.add("gogogogo001", "Learning Go", "Go has goroutines and channels.", "Rust and Go are both fast.")
}
