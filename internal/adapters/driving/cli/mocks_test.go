package cli

import (
	"context"
	"time"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driving"
)

// mockIngestService returns one outcome per input.
type mockIngestService struct {
	lastForce bool
	files     []string
}

func (m *mockIngestService) Ingest(_ context.Context, inputs []string, force bool) ([]domain.IngestOutcome, error) {
	m.lastForce = force
	out := make([]domain.IngestOutcome, len(inputs))
	for i, id := range inputs {
		switch id {
		case "badbadbad00":
			out[i] = domain.IngestOutcome{SourceID: id, Status: domain.IngestFailed, Message: "transcript unavailable"}
		case "oldoldold00":
			out[i] = domain.IngestOutcome{SourceID: id, Status: domain.IngestSkipped}
		default:
			out[i] = domain.IngestOutcome{SourceID: id, Title: "Video " + id, Status: domain.IngestSuccess, ChunkCount: 4}
		}
	}
	return out, nil
}

func (m *mockIngestService) IngestAsync(ctx context.Context, inputs []string, force bool) (driving.IngestJob, error) {
	outcomes, _ := m.Ingest(ctx, inputs, force)
	return &mockJob{id: "job-123", outcomes: outcomes}, nil
}

func (m *mockIngestService) IngestFile(_ context.Context, path string, _ bool) (domain.IngestOutcome, error) {
	m.files = append(m.files, path)
	return domain.IngestOutcome{SourceID: "local", Status: domain.IngestSuccess, ChunkCount: 2}, nil
}

func (m *mockIngestService) Job(string) (driving.IngestJob, bool) { return nil, false }

type mockJob struct {
	id       string
	outcomes []domain.IngestOutcome
}

func (j *mockJob) ID() string { return j.id }

func (j *mockJob) Outcomes() <-chan domain.IngestOutcome {
	ch := make(chan domain.IngestOutcome, len(j.outcomes))
	for _, o := range j.outcomes {
		ch <- o
	}
	close(ch)
	return ch
}

func (j *mockJob) Wait(context.Context) ([]domain.IngestOutcome, error) { return j.outcomes, nil }
func (j *mockJob) Done() bool { return true }

type mockAnswerService struct {
	lastK int
}

func (m *mockAnswerService) Ask(_ context.Context, question string, k int) (*domain.Answer, error) {
	m.lastK = k
	return &domain.Answer{
		Question: question,
		Text:     "Cats purr when they are content.",
		Citations: []domain.Citation{{
			SourceID:  "catcatcat01",
			Title:     "All About Cats",
			URL:       "https://www.youtube.com/watch?v=catcatcat01&t=42s",
			Timestamp: "42s",
			Score:     0.87,
		}},
		TotalFound: 1,
	}, nil
}

func (m *mockAnswerService) Summarize(_ context.Context, id string) (*domain.SourceSummary, error) {
	if id != "catcatcat01" {
		return nil, domain.ErrNotFound
	}
	return &domain.SourceSummary{SourceID: id, Title: "All About Cats", Summary: "A video about cats."}, nil
}

type mockSearchService struct {
	lastLimit int
}

func (m *mockSearchService) SearchContent(_ context.Context, _ string, k int) ([]domain.SearchHit, error) {
	m.lastLimit = k
	return []domain.SearchHit{{
		SourceID:  "catcatcat01",
		Title:     "All About Cats",
		URL:       "https://www.youtube.com/watch?v=catcatcat01&t=0s",
		Content:   "Cats purr when happy.",
		Timestamp: "0s",
		Score:     0.91,
	}}, nil
}

func (m *mockSearchService) SimilarSources(_ context.Context, _ string, limit int) ([]domain.SimilarSource, error) {
	m.lastLimit = limit
	return []domain.SimilarSource{{
		SourceID: "catcatcat01", Title: "All About Cats", MaxScore: 0.91, AverageScore: 0.8, ChunkCount: 3,
	}}, nil
}

type mockIndexService struct {
	err error
}

func (m *mockIndexService) Rebuild(context.Context) (*domain.RebuildResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.RebuildResult{Previous: 0, Current: 12}, nil
}

func (m *mockIndexService) Reconcile(context.Context) (bool, error) { return false, nil }

type mockStatusService struct {
	status domain.Status
}

func (m *mockStatusService) Status(context.Context) (*domain.Status, error) {
	st := m.status
	return &st, nil
}

type mockSourceService struct {
	removed []string
}

func (m *mockSourceService) List(context.Context) ([]domain.RegistryEntry, error) {
	return []domain.RegistryEntry{
		{
			Source:     domain.Source{ID: "catcatcat01", Title: "All About Cats"},
			Status:     domain.IngestSuccess,
			Language:   "en",
			ChunkCount: 3,
			Timestamp:  time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			Source:  domain.Source{ID: "badbadbad00"},
			Status:  domain.IngestFailed,
			Message: "rate limited",
		},
	}, nil
}

func (m *mockSourceService) Get(_ context.Context, id string) (*domain.RegistryEntry, error) {
	return nil, domain.ErrNotFound
}

func (m *mockSourceService) Remove(_ context.Context, id string) error {
	if id != "catcatcat01" {
		return domain.ErrNotFound
	}
	m.removed = append(m.removed, id)
	return nil
}

type mockSettingsService struct {
	settings domain.AppSettings
	set      map[string]string
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if key == "rag.chunk_overlap" && value == "5000" {
		return domain.ErrConfiguration
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string { return []string{"llm.api_key", "rag.chunk_size"} }
func (m *mockSettingsService) ConfigPath() string { return "/tmp/ragtube/config.toml" }

type mockWatchService struct {
	dir string
}

func (m *mockWatchService) Run(_ context.Context, dir string) error {
	m.dir = dir
	return nil
}

// testMocks exposes the mocks installed by setupTestServices.
type testMocks struct {
	ingest   *mockIngestService
	answer   *mockAnswerService
	search   *mockSearchService
	index    *mockIndexService
	status   *mockStatusService
	source   *mockSourceService
	settings *mockSettingsService
	watch    *mockWatchService
}

var mocks *testMocks

// setupTestServices installs mock services and returns a cleanup function
// that restores the previous services and resets global flags.
func setupTestServices() func() {
	mocks = &testMocks{
		ingest:   &mockIngestService{},
		answer:   &mockAnswerService{},
		search:   &mockSearchService{},
		index:    &mockIndexService{},
		status:   &mockStatusService{status: domain.Status{Status: domain.IndexEmpty}},
		source:   &mockSourceService{},
		settings: &mockSettingsService{settings: domain.DefaultAppSettings(), set: map[string]string{}},
		watch:    &mockWatchService{},
	}

	SetServices(&Services{
		Ingest:   mocks.ingest,
		Answer:   mocks.answer,
		Search:   mocks.search,
		Index:    mocks.index,
		Status:   mocks.status,
		Source:   mocks.source,
		Settings: mocks.settings,
		Watch:    mocks.watch,
	})

	return func() {
		SetServices(&Services{})
		jsonOutput = false
		ingestForce = false
		ingestAsync = false
		ingestFiles = nil
		askK = 0
		searchLimit = 0
		similarLimit = 5
	}
}
