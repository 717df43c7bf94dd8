package mcp

import (
	"context"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driving"
)

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	outcomes  []domain.IngestOutcome
	job       *mockJob
	err       error
	lastIDs   []string
	lastForce bool
}

func (m *mockIngestService) Ingest(_ context.Context, ids []string, force bool) ([]domain.IngestOutcome, error) {
	m.lastIDs, m.lastForce = ids, force
	return m.outcomes, m.err
}

func (m *mockIngestService) IngestAsync(_ context.Context, ids []string, force bool) (driving.IngestJob, error) {
	m.lastIDs, m.lastForce = ids, force
	if m.err != nil {
		return nil, m.err
	}
	return m.job, nil
}

func (m *mockIngestService) IngestFile(context.Context, string, bool) (domain.IngestOutcome, error) {
	return domain.IngestOutcome{}, m.err
}

func (m *mockIngestService) Job(id string) (driving.IngestJob, bool) {
	if m.job == nil || m.job.id != id {
		return nil, false
	}
	return m.job, true
}

// mockJob is a mock implementation of driving.IngestJob.
type mockJob struct {
	id       string
	done     bool
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

func (j *mockJob) Done() bool { return j.done }

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer  *domain.Answer
	summary *domain.SourceSummary
	err     error
	lastK   int
}

func (m *mockAnswerService) Ask(_ context.Context, _ string, k int) (*domain.Answer, error) {
	m.lastK = k
	return m.answer, m.err
}

func (m *mockAnswerService) Summarize(context.Context, string) (*domain.SourceSummary, error) {
	return m.summary, m.err
}

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	hits      []domain.SearchHit
	similar   []domain.SimilarSource
	err       error
	lastLimit int
}

func (m *mockSearchService) SearchContent(_ context.Context, _ string, k int) ([]domain.SearchHit, error) {
	m.lastLimit = k
	return m.hits, m.err
}

func (m *mockSearchService) SimilarSources(_ context.Context, _ string, limit int) ([]domain.SimilarSource, error) {
	m.lastLimit = limit
	return m.similar, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	result *domain.RebuildResult
	err    error
}

func (m *mockIndexService) Rebuild(context.Context) (*domain.RebuildResult, error) {
	return m.result, m.err
}

func (m *mockIndexService) Reconcile(context.Context) (bool, error) { return false, m.err }

// mockStatusService is a mock implementation of driving.StatusService.
type mockStatusService struct {
	status *domain.Status
	err    error
}

func (m *mockStatusService) Status(context.Context) (*domain.Status, error) {
	return m.status, m.err
}

// mockSourceService is a mock implementation of driving.SourceService.
type mockSourceService struct {
	entries []domain.RegistryEntry
	entry   *domain.RegistryEntry
	err     error
}

func (m *mockSourceService) List(context.Context) ([]domain.RegistryEntry, error) {
	return m.entries, m.err
}

func (m *mockSourceService) Get(context.Context, string) (*domain.RegistryEntry, error) {
	return m.entry, m.err
}

func (m *mockSourceService) Remove(context.Context, string) error { return m.err }

// validPorts returns ports with every required service mocked.
func validPorts() *Ports {
	return &Ports{
		Ingest: &mockIngestService{},
		Answer: &mockAnswerService{},
		Search: &mockSearchService{},
		Index:  &mockIndexService{},
		Status: &mockStatusService{},
	}
}
