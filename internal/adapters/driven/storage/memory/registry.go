package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
)

// Ensure RegistryStore implements the interface.
var _ driven.RegistryStore = (*RegistryStore)(nil)

type registryRecord struct {
	entry  domain.RegistryEntry
	seq    int
	chunks []domain.Chunk
}

// RegistryStore is an in-memory implementation of driven.RegistryStore.
type RegistryStore struct {
	mu       sync.RWMutex
	records  map[string]*registryRecord
	seq      int
	lastMut  time.Time
	now      func() time.Time
	failNext error
}

// NewRegistryStore creates a new in-memory registry store.
func NewRegistryStore() *RegistryStore {
	return &RegistryStore{
		records: make(map[string]*registryRecord),
		now:     time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (s *RegistryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailNextCommit makes the next Commit return err without changing state.
func (s *RegistryStore) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Contains reports whether the source has a success entry.
func (s *RegistryStore) Contains(_ context.Context, sourceID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[sourceID]
	return ok && r.entry.Processed(), nil
}

// Get retrieves the entry for a source.
func (s *RegistryStore) Get(_ context.Context, sourceID string) (*domain.RegistryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[sourceID]
	if !ok {
		return nil, fmt.Errorf("source %s: %w", sourceID, domain.ErrNotFound)
	}
	entry := r.entry
	return &entry, nil
}

// List returns all entries in commit order.
func (s *RegistryStore) List(_ context.Context) ([]domain.RegistryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ordered := s.ordered()
	entries := make([]domain.RegistryEntry, len(ordered))
	for i, r := range ordered {
		entries[i] = r.entry
	}
	return entries, nil
}

// Count returns the number of entries.
func (s *RegistryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Record upserts an entry, keeping any stored chunks.
func (s *RegistryStore) Record(_ context.Context, entry domain.RegistryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.validate(entry); err != nil {
		return err
	}
	var chunks []domain.Chunk
	if r, ok := s.records[entry.Source.ID]; ok {
		chunks = r.chunks
	}
	s.put(entry, chunks)
	return nil
}

// Commit replaces the source's chunks and records the entry.
func (s *RegistryStore) Commit(_ context.Context, entry domain.RegistryEntry, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	if err := s.validate(entry); err != nil {
		return err
	}
	for i := range chunks {
		if chunks[i].SourceID != entry.Source.ID {
			return fmt.Errorf("%w: chunk %s does not belong to %s",
				domain.ErrInvalidInput, chunks[i].ID(), entry.Source.ID)
		}
	}
	entry.ChunkCount = len(chunks)
	s.put(entry, append([]domain.Chunk(nil), chunks...))
	return nil
}

// Delete removes an entry and its chunks.
func (s *RegistryStore) Delete(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[sourceID]; ok {
		delete(s.records, sourceID)
		s.lastMut = s.now()
	}
	return nil
}

// Chunks returns a source's chunks in index order.
func (s *RegistryStore) Chunks(_ context.Context, sourceID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[sourceID]
	if !ok {
		return nil, nil
	}
	return append([]domain.Chunk(nil), r.chunks...), nil
}

// AllChunks returns every chunk of every successful source in commit order.
func (s *RegistryStore) AllChunks(_ context.Context) ([]domain.StoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StoredChunk
	for _, r := range s.ordered() {
		if !r.entry.Processed() {
			continue
		}
		for _, c := range r.chunks {
			out = append(out, domain.StoredChunk{Chunk: c, Source: r.entry.Source})
		}
	}
	return out, nil
}

// ChunkCounts returns the stored chunk count per successful source.
func (s *RegistryStore) ChunkCounts(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for id, r := range s.records {
		if r.entry.Processed() && len(r.chunks) > 0 {
			counts[id] = len(r.chunks)
		}
	}
	return counts, nil
}

// LastUpdated returns the time of the most recent mutation.
func (s *RegistryStore) LastUpdated(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMut, nil
}

// Close is a no-op.
func (s *RegistryStore) Close() error {
	return nil
}

// put stores the record (caller must hold lock).
func (s *RegistryStore) put(entry domain.RegistryEntry, chunks []domain.Chunk) {
	now := s.now()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now
	}
	s.seq++
	s.records[entry.Source.ID] = &registryRecord{entry: entry, seq: s.seq, chunks: chunks}
	s.lastMut = now
}

// ordered returns records by commit sequence (caller must hold lock).
func (s *RegistryStore) ordered() []*registryRecord {
	out := make([]*registryRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (s *RegistryStore) validate(entry domain.RegistryEntry) error {
	if entry.Source.ID == "" {
		return fmt.Errorf("%w: registry entry without source id", domain.ErrInvalidInput)
	}
	if !entry.Status.IsValid() {
		return fmt.Errorf("%w: registry status %q", domain.ErrInvalidInput, entry.Status)
	}
	return nil
}
