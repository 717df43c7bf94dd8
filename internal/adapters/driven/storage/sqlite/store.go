package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragtube/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/ragtube/internal/core/domain"
	"github.com/custodia-labs/ragtube/internal/core/ports/driven"
)

// metaLastMutation is the store_meta key holding the last mutation time.
const metaLastMutation = "last_mutation"

// Store is a SQLite-based registry store.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ driven.RegistryStore = (*Store)(nil)

// NewStore opens dataDir/registry.db, running pending migrations.
// An empty dataDir means ~/.ragtube.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ragtube")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "registry.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Registry ====================

// Contains reports whether the source has a success entry.
func (s *Store) Contains(ctx context.Context, sourceID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sources WHERE id = ? AND status = ?",
		sourceID, string(domain.IngestSuccess),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking source %s: %w", sourceID, err)
	}
	return n > 0, nil
}

const selectEntry = `
	SELECT id, title, uploader, url, duration_ms, language, status, chunk_count, message, updated_at
	FROM sources`

// Get retrieves the registry entry for a source.
func (s *Store) Get(ctx context.Context, sourceID string) (*domain.RegistryEntry, error) {
	row := s.db.QueryRowContext(ctx, selectEntry+" WHERE id = ?", sourceID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source %s: %w", sourceID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting source %s: %w", sourceID, err)
	}
	return entry, nil
}

// List returns all registry entries in commit order.
func (s *Store) List(ctx context.Context) ([]domain.RegistryEntry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntry+" ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	var entries []domain.RegistryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// Count returns the number of registry entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sources: %w", err)
	}
	return n, nil
}

// Record upserts a registry entry without touching chunks.
func (s *Store) Record(ctx context.Context, entry domain.RegistryEntry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.upsertEntry(ctx, tx, entry)
	})
}

// Commit replaces the source's chunks and records its entry in one transaction.
func (s *Store) Commit(ctx context.Context, entry domain.RegistryEntry, chunks []domain.Chunk) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		entry.ChunkCount = len(chunks)
		if err := s.upsertEntry(ctx, tx, entry); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE source_id = ?", entry.Source.ID); err != nil {
			return fmt.Errorf("clearing chunks: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (source_id, idx, content, start_ms, embedding)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for i := range chunks {
			c := &chunks[i]
			if c.SourceID != entry.Source.ID {
				return fmt.Errorf("%w: chunk %s does not belong to %s", domain.ErrInvalidInput, c.ID(), entry.Source.ID)
			}
			_, err := stmt.ExecContext(ctx,
				c.SourceID, c.Index, c.Text, c.Start.Milliseconds(), float32SliceToBytes(c.Embedding))
			if err != nil {
				return fmt.Errorf("inserting chunk %s: %w", c.ID(), err)
			}
		}
		return nil
	})
}

// Delete removes a source and its chunks.
func (s *Store) Delete(ctx context.Context, sourceID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM sources WHERE id = ?", sourceID)
		if err != nil {
			return fmt.Errorf("deleting source %s: %w", sourceID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return s.touch(ctx, tx)
	})
}

// Chunks returns a source's chunks in index order.
func (s *Store) Chunks(ctx context.Context, sourceID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, idx, content, start_ms, embedding
		FROM chunks WHERE source_id = ? ORDER BY idx
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var (
			c       domain.Chunk
			startMs int64
			blob    []byte
		)
		if err := rows.Scan(&c.SourceID, &c.Index, &c.Text, &startMs, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Start = time.Duration(startMs) * time.Millisecond
		c.Embedding = bytesToFloat32Slice(blob)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// AllChunks returns every chunk of every successful source, ordered by
// commit sequence and chunk index.
func (s *Store) AllChunks(ctx context.Context) ([]domain.StoredChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.source_id, c.idx, c.content, c.start_ms, c.embedding,
		       s.title, s.uploader, s.url, s.duration_ms
		FROM chunks c
		JOIN sources s ON s.id = c.source_id
		WHERE s.status = ?
		ORDER BY s.seq, c.idx
	`, string(domain.IngestSuccess))
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredChunk
	for rows.Next() {
		var (
			sc         domain.StoredChunk
			startMs    int64
			durationMs int64
			blob       []byte
		)
		err := rows.Scan(&sc.SourceID, &sc.Index, &sc.Text, &startMs, &blob,
			&sc.Source.Title, &sc.Source.Uploader, &sc.Source.URL, &durationMs)
		if err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		sc.Start = time.Duration(startMs) * time.Millisecond
		sc.Embedding = bytesToFloat32Slice(blob)
		sc.Source.ID = sc.SourceID
		sc.Source.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, sc)
	}
	return out, rows.Err()
}

// ChunkCounts returns the stored chunk count per successful source.
func (s *Store) ChunkCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.source_id, COUNT(*)
		FROM chunks c
		JOIN sources s ON s.id = c.source_id
		WHERE s.status = ?
		GROUP BY c.source_id
	`, string(domain.IngestSuccess))
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scanning chunk count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// LastUpdated returns the time of the most recent mutation, zero if none.
func (s *Store) LastUpdated(ctx context.Context) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM store_meta WHERE key = ?", metaLastMutation).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading last mutation: %w", err)
	}
	nanos, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing last mutation %q: %w", value, err)
	}
	return time.Unix(0, nanos).UTC(), nil
}

// ==================== Helpers ====================

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *Store) upsertEntry(ctx context.Context, tx *sql.Tx, entry domain.RegistryEntry) error {
	if entry.Source.ID == "" {
		return fmt.Errorf("%w: registry entry without source id", domain.ErrInvalidInput)
	}
	if !entry.Status.IsValid() {
		return fmt.Errorf("%w: registry status %q", domain.ErrInvalidInput, entry.Status)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO sources (id, title, uploader, url, duration_ms, language, status, chunk_count, message, seq, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM sources), ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			uploader = excluded.uploader,
			url = excluded.url,
			duration_ms = excluded.duration_ms,
			language = excluded.language,
			status = excluded.status,
			chunk_count = excluded.chunk_count,
			message = excluded.message,
			seq = excluded.seq,
			updated_at = excluded.updated_at
	`,
		entry.Source.ID, entry.Source.Title, entry.Source.Uploader, entry.Source.URL,
		entry.Source.Duration.Milliseconds(), entry.Language, string(entry.Status),
		entry.ChunkCount, entry.Message, entry.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving source %s: %w", entry.Source.ID, err)
	}
	return s.touch(ctx, tx)
}

func (s *Store) touch(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO store_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaLastMutation, strconv.FormatInt(s.now().UnixNano(), 10))
	if err != nil {
		return fmt.Errorf("recording mutation time: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.RegistryEntry, error) {
	var (
		e          domain.RegistryEntry
		durationMs int64
		status     string
		updated    int64
	)
	err := row.Scan(&e.Source.ID, &e.Source.Title, &e.Source.Uploader, &e.Source.URL,
		&durationMs, &e.Language, &status, &e.ChunkCount, &e.Message, &updated)
	if err != nil {
		return nil, err
	}
	e.Source.Duration = time.Duration(durationMs) * time.Millisecond
	e.Status = domain.IngestStatus(status)
	e.Timestamp = time.Unix(0, updated).UTC()
	return &e, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
