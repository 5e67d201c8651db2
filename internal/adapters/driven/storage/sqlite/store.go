package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/meetsight/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/meetsight/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// DatabaseFile is the file name created inside the data directory.
const DatabaseFile = "meetings.db"

const metaDimensions = "dimensions"

// Store is a SQLite-backed vector store.
type Store struct {
	db   *sql.DB
	path string

	mu         sync.RWMutex
	dimensions int
}

// NewStore opens (creating if needed) the store in dataDir.
// If dataDir is empty, defaults to ~/.meetsight/data.
// dimensions may be zero; otherwise it must match what the database
// was built with.
func NewStore(dataDir string, dimensions int) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".meetsight", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrStore, err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %w", domain.ErrStore, err)
	}

	stored, err := s.storedDimensions(context.Background())
	if err != nil {
		db.Close()
		return nil, err
	}
	switch {
	case stored == 0:
		s.dimensions = dimensions
	case dimensions > 0 && dimensions != stored:
		db.Close()
		return nil, fmt.Errorf("%w: %s holds %d-dimensional embeddings but the embedder produces %d; use a new store path or the matching model",
			domain.ErrStore, dbPath, stored, dimensions)
	default:
		s.dimensions = stored
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

// Dimensions returns the enforced embedding size, zero before the first write.
func (s *Store) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", domain.ErrStore, err)
	}
	return nil
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
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

func (s *Store) storedDimensions(ctx context.Context) (int, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM store_meta WHERE key = ?", metaDimensions).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: reading dimensions: %w", domain.ErrStore, err)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt dimensions %q: %w", domain.ErrStore, value, err)
	}
	return n, nil
}

// Upsert stores or replaces chunks in a single transaction.
func (s *Store) Upsert(ctx context.Context, chunks ...domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dims := s.dimensions
	for _, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("%w: chunk id is required", domain.ErrStore)
		}
		if err := vecmath.CheckDimensions(c.Embedding, dims); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		dims = len(c.Embedding)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStore, err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, meeting_id, content, position, embedding, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			meeting_id = excluded.meeting_id,
			content = excluded.content,
			position = excluded.position,
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing statement: %w", domain.ErrStore, err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("%w: marshalling chunk metadata: %w", domain.ErrStore, err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, string(c.MeetingID), c.Text, c.Position,
			vecmath.Encode(c.Embedding), string(metadataJSON)); err != nil {
			return fmt.Errorf("%w: saving chunk %s: %w", domain.ErrStore, c.ID, err)
		}
	}

	if s.dimensions == 0 {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO store_meta (key, value) VALUES (?, ?)",
			metaDimensions, strconv.Itoa(dims)); err != nil {
			return fmt.Errorf("%w: recording dimensions: %w", domain.ErrStore, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrStore, err)
	}
	s.dimensions = dims
	return nil
}

// Query ranks the filtered meeting's chunks by cosine distance.
func (s *Store) Query(
	ctx context.Context, embedding []float32, topK int, filter domain.Filter,
) ([]domain.ScoredChunk, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if err := vecmath.CheckDimensions(embedding, s.Dimensions()); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, meeting_id, content, position, embedding, metadata
		FROM chunks
		WHERE meeting_id = ?
	`, string(filter.MeetingID))
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	hits := []domain.ScoredChunk{}
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		if !filter.Matches(c.Metadata) {
			continue
		}
		hits = append(hits, domain.ScoredChunk{Chunk: c, Distance: vecmath.CosineDistance(embedding, c.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating chunks: %w", domain.ErrStore, err)
	}

	return vecmath.TopK(hits, topK), nil
}

func scanChunk(rows *sql.Rows) (domain.Chunk, error) {
	var (
		c            domain.Chunk
		meetingID    string
		blob         []byte
		metadataJSON string
	)
	if err := rows.Scan(&c.ID, &meetingID, &c.Text, &c.Position, &blob, &metadataJSON); err != nil {
		return c, fmt.Errorf("%w: scanning chunk: %w", domain.ErrStore, err)
	}
	c.MeetingID = domain.MeetingID(meetingID)

	embedding, err := vecmath.Decode(blob)
	if err != nil {
		return c, fmt.Errorf("%w: chunk %s: %w", domain.ErrStore, c.ID, err)
	}
	c.Embedding = embedding

	if err := json.Unmarshal([]byte(metadataJSON), &c.Metadata); err != nil {
		return c, fmt.Errorf("%w: chunk %s metadata: %w", domain.ErrStore, c.ID, err)
	}
	return c, nil
}

// DeleteMeeting removes every chunk of a meeting.
func (s *Store) DeleteMeeting(ctx context.Context, meetingID domain.MeetingID) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE meeting_id = ?", string(meetingID)); err != nil {
		return fmt.Errorf("%w: deleting meeting %s: %w", domain.ErrStore, meetingID, err)
	}
	return nil
}

// Count returns the number of chunks for the filtered meeting, or all
// chunks when the filter is empty.
func (s *Store) Count(ctx context.Context, filter domain.Filter) (int, error) {
	var (
		n   int
		err error
	)
	if filter.MeetingID == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE meeting_id = ?", string(filter.MeetingID)).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: counting chunks: %w", domain.ErrStore, err)
	}
	return n, nil
}
