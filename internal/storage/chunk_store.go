package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookwyrm/internal/models"
	"bookwyrm/internal/util"
	"bookwyrm/internal/vector"

	"github.com/jackc/pgx/v5/pgconn"
)

const undefinedTable = "42P01"

// ChunkStore owns the ai.pdf_documents table: one row per embedded chunk,
// keyed only by the document's filename. The library never links to it by
// id, so reconciliation happens by name.
type ChunkStore struct {
	db  *DB
	dim int
}

func NewChunkStore(db *DB, dim int) *ChunkStore {
	return &ChunkStore{db: db, dim: dim}
}

// EnsureSchema creates the ai schema, pgvector extension, and chunk table.
func (s *ChunkStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS ai`,
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS ai.pdf_documents (
  id text PRIMARY KEY,
  name text,
  content text,
  embedding vector(%d),
  content_hash text,
  created_at timestamptz NOT NULL DEFAULT now(),
  updated_at timestamptz NOT NULL DEFAULT now()
)`, s.dim),
		`CREATE INDEX IF NOT EXISTS pdf_documents_name_idx ON ai.pdf_documents (name)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure chunk schema: %w", err)
		}
	}
	return nil
}

// Recreate drops and rebuilds the chunk table. Only the boot-time bulk
// reload uses this; per-ingest indexing never drops data.
func (s *ChunkStore) Recreate(ctx context.Context) error {
	if _, err := s.db.Pool.Exec(ctx, `DROP TABLE IF EXISTS ai.pdf_documents`); err != nil {
		return fmt.Errorf("drop chunk table: %w", err)
	}
	return s.EnsureSchema(ctx)
}

// Aggregates returns one row per distinct chunk name with its chunk count and
// earliest/latest timestamps, most recently updated first. A database without
// the chunk table reads as empty, not as an error.
func (s *ChunkStore) Aggregates(ctx context.Context) ([]models.ChunkAggregate, error) {
	rows, err := s.db.Pool.Query(ctx, `
SELECT name,
       COUNT(*) AS chunk_count,
       MIN(created_at) AS first_created,
       MAX(updated_at) AS last_updated
FROM ai.pdf_documents
WHERE name IS NOT NULL
GROUP BY name
ORDER BY MAX(updated_at) DESC`)
	if err != nil {
		if isUndefinedTable(err) {
			return []models.ChunkAggregate{}, nil
		}
		return nil, fmt.Errorf("query chunk aggregates: %w", err)
	}
	defer rows.Close()

	out := make([]models.ChunkAggregate, 0)
	for rows.Next() {
		var a models.ChunkAggregate
		var first, last *time.Time
		if err := rows.Scan(&a.Name, &a.ChunkCount, &first, &last); err != nil {
			return nil, fmt.Errorf("scan chunk aggregate: %w", err)
		}
		a.FirstCreated = first
		a.LastUpdated = last
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk aggregates: %w", err)
	}
	return out, nil
}

// Names returns the distinct non-null chunk names.
func (s *ChunkStore) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.Pool.Query(ctx, `
SELECT DISTINCT name FROM ai.pdf_documents WHERE name IS NOT NULL`)
	if err != nil {
		if isUndefinedTable(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("query chunk names: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan chunk name: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk names: %w", err)
	}
	return out, nil
}

// InsertChunks upserts one embedded chunk row per chunk under name. Chunk ids
// derive from name, position, and content, so re-ingesting the same document
// overwrites in place rather than duplicating.
func (s *ChunkStore) InsertChunks(ctx context.Context, name string, chunks []string, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d != %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx insert chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for i, chunk := range chunks {
		id := util.SHA256Hex([]byte(fmt.Sprintf("%s:%d:%s", name, i, chunk)))
		_, err := tx.Exec(ctx, `
INSERT INTO ai.pdf_documents (id, name, content, embedding, content_hash)
VALUES ($1, $2, $3, $4::vector, $5)
ON CONFLICT (id)
DO UPDATE SET
  content = EXCLUDED.content,
  embedding = EXCLUDED.embedding,
  content_hash = EXCLUDED.content_hash,
  updated_at = NOW()`,
			id, name, chunk, vector.ToLiteral(vectors[i]), util.SHA256Hex([]byte(chunk)),
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d of %s: %w", i, name, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

// DeleteByName removes every chunk row for name.
func (s *ChunkStore) DeleteByName(ctx context.Context, name string) error {
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM ai.pdf_documents WHERE name=$1`, name); err != nil {
		if isUndefinedTable(err) {
			return nil
		}
		return fmt.Errorf("delete chunks for %s: %w", name, err)
	}
	return nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}
