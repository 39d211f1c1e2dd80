package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// SQLiteStore is the default, local VectorAdapter implementation shipped
// with this module for development and tests — the production vector
// index engine remains an external collaborator (spec §1). Embeddings are
// stored as JSON float arrays and similarity is computed in Go; an FTS5
// table backs a keyword fallback when no embedder is configured. Directly
// grounded on the teacher's agents/rag.VectorStore, generalized from a
// single "chunks" source table to one table shared across the spec's
// four collections, partitioned by a collection column.
type SQLiteStore struct {
	db       *sql.DB
	embedder func(text string) []float32
}

// NewSQLiteStore opens (creating if necessary) a SQLite-backed vector
// store at dbPath. embedder may be nil, in which case Query falls back
// entirely to the FTS5 keyword index.
func NewSQLiteStore(dbPath string, embedder func(text string) []float32) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("index: open sqlite store: %w", err)
	}
	s := &SQLiteStore{db: db, embedder: embedder}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("index: migrate sqlite store: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding TEXT NOT NULL,
		metadata TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
		collection UNINDEXED,
		id UNINDEXED,
		content
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert stores or replaces an item keyed by (collection, id).
func (s *SQLiteStore) Upsert(ctx context.Context, collection, id, text string, metadata map[string]string) error {
	var embedding []float32
	if s.embedder != nil {
		embedding = s.embedder(text)
	}
	embJSON, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("index: marshal embedding: %w", err)
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("index: marshal metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO items (collection, id, content, embedding, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET content=excluded.content,
			embedding=excluded.embedding, metadata=excluded.metadata
	`, collection, id, text, string(embJSON), string(metaJSON)); err != nil {
		return fmt.Errorf("index: upsert item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM items_fts WHERE collection = ? AND id = ?`, collection, id); err != nil {
		return fmt.Errorf("index: refresh fts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO items_fts (collection, id, content) VALUES (?, ?, ?)`, collection, id, text); err != nil {
		return fmt.Errorf("index: insert fts: %w", err)
	}

	return tx.Commit()
}

// Delete removes an item from both the item table and the FTS index.
func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE collection = ? AND id = ?`, collection, id); err != nil {
		return fmt.Errorf("index: delete item: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items_fts WHERE collection = ? AND id = ?`, collection, id); err != nil {
		return fmt.Errorf("index: delete fts: %w", err)
	}
	return nil
}

// Query returns the top-k relevance-ordered ids in collection. When an
// embedder is configured, hits are scored by cosine similarity over stored
// embeddings (highest first); otherwise it falls back to FTS5 keyword
// ranking.
func (s *SQLiteStore) Query(ctx context.Context, collection, text string, k int) ([]Hit, error) {
	if s.embedder != nil {
		return s.queryByEmbedding(ctx, collection, text, k)
	}
	return s.queryByKeyword(ctx, collection, text, k)
}

func (s *SQLiteStore) queryByEmbedding(ctx context.Context, collection, text string, k int) ([]Hit, error) {
	query := s.embedder(text)

	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM items WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("index: query items: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var id, embJSON string
		if err := rows.Scan(&id, &embJSON); err != nil {
			return nil, fmt.Errorf("index: scan item: %w", err)
		}
		var emb []float32
		if err := json.Unmarshal([]byte(embJSON), &emb); err != nil {
			continue
		}
		hits = append(hits, Hit{ID: id, Score: cosineSimilarity(query, emb)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortHitsDesc(hits)
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *SQLiteStore) queryByKeyword(ctx context.Context, collection, text string, k int) ([]Hit, error) {
	terms := strings.Fields(text)
	if len(terms) == 0 {
		return nil, nil
	}
	match := strings.Join(terms, " OR ")

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bm25(items_fts) FROM items_fts
		WHERE collection = ? AND items_fts MATCH ?
		ORDER BY bm25(items_fts)
		LIMIT ?
	`, collection, match, k)
	if err != nil {
		return nil, fmt.Errorf("index: fts query: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("index: scan fts hit: %w", err)
		}
		hits = append(hits, Hit{ID: id, Score: -score}) // bm25 is smaller-is-better
	}
	return hits, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func sortHitsDesc(hits []Hit) {
	for i := 1; i < len(hits); i++ {
		j := i
		for j > 0 && hits[j].Score > hits[j-1].Score {
			hits[j], hits[j-1] = hits[j-1], hits[j]
			j--
		}
	}
}
