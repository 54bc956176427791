package retrieval

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"hearth/internal/logging"
)

// SQLiteVecIndex is a VectorIndex backed by the sqlite-vec `vec0` virtual
// table, sharing the Memory Store's database connection. Grounded on
// internal/store/vector_store.go (vec_index table, cosine distance
// ordering) and internal/store/init_vec.go (cgo extension registration,
// see internal/store/vecext.go in this module).
type SQLiteVecIndex struct {
	db  *sql.DB
	dim int
}

// NewSQLiteVecIndex creates the vec0 virtual table (if absent) for
// embeddings of width dim and returns an index over it.
func NewSQLiteVecIndex(db *sql.DB, dim int) (*SQLiteVecIndex, error) {
	stmt := fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS semantic_index USING vec0(embedding float[%d], chunk_id TEXT, document TEXT, metadata TEXT)",
		dim,
	)
	if _, err := db.Exec(stmt); err != nil {
		return nil, fmt.Errorf("retrieval: create vec0 index: %w", err)
	}
	return &SQLiteVecIndex{db: db, dim: dim}, nil
}

// Upsert implements VectorIndex. vec0 has no native upsert, so a prior row
// for the same chunk id is deleted first.
func (idx *SQLiteVecIndex) Upsert(ctx context.Context, id, document string, vector []float32, metadata map[string]string) error {
	if len(vector) != idx.dim {
		return fmt.Errorf("retrieval: vector has %d dimensions, index expects %d", len(vector), idx.dim)
	}

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("retrieval: marshal metadata: %w", err)
	}

	if _, err := idx.db.ExecContext(ctx, `DELETE FROM semantic_index WHERE chunk_id = ?`, id); err != nil {
		return fmt.Errorf("retrieval: clear prior chunk: %w", err)
	}

	_, err = idx.db.ExecContext(ctx,
		`INSERT INTO semantic_index (embedding, chunk_id, document, metadata) VALUES (?, ?, ?, ?)`,
		encodeVector(vector), id, document, string(metaJSON),
	)
	if err != nil {
		return fmt.Errorf("retrieval: upsert: %w", err)
	}
	return nil
}

// Query implements VectorIndex, returning the k nearest chunks by cosine
// distance.
func (idx *SQLiteVecIndex) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if len(vector) != idx.dim {
		return nil, fmt.Errorf("retrieval: query vector has %d dimensions, index expects %d", len(vector), idx.dim)
	}

	rows, err := idx.db.QueryContext(ctx,
		`SELECT chunk_id, document, vec_distance_cosine(embedding, ?) AS dist
		 FROM semantic_index ORDER BY dist ASC LIMIT ?`,
		encodeVector(vector), k,
	)
	if err != nil {
		return nil, fmt.Errorf("retrieval: query: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Document, &m.Distance); err != nil {
			logging.Get(logging.CategoryRetrieval).Warn("retrieval: scan row failed: %v", err)
			continue
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func encodeVector(v []float32) []byte {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}
