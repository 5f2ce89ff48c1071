// Package storage provides the SQLite implementation of the Store interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fitcoach/kotae/internal/models"
)

const metaKey = "index_meta"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		category TEXT NOT NULL,
		content TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		start_offset INTEGER NOT NULL,
		end_offset INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id, chunk_index);
	CREATE INDEX IF NOT EXISTS idx_chunks_category ON chunks(category);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// BatchCreateChunks inserts chunks in a single transaction.
func (s *SQLiteStore) BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, source_id, category, content, chunk_index, start_offset, end_offset)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ch := range chunks {
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.SourceID, string(ch.Category), ch.Text,
			ch.ChunkIndex, ch.StartOffset, ch.EndOffset,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert chunk %s: %w", ch.ID, err)
		}
	}
	return tx.Commit()
}

// GetChunk returns a chunk by ID.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*models.Chunk, error) {
	var ch models.Chunk
	var category string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source_id, category, content, chunk_index, start_offset, end_offset
		 FROM chunks WHERE id = ?`, id,
	).Scan(&ch.ID, &ch.SourceID, &category, &ch.Text, &ch.ChunkIndex, &ch.StartOffset, &ch.EndOffset)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chunk not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	ch.Category = models.Category(category)
	return &ch, nil
}

// ListChunks returns all chunks ordered by (source_id, chunk_index).
func (s *SQLiteStore) ListChunks(ctx context.Context) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, category, content, chunk_index, start_offset, end_offset
		 FROM chunks ORDER BY source_id, chunk_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		var ch models.Chunk
		var category string
		if err := rows.Scan(&ch.ID, &ch.SourceID, &category, &ch.Text,
			&ch.ChunkIndex, &ch.StartOffset, &ch.EndOffset); err != nil {
			return nil, err
		}
		ch.Category = models.Category(category)
		chunks = append(chunks, &ch)
	}
	return chunks, rows.Err()
}

// CountChunks returns the number of stored chunks.
func (s *SQLiteStore) CountChunks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// CountSources returns the number of distinct source documents.
func (s *SQLiteStore) CountSources(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT source_id) FROM chunks`).Scan(&n)
	return n, err
}

// SetMeta stores the build metadata, replacing any previous record.
func (s *SQLiteStore) SetMeta(ctx context.Context, meta *IndexMeta) error {
	if meta.BuiltAt.IsZero() {
		meta.BuiltAt = time.Now().UTC()
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		metaKey, string(data))
	return err
}

// GetMeta returns the build metadata, or an error when the artifact has none.
func (s *SQLiteStore) GetMeta(ctx context.Context) (*IndexMeta, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaKey).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("index meta not found")
	}
	if err != nil {
		return nil, err
	}
	var meta IndexMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	return &meta, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
