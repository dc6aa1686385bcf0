// Package db is the persistence layer of the index: schema DDL and a small
// DAO over database/sql. The sqlite driver is registered by the importer.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyIndex = errors.New("rag index is empty, no source_files rows found")
var ErrMixedModelIndex = errors.New("mixed-model rag index is not supported, multiple provider/model pairs found in source_files")

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// WithTx returns the same query set bound to a transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// EnsureSchema creates the tables if missing and turns on foreign key
// enforcement for the connection.
func EnsureSchema(ctx context.Context, conn DBTX) error {
	for _, stmt := range Schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SourceFile is one indexed document.
type SourceFile struct {
	ID           int64
	FilePath     string
	Provider     string
	Model        string
	LastModified int64
	Metadata     string
}

// Fragment is one persisted chunk with its raw embedding blob.
type Fragment struct {
	ID         int64
	FileID     int64
	ChunkIndex int
	Content    string
	Embedding  []byte
}

// UpsertSourceFile inserts or updates the row for a path and returns its id.
// The id is stable across re-indexing since the conflict resolves to an
// update, not a delete-and-reinsert.
func (q *Queries) UpsertSourceFile(ctx context.Context, filePath, provider, model string, lastModified int64, metadata string) (int64, error) {

	const upsert = `
INSERT INTO source_files (file_path, provider, model, last_modified, metadata)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (file_path) DO
	UPDATE
	SET provider = excluded.provider,
		model = excluded.model,
		last_modified = excluded.last_modified,
		metadata = excluded.metadata
RETURNING id
`

	row := q.db.QueryRowContext(ctx, upsert, filePath, provider, model, lastModified, metadata)

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert source file: %w", err)
	}
	return id, nil
}

// DeleteFragmentsForFile drops a file's previous fragments so a re-index can
// write a fresh, gap-free chunk sequence.
func (q *Queries) DeleteFragmentsForFile(ctx context.Context, fileID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM fragments WHERE file_id = ?`, fileID)
	if err != nil {
		return fmt.Errorf("delete fragments for file %d: %w", fileID, err)
	}
	return nil
}

func (q *Queries) InsertFragment(ctx context.Context, fileID int64, chunkIndex int, content string, embedding []byte) (int64, error) {

	const insert = `
INSERT INTO fragments (file_id, chunk_index, content, embedding)
VALUES (?, ?, ?, ?)
RETURNING id
`

	row := q.db.QueryRowContext(ctx, insert, fileID, chunkIndex, content, embedding)

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("insert fragment: %w", err)
	}
	return id, nil
}

// ClearAll empties both tables and resets their autoincrement counters. Run
// it inside a transaction so a failure leaves the index untouched.
func (q *Queries) ClearAll(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM fragments`); err != nil {
		return fmt.Errorf("clear fragments: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, `DELETE FROM source_files`); err != nil {
		return fmt.Errorf("clear source_files: %w", err)
	}
	// sqlite_sequence does not exist until the first AUTOINCREMENT insert, so
	// clearing a never-written database has no counters to reset.
	if _, err := q.db.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name IN ('fragments', 'source_files')`); err != nil && !strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("reset autoincrement counters: %w", err)
	}
	return nil
}

// IndexConfig returns the one provider/model pair the whole index was built
// with. Zero pairs means an empty index, more than one means the database
// mixes incompatible embeddings; both are configuration errors.
func (q *Queries) IndexConfig(ctx context.Context) (provider string, model string, err error) {

	rows, err := q.db.QueryContext(ctx, `SELECT DISTINCT provider, model FROM source_files`)
	if err != nil {
		return "", "", fmt.Errorf("query index configuration: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var p, m string
		if err := rows.Scan(&p, &m); err != nil {
			return "", "", err
		}
		n++
		if n == 1 {
			provider, model = p, m
		}
	}
	if err := rows.Err(); err != nil {
		return "", "", err
	}

	if n == 0 {
		return "", "", ErrEmptyIndex
	}
	if n > 1 {
		return "", "", ErrMixedModelIndex
	}
	return provider, model, nil
}

// ListFragments returns every fragment in id order, embedding blobs included.
// Retrieval scans the whole table.
func (q *Queries) ListFragments(ctx context.Context) ([]Fragment, error) {

	const list = `
SELECT id, file_id, chunk_index, content, embedding
FROM fragments
ORDER BY id
`

	rows, err := q.db.QueryContext(ctx, list)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Fragment
	for rows.Next() {
		var i Fragment
		if err := rows.Scan(
			&i.ID,
			&i.FileID,
			&i.ChunkIndex,
			&i.Content,
			&i.Embedding,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// SourcePath resolves a file id to its path for result labelling.
func (q *Queries) SourcePath(ctx context.Context, fileID int64) (string, error) {
	row := q.db.QueryRowContext(ctx, `SELECT file_path FROM source_files WHERE id = ?`, fileID)

	var path string
	if err := row.Scan(&path); err != nil {
		return "", err
	}
	return path, nil
}

// Counts reports table sizes for the inspect command.
func (q *Queries) Counts(ctx context.Context) (files int64, fragments int64, err error) {
	row := q.db.QueryRowContext(ctx, `SELECT count(*) FROM source_files`)
	if err := row.Scan(&files); err != nil {
		return 0, 0, err
	}
	row = q.db.QueryRowContext(ctx, `SELECT count(*) FROM fragments`)
	if err := row.Scan(&fragments); err != nil {
		return 0, 0, err
	}
	return files, fragments, nil
}
