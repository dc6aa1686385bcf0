package rag

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modfin/bellman/models/embed"

	"github.com/torfjord/skald/internal/chunk"
	"github.com/torfjord/skald/internal/db"
	"github.com/torfjord/skald/internal/db/vec"
	"github.com/torfjord/skald/internal/loader"
)

var ErrNoCredentials = errors.New("no resolvable credentials for provider")

// Progress is the throttled notification emitted while an indexing run is in
// flight. Chunk indices are 1-based for display.
type Progress struct {
	FilePath             string `json:"file_path"`
	FilesTotal           int    `json:"files_total"`
	FileIndex            int    `json:"file_index"`
	ChunkIndex           int    `json:"chunk_index"`
	ChunksInFile         int    `json:"chunks_in_file"`
	ChunksTotalCompleted int    `json:"chunks_total_completed"`
}

// IndexRequest carries everything one indexing run needs beyond the shared
// configuration.
type IndexRequest struct {
	Directory    string
	Metadata     string
	ChunkSize    int
	ChunkOverlap int
	// FileFilters are glob patterns on file names. Empty means the default
	// extension allow-list.
	FileFilters []string
	Clear       bool

	// OnProgress, when set, receives at most one notification per
	// ProgressInterval (default 10s).
	OnProgress       func(Progress)
	ProgressInterval time.Duration
}

// ParseFileFilter splits a semicolon-separated pattern list like
// "*.go; *.md" into individual globs.
func ParseFileFilter(filter string) []string {
	var filters []string
	for _, pattern := range strings.Split(filter, ";") {
		if trimmed := strings.TrimSpace(pattern); trimmed != "" {
			filters = append(filters, trimmed)
		}
	}
	return filters
}

// Index runs one full ingestion pass: scan, chunk, embed, persist. All
// file and fragment writes happen in a single transaction; a failed commit
// discards the whole run. The returned count is the number of fragments
// written. Preconditions fail before anything is written.
func Index(cfg *Conf, req IndexRequest) (int, error) {
	ctx := cfg.Ctx
	logger := slog.Default()

	if req.Directory == "" {
		return 0, fmt.Errorf("directory path is required")
	}
	if cfg.EmbedModel.Provider == "" {
		return 0, fmt.Errorf("embedding provider is required")
	}
	if cfg.EmbedModel.Name == "" {
		return 0, fmt.Errorf("embedding model is required")
	}
	if req.ChunkSize <= 0 {
		return 0, fmt.Errorf("chunk size must be positive, got %d", req.ChunkSize)
	}
	if !cfg.Embedder.HasProvider(cfg.EmbedModel.Provider) {
		return 0, fmt.Errorf("provider '%s': %w", cfg.EmbedModel.Provider, ErrNoCredentials)
	}

	if req.ProgressInterval <= 0 {
		req.ProgressInterval = 10 * time.Second
	}

	// Schema creation waits until every precondition has passed, so a failed
	// run cannot leave behind a freshly materialized database file.
	if err := db.EnsureSchema(ctx, cfg.Conn); err != nil {
		return 0, err
	}

	if req.Clear {
		tx, err := cfg.Conn.BeginTx(ctx, nil)
		if err != nil {
			return 0, fmt.Errorf("failed to begin clear transaction: %w", err)
		}
		if err := cfg.Dao.WithTx(tx).ClearAll(ctx); err != nil {
			tx.Rollback()
			return 0, err
		}
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("failed to commit clear transaction: %w", err)
		}
		logger.Debug("cleared existing index")
	}

	files, err := loader.Scan(req.Directory, req.FileFilters)
	if err != nil {
		return 0, fmt.Errorf("failed to scan directory %s: %w", req.Directory, err)
	}
	logger.Debug("scanned directory", "dir", req.Directory, "files", len(files), "filters", req.FileFilters)

	if len(files) == 0 {
		logger.Warn("no files found in directory", "dir", req.Directory)
		return 0, nil
	}

	tx, err := cfg.Conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	dao := cfg.Dao.WithTx(tx)

	totalChunks := 0
	lastProgress := time.Now()

	for fileIndex, filePath := range files {
		logger := logger.With("file", filePath)

		content := loader.ReadText(filePath)
		if content == "" {
			logger.Debug("skipping empty or unreadable file")
			continue
		}

		fileID, err := dao.UpsertSourceFile(ctx,
			filePath,
			cfg.EmbedModel.Provider,
			cfg.EmbedModel.Name,
			time.Now().Unix(),
			req.Metadata,
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to register source file %s: %w", filePath, err)
		}

		// A re-indexed file replaces its old fragments within the same
		// transaction, so chunk indices start from zero again.
		if err := dao.DeleteFragmentsForFile(ctx, fileID); err != nil {
			tx.Rollback()
			return 0, err
		}

		fileType := loader.Classify(filePath)
		chunks := chunk.Split(content, req.ChunkSize, req.ChunkOverlap, fileType)
		logger.Debug("chunked file", "type", fileType.String(), "chunks", len(chunks))

		insertedForFile := 0
		for i, piece := range chunks {

			if req.OnProgress != nil && time.Since(lastProgress) >= req.ProgressInterval {
				req.OnProgress(Progress{
					FilePath:             filePath,
					FilesTotal:           len(files),
					FileIndex:            fileIndex + 1,
					ChunkIndex:           i + 1,
					ChunksInFile:         len(chunks),
					ChunksTotalCompleted: totalChunks,
				})
				lastProgress = time.Now()
			}

			// One embed call per chunk, synchronous. A provider failure for
			// one chunk skips just that chunk; the rest of the file goes on.
			vector, err := cfg.Embedder.Embed(embed.Request{
				Ctx:   ctx,
				Model: cfg.EmbedModel,
				Text:  piece,
			})
			if err != nil {
				logger.Warn("embedding failed for chunk, skipping", "chunk", i, "err", err)
				continue
			}
			if len(vector) == 0 {
				logger.Warn("empty embedding vector for chunk, skipping", "chunk", i)
				continue
			}

			_, err = dao.InsertFragment(ctx, fileID, i, piece, vec.EncodeFloat32s(vec.Float64sTo32s(vector)))
			if err != nil {
				tx.Rollback()
				return 0, fmt.Errorf("failed to insert chunk %d of %s: %w", i, filePath, err)
			}

			totalChunks++
			insertedForFile++
		}

		logger.Debug("indexed file", "fragments", insertedForFile)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit indexing transaction: %w", err)
	}

	logger.Info("indexing complete", "files", len(files), "fragments", totalChunks)
	return totalChunks, nil
}
