// Package rag holds the indexing and query pipelines: scanning, chunking and
// embedding documents into the sqlite store, and ranked retrieval back out of
// it.
package rag

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modfin/bellman/models/embed"
	"github.com/modfin/bellman/models/gen"
	"github.com/modfin/clix"
	"github.com/urfave/cli/v3"

	"github.com/torfjord/skald/internal/db"
)

type Conf struct {
	Ctx      context.Context
	Conn     *sql.DB
	Dao      *db.Queries
	Embedder Embedder
	Proxy    *Proxy

	EmbedModel embed.Model
	LLMModel   gen.Model

	SystemPrompt string
}

// LoadConf parses credentials and model flags and opens the database handle.
// Opening is lazy: nothing touches the file until the first statement runs,
// so a run that fails its preconditions leaves no database behind. Each
// invocation owns its connection exclusively until Close.
func LoadConf(ctx context.Context, cmd *cli.Command) (*Conf, error) {
	var err error
	var conf Conf
	conf.Ctx = ctx

	credentials := clix.ParseCommand[APICredentials](cmd)
	conf.Proxy, err = NewProxy(credentials, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy: %w", err)
	}
	conf.Embedder = conf.Proxy

	dbPath := cmd.String("db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database file, %s: %w", "file://"+dbPath, err)
	}
	// One invocation, one connection. Keeps the foreign-key pragma and the
	// write transaction on the same handle.
	conn.SetMaxOpenConns(1)
	conf.Conn = conn
	conf.Dao = db.New(conn)

	embeddingModel := cmd.String("embed-model")
	provider, modelName, _ := strings.Cut(embeddingModel, "/")
	slog.Default().Debug("embed model", "provider", provider, "model", modelName)
	conf.EmbedModel = embed.Model{
		Provider: provider,
		Name:     modelName,
	}

	llmModel := cmd.String("llm-model")
	provider, modelName, _ = strings.Cut(llmModel, "/")
	slog.Default().Debug("llm model", "provider", provider, "model", modelName)
	conf.LLMModel = gen.Model{
		Provider: provider,
		Name:     modelName,
	}

	conf.SystemPrompt = cmd.String("system-prompt")

	return &conf, nil
}

// Close releases the database handle. The connection is never shared or
// pooled across invocations.
func (c *Conf) Close() error {
	if c.Conn == nil {
		return nil
	}
	return c.Conn.Close()
}
