package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/MatusOllah/slogcolor"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	_ "modernc.org/sqlite"

	"github.com/torfjord/skald/internal/rag"
)

func main() {

	_ = godotenv.Load()

	slog.SetDefault(slog.New(slogcolor.NewHandler(os.Stderr, slogcolor.DefaultOptions)))

	cmd := &cli.Command{
		Name:  "skald",
		Usage: "index source trees into a sqlite knowledge base and answer questions against it",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Value:   "./skald.db",
				Sources: cli.EnvVars("SKALD_DB"),
			},

			&cli.StringFlag{
				Name:    "bellman-url",
				Sources: cli.EnvVars("SKALD_BELLMAN_URL"),
			},
			&cli.StringFlag{
				Name:    "bellman-key",
				Sources: cli.EnvVars("SKALD_BELLMAN_KEY"),
			},
			&cli.StringFlag{
				Name:    "bellman-key-name",
				Value:   "skald",
				Sources: cli.EnvVars("SKALD_BELLMAN_KEY_NAME"),
			},

			&cli.StringFlag{
				Name:    "vertexai-credential",
				Sources: cli.EnvVars("SKALD_VERTEXAI_CREDENTIAL"),
			},
			&cli.StringFlag{
				Name:    "vertexai-project",
				Sources: cli.EnvVars("SKALD_VERTEXAI_PROJECT"),
			},
			&cli.StringFlag{
				Name:    "vertexai-region",
				Sources: cli.EnvVars("SKALD_VERTEXAI_REGION"),
			},

			&cli.StringFlag{
				Name:    "openai-key",
				Sources: cli.EnvVars("SKALD_OPENAI_KEY"),
			},
			&cli.StringFlag{
				Name:    "anthropic-key",
				Sources: cli.EnvVars("SKALD_ANTHROPIC_KEY"),
			},
			&cli.StringFlag{
				Name:    "voyageai-key",
				Sources: cli.EnvVars("SKALD_VOYAGEAI_KEY"),
			},

			&cli.StringFlag{
				Name:    "embed-model",
				Value:   "OpenAI/text-embedding-3-small",
				Sources: cli.EnvVars("SKALD_EMBED_MODEL"),
			},
			&cli.StringFlag{
				Name:    "llm-model",
				Value:   "OpenAI/gpt-4o-mini",
				Sources: cli.EnvVars("SKALD_LLM_MODEL"),
			},

			&cli.BoolFlag{
				Name:    "verbose",
				Sources: cli.EnvVars("SKALD_VERBOSE"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {

			if cmd.Bool("verbose") {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}

			return ctx, nil
		},

		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "index a directory tree into the knowledge base",
				ArgsUsage: "<directory>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "metadata",
						Usage:   "opaque metadata stored with each source file",
						Sources: cli.EnvVars("SKALD_METADATA"),
					},
					&cli.IntFlag{
						Name:    "chunk-size",
						Usage:   "maximum chunk size in characters",
						Value:   1000,
						Sources: cli.EnvVars("SKALD_CHUNK_SIZE"),
					},
					&cli.IntFlag{
						Name:    "chunk-overlap",
						Usage:   "characters shared between consecutive chunks",
						Value:   200,
						Sources: cli.EnvVars("SKALD_CHUNK_OVERLAP"),
					},
					&cli.StringFlag{
						Name:    "filter",
						Usage:   "semicolon separated glob patterns, e.g. \"*.go; *.md\"",
						Sources: cli.EnvVars("SKALD_FILTER"),
					},
					&cli.BoolFlag{
						Name:  "clear",
						Usage: "empty the knowledge base before indexing",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {

					dir := cmd.Args().First()
					if dir == "" {
						return fmt.Errorf("directory argument is required")
					}

					cfg, err := rag.LoadConf(ctx, cmd)
					if err != nil {
						return err
					}
					defer cfg.Close()

					count, err := rag.Index(cfg, rag.IndexRequest{
						Directory:    dir,
						Metadata:     cmd.String("metadata"),
						ChunkSize:    int(cmd.Int("chunk-size")),
						ChunkOverlap: int(cmd.Int("chunk-overlap")),
						FileFilters:  rag.ParseFileFilter(cmd.String("filter")),
						Clear:        cmd.Bool("clear"),
						OnProgress: func(p rag.Progress) {
							slog.Default().Info("indexing",
								"file", p.FilePath,
								"file_index", p.FileIndex,
								"files_total", p.FilesTotal,
								"chunk_index", p.ChunkIndex,
								"chunks_in_file", p.ChunksInFile,
								"chunks_total_completed", p.ChunksTotalCompleted,
							)
						},
					})
					if err != nil {
						return err
					}

					fmt.Println(count)
					return nil
				},
			},

			{
				Name:      "search",
				Usage:     "retrieve the most relevant fragments for a question",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Usage:   "the maximum number of fragments to return",
						Value:   5,
						Sources: cli.EnvVars("SKALD_LIMIT"),
					},
					&cli.FloatFlag{
						Name:    "min-relevance",
						Usage:   "discard fragments scoring below this",
						Value:   0.0,
						Sources: cli.EnvVars("SKALD_MIN_RELEVANCE"),
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "print results as a JSON array instead of a context string",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {

					if _, err := os.Stat(cmd.String("db")); err != nil {
						return fmt.Errorf("database file does not exist: %s", cmd.String("db"))
					}

					cfg, err := rag.LoadConf(ctx, cmd)
					if err != nil {
						return err
					}
					defer cfg.Close()

					question := strings.Join(cmd.Args().Slice(), " ")

					results, err := rag.Search(cfg, question, int(cmd.Int("limit")), cmd.Float("min-relevance"))
					if err != nil {
						return err
					}

					if cmd.Bool("json") {
						out, err := rag.ResultsJSON(results)
						if err != nil {
							return err
						}
						fmt.Println(out)
						return nil
					}

					fmt.Print(rag.FormatContext(results))
					return nil
				},
			},

			{
				Name:      "ask",
				Usage:     "answer a question from the knowledge base",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Value:   5,
						Sources: cli.EnvVars("SKALD_LIMIT"),
					},
					&cli.FloatFlag{
						Name:    "min-relevance",
						Value:   0.0,
						Sources: cli.EnvVars("SKALD_MIN_RELEVANCE"),
					},
					&cli.StringFlag{
						Name:    "system-prompt",
						Value:   "You are a helpful assistant. Answer the question using only the provided documents.",
						Sources: cli.EnvVars("SKALD_SYSTEM_PROMPT"),
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {

					if _, err := os.Stat(cmd.String("db")); err != nil {
						return fmt.Errorf("database file does not exist: %s", cmd.String("db"))
					}

					cfg, err := rag.LoadConf(ctx, cmd)
					if err != nil {
						return err
					}
					defer cfg.Close()

					question := strings.Join(cmd.Args().Slice(), " ")

					answer, results, err := rag.Ask(cfg, question, int(cmd.Int("limit")), cmd.Float("min-relevance"))
					if err != nil {
						return err
					}

					slog.Default().Debug("answered",
						"confidence", answer.ConfidenceScore,
						"fragments", len(results),
						"input-tokens", answer.Metadata.InputTokens,
						"output-tokens", answer.Metadata.OutputTokens,
					)

					fmt.Println(answer.Answer)
					return nil
				},
			},

			{
				Name:  "inspect",
				Usage: "show the index configuration and row counts",
				Action: func(ctx context.Context, cmd *cli.Command) error {

					if _, err := os.Stat(cmd.String("db")); err != nil {
						return fmt.Errorf("database file does not exist: %s", cmd.String("db"))
					}

					cfg, err := rag.LoadConf(ctx, cmd)
					if err != nil {
						return err
					}
					defer cfg.Close()

					provider, model, err := cfg.Dao.IndexConfig(ctx)
					if err != nil {
						return err
					}

					files, fragments, err := cfg.Dao.Counts(ctx)
					if err != nil {
						return err
					}

					fmt.Printf("provider:  %s\nmodel:     %s\nfiles:     %d\nfragments: %d\n",
						provider, model, files, fragments)
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Default().Error("got error running skald", "err", err)
		os.Exit(1)
	}
}
