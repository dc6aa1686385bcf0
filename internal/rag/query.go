package rag

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"
	"github.com/modfin/bellman/models/embed"
	"github.com/modfin/bellman/prompt"
	"github.com/modfin/bellman/schema"
	"github.com/modfin/henry/slicez"

	"github.com/torfjord/skald/internal/db/vec"
)

// Result is one retrieved fragment with its human-readable source label, as
// exposed to callers and serialized by ResultsJSON.
type Result struct {
	Source string  `json:"source"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

// Search embeds the question with the model the index was built with and
// returns the ranked fragments with resolved source labels.
func Search(cfg *Conf, question string, limit int, minRelevance float64) ([]Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("query text is empty")
	}

	provider, modelName, err := cfg.Dao.IndexConfig(cfg.Ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect index configuration: %w", err)
	}

	if !cfg.Embedder.HasProvider(provider) {
		return nil, fmt.Errorf("provider '%s': %w", provider, ErrNoCredentials)
	}

	model := embed.Model{
		Provider: provider,
		Name:     modelName,
		Type:     embed.TypeQuery,
	}
	slog.Default().Debug("query embedding", "provider", provider, "model", modelName,
		"limit", limit, "min_relevance", minRelevance)

	vector, err := cfg.Embedder.Embed(embed.Request{
		Ctx:   cfg.Ctx,
		Model: model,
		Text:  question,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty embedding vector for query")
	}

	found, err := cfg.FindMostRelevantChunks(vec.Float64sTo32s(vector), limit, minRelevance)
	if err != nil {
		return nil, fmt.Errorf("failed to search fragments: %w", err)
	}

	// Resolve fragment file ids to paths for the source labels, one lookup
	// per distinct file.
	paths := map[int64]string{}
	for _, r := range found {
		if _, ok := paths[r.FileID]; ok {
			continue
		}
		path, err := cfg.Dao.SourcePath(cfg.Ctx, r.FileID)
		if err != nil {
			slog.Default().Warn("failed to resolve source path", "file_id", r.FileID, "err", err)
			continue
		}
		paths[r.FileID] = path
	}

	return slicez.Map(found, func(r SearchResult) Result {
		source, ok := paths[r.FileID]
		if !ok {
			source = fmt.Sprintf("file_id=%d", r.FileID)
		}
		return Result{
			Source: source,
			Score:  r.Score,
			Text:   r.Content,
		}
	}), nil
}

// FormatContext renders results as one context block per fragment, in rank
// order.
func FormatContext(results []Result) string {
	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "[Source: %s (Score: %.4f)]\n", r.Source, r.Score)
		sb.WriteString(r.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// ResultsJSON serializes results as an ordered JSON array of
// {source, score, text} records.
func ResultsJSON(results []Result) (string, error) {
	if results == nil {
		results = []Result{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	return string(data), nil
}

// Ask retrieves context for the question and has the configured LLM answer
// from it, returning a structured answer with a confidence score.
func Ask(cfg *Conf, question string, limit int, minRelevance float64) (Answer, []Result, error) {
	results, err := Search(cfg, question, limit, minRelevance)
	if err != nil {
		return Answer{}, nil, fmt.Errorf("failed to search: %w", err)
	}

	llm, err := cfg.Proxy.Gen(cfg.LLMModel)
	if err != nil {
		return Answer{}, nil, fmt.Errorf("failed to create llm: %w", err)
	}

	prompts := slicez.Map(results, func(r Result) prompt.Prompt {
		return prompt.Prompt{
			Role: prompt.UserRole,
			Text: fmt.Sprintf("<document source=%q score=%.4f> %s </document>", r.Source, r.Score, r.Text),
		}
	})

	res, err := llm.
		System(cfg.SystemPrompt).
		Output(schema.From(Answer{})).
		Prompt(append(prompts, prompt.Prompt{
			Role: prompt.UserRole,
			Text: fmt.Sprintf("<user-question> %s </user-question>", question),
		})...)
	if err != nil {
		return Answer{}, nil, fmt.Errorf("failed to generate response: %w", err)
	}

	var ans Answer
	err = res.Unmarshal(&ans)
	if err != nil {
		return Answer{}, nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	ans.Metadata = res.Metadata

	return ans, results, nil
}
