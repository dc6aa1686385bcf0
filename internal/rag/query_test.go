package rag

import (
	"errors"
	"strings"
	"testing"

	"github.com/modfin/bellman/models/embed"

	"github.com/torfjord/skald/internal/db"
)

func TestSearchRetrievesBySimilarity(t *testing.T) {
	// Two documents on orthogonal axes; the query lands on the first.
	embedder := &fakeEmbedder{fn: func(req embed.Request) ([]float64, error) {
		switch {
		case strings.Contains(req.Text, "alpha"):
			return []float64{1, 0}, nil
		default:
			return []float64{0, 1}, nil
		}
	}}
	cfg := testConf(t, embedder)

	dir := t.TempDir()
	alphaPath := writeDoc(t, dir, "a.txt", "alpha document text")
	writeDoc(t, dir, "b.txt", "beta document text")

	if _, err := Index(cfg, IndexRequest{Directory: dir, ChunkSize: 1000}); err != nil {
		t.Fatal(err)
	}

	results, err := Search(cfg, "what about alpha?", 5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Source != alphaPath {
		t.Errorf("top source = %q, want %q", results[0].Source, alphaPath)
	}
	if results[0].Score < 0.999 {
		t.Errorf("top score = %v, want ~1", results[0].Score)
	}
	if results[0].Text != "alpha document text" {
		t.Errorf("top text = %q", results[0].Text)
	}

	t.Run("min relevance drops the orthogonal document", func(t *testing.T) {
		results, err := Search(cfg, "what about alpha?", 5, 0.5)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 1 {
			t.Fatalf("got %d results, want 1", len(results))
		}
	})
}

func TestSearchPreconditions(t *testing.T) {
	embedder := &fakeEmbedder{fn: func(req embed.Request) ([]float64, error) {
		return []float64{1}, nil
	}}

	t.Run("blank question", func(t *testing.T) {
		cfg := testConf(t, embedder)
		if _, err := Search(cfg, "   ", 5, 0); err == nil {
			t.Error("expected error for blank question")
		}
	})

	t.Run("empty index", func(t *testing.T) {
		cfg := testConf(t, embedder)
		_, err := Search(cfg, "anything", 5, 0)
		if !errors.Is(err, db.ErrEmptyIndex) {
			t.Errorf("got %v, want ErrEmptyIndex", err)
		}
	})

	t.Run("provider credentials gone since indexing", func(t *testing.T) {
		cfg := testConf(t, embedder)
		dir := t.TempDir()
		writeDoc(t, dir, "a.txt", "some indexed text")
		if _, err := Index(cfg, IndexRequest{Directory: dir, ChunkSize: 1000}); err != nil {
			t.Fatal(err)
		}

		cfg.Embedder = &fakeEmbedder{
			fn:        embedder.fn,
			providers: map[string]bool{},
		}
		_, err := Search(cfg, "anything", 5, 0)
		if !errors.Is(err, ErrNoCredentials) {
			t.Errorf("got %v, want ErrNoCredentials", err)
		}
	})
}

func TestFormatContext(t *testing.T) {
	results := []Result{
		{Source: "/src/a.txt", Score: 0.98765, Text: "first body"},
		{Source: "/src/b.txt", Score: 0.5, Text: "second body"},
	}

	got := FormatContext(results)
	want := "[Source: /src/a.txt (Score: 0.9877)]\nfirst body\n\n" +
		"[Source: /src/b.txt (Score: 0.5000)]\nsecond body\n\n"

	if got != want {
		t.Errorf("FormatContext =\n%q\nwant\n%q", got, want)
	}

	if FormatContext(nil) != "" {
		t.Error("FormatContext(nil) should be empty")
	}
}

func TestResultsJSON(t *testing.T) {
	got, err := ResultsJSON(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "[]" {
		t.Errorf("ResultsJSON(nil) = %q, want []", got)
	}

	got, err = ResultsJSON([]Result{{Source: "a.txt", Score: 1, Text: "body"}})
	if err != nil {
		t.Fatal(err)
	}
	for _, fragment := range []string{`"source":"a.txt"`, `"score":1`, `"text":"body"`} {
		if !strings.Contains(got, fragment) {
			t.Errorf("ResultsJSON = %s, missing %s", got, fragment)
		}
	}
}
