package chunk

import (
	"strings"
	"testing"
)

func TestSplitMarkdownHeaderStartsFreshChunk(t *testing.T) {
	text := "intro paragraph text here\n# Title\nbody text under the header"

	got := Split(text, 30, 0, Markdown)
	want := []string{
		"intro paragraph text here\n",
		"# Title\n",
		"body text under the header",
	}

	if len(got) != len(want) {
		t.Fatalf("got %d chunks %q, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitMarkdownHeaderDropsOverlap(t *testing.T) {
	text := "some leading paragraph with enough text to matter\n## Section\nand the section body follows here"

	chunks := Split(text, 40, 20, Markdown)

	for i, chunk := range chunks {
		if strings.Contains(chunk, "## Section") && !strings.HasPrefix(chunk, "## Section") {
			t.Errorf("chunk %d carries overlap across a header: %q", i, chunk)
		}
	}
}

func TestSplitMarkdownTableMayOverflow(t *testing.T) {
	table := "| h1 | h2 |\n|----|----|\n| a | b |\n| c | d |"
	if len(table) <= 40 {
		t.Fatalf("test table must exceed the ceiling, is %d chars", len(table))
	}

	got := Split(table, 40, 0, Markdown)

	if len(got) != 1 {
		t.Fatalf("table was severed into %d chunks: %q", len(got), got)
	}
	if len(got[0]) > 40+40/4 {
		t.Errorf("table chunk has %d chars, relaxed ceiling is %d", len(got[0]), 40+40/4)
	}
}

func TestSplitMarkdownProseCeilingIsStrict(t *testing.T) {
	text := strings.Repeat("a paragraph of ordinary prose, nothing tabular about it.\n\n", 20)

	for _, overlap := range []int{0, 15} {
		chunks := Split(text, 80, overlap, Markdown)
		for i, chunk := range chunks {
			if len(chunk) > 80 {
				t.Errorf("overlap=%d: chunk %d has %d chars, ceiling is 80", overlap, i, len(chunk))
			}
		}
	}
}

func TestSplitMarkdownOversizedLine(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 40))

	got := Split(text, 50, 0, Markdown)

	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	for i, chunk := range got {
		if len(chunk) > 50 {
			t.Errorf("chunk %d has %d chars, ceiling is 50", i, len(chunk))
		}
	}
	if joined := strings.Join(got, ""); joined != text {
		t.Errorf("chunks do not reassemble the line:\n got %q\nwant %q", joined, text)
	}
}

func TestIsMarkdownHeader(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"# Title", true},
		{"###### deep", true},
		{"####### too deep", false},
		{"#nospace", false},
		{"  ## indented", true},
		{"#", true},
		{"plain text", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isMarkdownHeader(tt.line); got != tt.want {
			t.Errorf("isMarkdownHeader(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}
