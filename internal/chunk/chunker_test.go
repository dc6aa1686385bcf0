package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitDegenerateInputs(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxSize  int
		overlap  int
		fileType FileType
		want     []string
	}{
		{
			name:    "empty text yields no chunks",
			text:    "",
			maxSize: 10,
			overlap: 2,
			want:    nil,
		},
		{
			name:    "non-positive max size yields whole text",
			text:    "some text that is quite long",
			maxSize: 0,
			overlap: 2,
			want:    []string{"some text that is quite long"},
		},
		{
			name:    "text within max size yields one chunk",
			text:    "short",
			maxSize: 10,
			overlap: 2,
			want:    []string{"short"},
		},
		{
			name:    "overlap at least max size is clamped",
			text:    "aaaa bbbb cccc dddd",
			maxSize: 8,
			overlap: 8,
			want:    nil, // only the ceiling is asserted
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, tt.maxSize, tt.overlap, tt.fileType)

			if tt.want != nil || tt.text == "" {
				if len(got) != len(tt.want) {
					t.Fatalf("got %d chunks %q, want %d", len(got), got, len(tt.want))
				}
				for i := range got {
					if got[i] != tt.want[i] {
						t.Errorf("chunk %d = %q, want %q", i, got[i], tt.want[i])
					}
				}
				return
			}

			for i, chunk := range got {
				if tt.maxSize > 0 && len(chunk) > tt.maxSize {
					t.Errorf("chunk %d has %d chars, ceiling is %d", i, len(chunk), tt.maxSize)
				}
			}
		})
	}
}

func TestSplitOverlapCarriesContext(t *testing.T) {
	got := Split("AAAAA BBBBB CCCCC", 10, 3, PlainText)
	want := []string{"AAAAA", "AAA BBBBB", "BBB CCCCC"}

	if len(got) != len(want) {
		t.Fatalf("got %d chunks %q, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitRespectsSizeCeiling(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		fileType FileType
	}{
		{
			name:     "prose",
			text:     strings.Repeat("the quick brown fox jumps over the lazy dog. ", 50),
			fileType: PlainText,
		},
		{
			name:     "c-like source",
			text:     strings.Repeat("int add(int a, int b) {\n\treturn a + b;\n}\n\n", 40),
			fileType: CLike,
		},
		{
			name:     "python source",
			text:     strings.Repeat("class Widget:\n    def area(self):\n        return 4\n\n", 30),
			fileType: Python,
		},
		{
			name:     "sql script",
			text:     strings.Repeat("SELECT id, name FROM users WHERE active = 1;\n\n", 40),
			fileType: SQL,
		},
		{
			name:     "no separators at all",
			text:     strings.Repeat("x", 500),
			fileType: PlainText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, maxSize := range []int{50, 100, 300} {
				for _, overlap := range []int{0, 10, 25} {
					chunks := Split(tt.text, maxSize, overlap, tt.fileType)

					if len(chunks) == 0 {
						t.Fatalf("maxSize=%d overlap=%d: no chunks for non-empty text", maxSize, overlap)
					}
					for i, chunk := range chunks {
						if len(chunk) > maxSize {
							t.Errorf("maxSize=%d overlap=%d: chunk %d has %d chars",
								maxSize, overlap, i, len(chunk))
						}
						if chunk == "" {
							t.Errorf("maxSize=%d overlap=%d: chunk %d is empty", maxSize, overlap, i)
						}
					}
				}
			}
		})
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	text := strings.Repeat("func main() {\n\tfmt.Println(\"hi\")\n}\n\n// next\n", 30)

	first := Split(text, 120, 30, CLike)
	second := Split(text, 120, 30, CLike)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitKeepsCommentWithFollowingCode(t *testing.T) {
	text := "aaaa\nbbbb\n// note\ncccc"

	got := Split(text, 12, 0, CLike)
	want := []string{"aaaa\nbbbb", "// note\ncccc"}

	if len(got) != len(want) {
		t.Fatalf("got %d chunks %q, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitOnClassBoundaries(t *testing.T) {
	text := "class A:\n    pass\n\nclass B:\n    pass"

	got := Split(text, 20, 0, Python)

	if len(got) != 2 {
		t.Fatalf("got %d chunks %q, want 2", len(got), got)
	}
	if !strings.Contains(got[0], "class A") {
		t.Errorf("first chunk %q does not contain the first class", got[0])
	}
	if !strings.Contains(got[1], "B:") {
		t.Errorf("second chunk %q does not contain the second class body", got[1])
	}
}

func TestHardSplitMakesForwardProgress(t *testing.T) {
	// No spaces or newlines anywhere, so every cut is forced.
	text := strings.Repeat("x", 100)

	chunks := Split(text, 10, 3, PlainText)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	total := 0
	for i, chunk := range chunks {
		if len(chunk) > 10 {
			t.Errorf("chunk %d has %d chars, ceiling is 10", i, len(chunk))
		}
		total += len(chunk)
	}
	// Every chunk past the first re-carries 3 chars of overlap.
	wantTotal := len(text) + 3*(len(chunks)-1)
	if total != wantTotal {
		t.Errorf("total chunk chars = %d, want %d", total, wantTotal)
	}
}

func TestExtractOverlapSmart(t *testing.T) {
	tests := []struct {
		name    string
		chunk   string
		overlap int
		want    string
	}{
		{
			name:    "prefers a newline boundary",
			chunk:   "aaaa\nbbbb cccc",
			overlap: 6,
			want:    "bbbb cccc",
		},
		{
			name:    "prefers a sentence boundary",
			chunk:   "word word. Next sentence here",
			overlap: 10,
			want:    "Next sentence here",
		},
		{
			name:    "falls back to a raw suffix",
			chunk:   "abcdefghijklmnop",
			overlap: 5,
			want:    "lmnop",
		},
		{
			name:    "short chunk is returned whole",
			chunk:   "tiny",
			overlap: 10,
			want:    "tiny",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractOverlapSmart(tt.chunk, tt.overlap)
			if got != tt.want {
				t.Errorf("extractOverlapSmart(%q, %d) = %q, want %q", tt.chunk, tt.overlap, got, tt.want)
			}
		})
	}
}

func TestFindWordBoundary(t *testing.T) {
	text := "hello world again"

	if got := findWordBoundary(text, 8, 50); got != 6 {
		t.Errorf("boundary from mid-word = %d, want 6", got)
	}
	if got := findWordBoundary("nospace", 5, 2); got != 5 {
		t.Errorf("boundary with no whitespace in window = %d, want 5", got)
	}
}

func TestSplitKeepsUTF8Intact(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxSize  int
		overlap  int
		fileType FileType
	}{
		{
			name:     "space delimited",
			text:     strings.Repeat("åäö ", 50),
			maxSize:  20,
			overlap:  5,
			fileType: PlainText,
		},
		{
			// CJK prose has no whitespace at all, so every cut is forced.
			name:     "no whitespace",
			text:     strings.Repeat("日本語の文章", 20),
			maxSize:  10,
			overlap:  0,
			fileType: PlainText,
		},
		{
			name:     "no whitespace with overlap",
			text:     strings.Repeat("日本語の文章", 20),
			maxSize:  10,
			overlap:  6,
			fileType: PlainText,
		},
		{
			name:     "no whitespace markdown",
			text:     strings.Repeat("日本語の文章", 20),
			maxSize:  10,
			overlap:  0,
			fileType: Markdown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text, tt.maxSize, tt.overlap, tt.fileType)
			if len(chunks) < 2 {
				t.Fatalf("expected multiple chunks, got %d", len(chunks))
			}
			for i, chunk := range chunks {
				if !utf8.ValidString(chunk) {
					t.Errorf("chunk %d is invalid UTF-8: %q", i, chunk)
				}
			}
		})
	}
}
