// Package loader discovers and reads the documents that make up an index.
package loader

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/torfjord/skald/internal/chunk"
)

// supportedExtensions is the default allow-list applied when no explicit file
// filters are given. Matching is case-insensitive.
var supportedExtensions = []string{
	// C-family (brace-based)
	".cpp", ".h", ".hpp", ".c", ".cs", ".java",
	".js", ".ts", ".tsx", ".go", ".rs", ".swift", ".kt",
	// Python
	".py",
	// Rexx
	".rexx", ".rex", ".cmd",
	// SQL
	".sql", ".plsql", ".tsql",
	// Shell
	".sh", ".bash", ".ps1", ".zsh",
	// Cobol
	".cbl", ".cob", ".copy",
	// YAML/Terraform
	".yaml", ".yml", ".tf", ".hcl",
	// Assembly
	".asm", ".s",
	// Generic text / Markdown
	".md", ".markdown", ".txt", ".json", ".xml", ".cmake",
}

// Scan walks root recursively and returns the files to index. With empty
// filters, membership is decided by the extension allow-list; otherwise the
// glob patterns alone decide, matched against the base file name.
func Scan(root string, filters []string) ([]string, error) {
	var result []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			slog.Default().Warn("skipping unreadable path", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if len(filters) == 0 {
			if hasSupportedExtension(d.Name()) {
				result = append(result, path)
			}
			return nil
		}

		for _, pattern := range filters {
			ok, err := filepath.Match(pattern, d.Name())
			if err != nil {
				slog.Default().Warn("bad file filter pattern", "pattern", pattern, "err", err)
				continue
			}
			if ok {
				result = append(result, path)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ReadText reads a file as UTF-8 text. Open and read failures are logged and
// yield an empty string; callers treat empty content as "skip this file".
func ReadText(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Default().Warn("failed to read file", "path", path, "err", err)
		return ""
	}
	return string(data)
}

func hasSupportedExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range supportedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Classify maps a file path to the chunker family handling its syntax.
// Unknown extensions fall back to plain text.
func Classify(path string) chunk.FileType {
	lower := strings.ToLower(path)

	suffix := func(exts ...string) bool {
		for _, ext := range exts {
			if strings.HasSuffix(lower, ext) {
				return true
			}
		}
		return false
	}

	switch {
	case suffix(".rexx", ".rex", ".cmd"):
		return chunk.Rexx
	case suffix(".py"):
		return chunk.Python
	case suffix(".sql", ".plsql", ".tsql"):
		return chunk.SQL
	// Assembly is line-oriented, so it shares the shell hierarchy.
	case suffix(".sh", ".bash", ".ps1", ".zsh", ".asm", ".s"):
		return chunk.Shell
	case suffix(".cbl", ".cob", ".copy"):
		return chunk.Cobol
	case suffix(".yaml", ".yml", ".tf", ".hcl"):
		return chunk.YAML
	case suffix(".md", ".markdown"):
		return chunk.Markdown
	case suffix(".cpp", ".h", ".hpp", ".c", ".cs", ".java", ".js", ".ts", ".tsx",
		".go", ".rs", ".swift", ".kt"):
		return chunk.CLike
	default:
		return chunk.PlainText
	}
}
