// Package chunk splits document text into retrieval-sized pieces. The
// splitter is a recursive descent over an ordered, file-type specific list of
// literal separators, coarse to fine, with a character-level fallback once
// the list is exhausted. It is a pure function: identical inputs always
// produce identical chunks.
package chunk

import (
	"strings"
	"unicode/utf8"
)

// FileType selects the separator hierarchy and comment syntax used when
// splitting a document.
type FileType int

const (
	PlainText FileType = iota
	CLike              // C, C++, C#, Java, JS/TS, Go, Rust, Swift, Kotlin
	Python
	Rexx
	SQL
	Shell
	Cobol
	Markdown
	YAML // YAML and HCL/Terraform
)

func (t FileType) String() string {
	switch t {
	case CLike:
		return "clike"
	case Python:
		return "python"
	case Rexx:
		return "rexx"
	case SQL:
		return "sql"
	case Shell:
		return "shell"
	case Cobol:
		return "cobol"
	case Markdown:
		return "markdown"
	case YAML:
		return "yaml"
	default:
		return "text"
	}
}

// wordBoundaryLookback is how far a forced cut may shift backwards to land on
// whitespace instead of mid-word.
const wordBoundaryLookback = 50

// overlapLookback is how far overlap extraction searches backwards for a
// semantic boundary before giving up and cutting at the exact position.
const overlapLookback = 150

// maxDepth caps the separator recursion. Past it the character fallback takes
// over, so pathological separator/size combinations cannot recurse without
// bound.
const maxDepth = 32

// separatorsFor returns the ordered separator list for a file type. The empty
// string terminal means character-level fallback.
func separatorsFor(t FileType) []string {
	switch t {
	case CLike:
		return []string{"}\n\n", "}\n", ";\n", "{\n", "\n\n", "\n", " ", ""}
	case Python:
		// Structural paragraph and line boundaries only. "\ndef " is not a
		// separator: splitting on it would strip the keyword from function
		// definitions when chunks are re-assembled.
		return []string{"\nclass ", "\n\n", "\n", " ", ""}
	case Rexx:
		// Rexx keywords are case-insensitive, so the common capitalisations
		// are listed explicitly. Bare label separators (":\n") come after the
		// newline separators: comments and their following headers are first
		// grouped at the line level, labels only split oversized segments.
		return []string{
			"\n::routine", "\n::ROUTINE",
			"\n::method", "\n::METHOD",
			"\n::requires", "\n::REQUIRES",
			" Return\n", " RETURN\n",
			" return\n",
			" Exit\n", " EXIT\n",
			" exit\n",
			"\n\n",
			"\n",
			":\n",
			" ", "",
		}
	case SQL:
		return []string{"\n/\n", ";\n\n", ";\n", "\nGO\n", "\n\n", "\n", " ", ""}
	case Shell:
		return []string{"\nfunction ", "}\n\n", "}\n", ";;\n", "\n\n", "\n", " ", ""}
	case Cobol:
		return []string{"\nDIVISION.", "\nSECTION.", ".\n\n", ".\n", "\n\n", "\n", " ", ""}
	case YAML:
		return []string{"\nresource ", "\nmodule ", "\n- ", "\n  ", "\n\n", "\n", " ", ""}
	case Markdown:
		return []string{"\n\n", "\n", " ", ""}
	default:
		return []string{"\n\n", "\n", " ", ""}
	}
}

// isCommentStart reports whether a line opens a line comment in the given
// file type. Plain text and markdown have no comment syntax.
func isCommentStart(line string, t FileType) bool {
	trimmed := strings.TrimSpace(line)

	switch t {
	case CLike:
		return strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*")
	case Python, Shell, YAML:
		return strings.HasPrefix(trimmed, "#")
	case Rexx:
		return strings.HasPrefix(trimmed, "--") || strings.HasPrefix(trimmed, "/*")
	case SQL:
		return strings.HasPrefix(trimmed, "--")
	case Cobol:
		return strings.HasPrefix(trimmed, "*")
	default:
		return false
	}
}

// Split divides text into chunks of at most maxSize characters, consecutive
// chunks sharing up to overlap characters at their boundary. Markdown table
// rows are the one exception to the size ceiling: they may overflow by up to
// 25% so a table is not severed.
//
// Degenerate inputs: empty text yields no chunks, maxSize <= 0 yields the
// whole text as one chunk, and overlap is clamped into [0, maxSize-1].
func Split(text string, maxSize, overlap int, fileType FileType) []string {
	if text == "" {
		return nil
	}
	if maxSize <= 0 {
		return []string{text}
	}

	if overlap >= maxSize {
		overlap = maxSize - 1
	}
	if overlap < 0 {
		overlap = 0
	}

	if len(text) <= maxSize {
		return []string{text}
	}

	if fileType == Markdown {
		return splitMarkdown(text, maxSize, overlap)
	}

	c := splitter{maxSize: maxSize, overlap: overlap, fileType: fileType}
	return c.splitRecursive(text, separatorsFor(fileType), 0)
}

type splitter struct {
	maxSize  int
	overlap  int
	fileType FileType
}

func (c *splitter) splitRecursive(text string, separators []string, depth int) []string {
	if len(text) <= c.maxSize {
		return []string{text}
	}

	if len(separators) == 0 || separators[0] == "" || depth > maxDepth {
		return c.hardSplit(text)
	}

	separator := separators[0]
	remaining := separators[1:]

	parts := strings.Split(text, separator)

	var result []string
	var current string

	for partIndex, part := range parts {
		isLastPart := partIndex == len(parts)-1

		// Either the part itself (if small enough) or the sub-chunks produced
		// by recursing on the finer separators.
		var pieces []string
		if len(part) > c.maxSize {
			pieces = c.splitRecursive(part, remaining, depth+1)
		} else {
			pieces = []string{part}
		}

		for pieceIndex, piece := range pieces {
			isFirstPieceOfPart := pieceIndex == 0
			hasNextPiece := pieceIndex+1 < len(pieces) || !isLastPart

			c.merge(&result, &current, piece, separator, isFirstPieceOfPart, hasNextPiece)
		}
	}

	if current != "" {
		result = append(result, current)
	}

	return result
}

// merge accumulates one logical piece into the running chunk, flushing and
// seeding overlap when the piece no longer fits. The separator is only
// re-inserted when transitioning between original parts, never between
// recursive sub-pieces of the same part.
func (c *splitter) merge(result *[]string, current *string, piece, separator string, isFirstPieceOfPart, hasNextPiece bool) {
	if piece == "" && !hasNextPiece {
		return
	}

	newlineSep := separator == "\n" || separator == "\n\n"
	isComment := newlineSep && c.fileType != PlainText && isCommentStart(piece, c.fileType)

	candidate := *current
	if candidate != "" && piece != "" && separator != "" && isFirstPieceOfPart {
		candidate += separator
	}
	candidate += piece

	if len(candidate) <= c.maxSize {
		*current = candidate
		return
	}

	if *current == "" {
		*current = piece
		return
	}

	lastNewline := strings.LastIndexByte(*current, '\n')
	lastLine := *current
	if lastNewline != -1 {
		lastLine = (*current)[lastNewline+1:]
	}
	lastLineIsComment := newlineSep && c.fileType != PlainText && isCommentStart(lastLine, c.fileType)

	// Comment migration: the chunk ends in a comment line and the incoming
	// piece is the code it documents. Flush the chunk without the comment and
	// let the comment lead the next chunk so the two stay together.
	if !isComment && newlineSep && hasNextPiece && lastLineIsComment && lastNewline != -1 {
		withoutComment := (*current)[:lastNewline+1]

		candidateWithoutComment := withoutComment
		if candidateWithoutComment != "" && separator != "" && isFirstPieceOfPart {
			candidateWithoutComment += separator
		}
		candidateWithoutComment += piece

		if len(candidateWithoutComment) <= c.maxSize {
			next := ""
			if c.overlap > 0 && len(withoutComment) > c.overlap {
				next = c.extractOverlap(withoutComment)
			}
			if next != "" && separator != "" && isFirstPieceOfPart {
				next += separator
			}
			next += lastLine
			if separator != "" {
				next += separator
			}
			next += piece

			// Only take this path when the rebuilt chunk honours the size
			// ceiling; otherwise the generic flush below handles it.
			if len(next) <= c.maxSize {
				*result = append(*result, withoutComment)
				*current = next
				return
			}
		}
	}

	// Comment glue: never let a comment dangle at the end of a chunk away
	// from the code that follows it. Flush what we have and start the next
	// chunk with the comment.
	if isComment && hasNextPiece {
		*result = append(*result, *current)

		next := ""
		if c.overlap > 0 && len(*current) > c.overlap {
			next = c.extractOverlap(*current)
		}
		if next != "" && separator != "" && isFirstPieceOfPart {
			next += separator
		}
		next += piece

		if len(next) > c.maxSize {
			next = piece
		}
		*current = next
		return
	}

	*result = append(*result, *current)

	if c.overlap > 0 && len(*current) > c.overlap {
		seed := c.extractOverlap(*current)

		// Deduplicate across the boundary: the overlap seed may already end
		// with the text the next piece begins with (often the same logical
		// line). Trim the shared run so the new chunk never repeats it.
		adjusted := piece
		maxShared := min(len(seed), len(piece))
		shared := 0
		for n := maxShared; n > 0; n-- {
			if seed[len(seed)-n:] == piece[:n] {
				shared = n
				break
			}
		}
		if shared > 0 {
			adjusted = piece[shared:]
			if adjusted == "" {
				*current = seed
				return
			}
		}

		candidate = seed
		if candidate != "" && adjusted != "" && separator != "" && isFirstPieceOfPart {
			candidate += separator
		}
		candidate += adjusted

		if len(candidate) <= c.maxSize {
			*current = candidate
		} else {
			*current = adjusted
		}
	} else {
		*current = piece
	}
}

// hardSplit is the character fallback: cut every maxSize characters, shifting
// each cut back to the nearest whitespace within the lookback window. Forward
// progress is guaranteed even when the overlap seed fills the whole budget.
func (c *splitter) hardSplit(text string) []string {
	var result []string
	pos := 0
	overlap := ""

	for pos < len(text) {
		chunk := overlap
		if len(chunk) >= c.maxSize {
			chunk = tailOnRune(chunk, c.maxSize-1)
		}

		remaining := c.maxSize - len(chunk)
		idealEnd := pos + remaining
		actualEnd := idealEnd
		if idealEnd >= len(text) {
			actualEnd = len(text)
		} else {
			// Without a whitespace boundary the cut position may land inside a
			// UTF-8 sequence, so snap it back to the rune start.
			actualEnd = backToRuneStart(text, findWordBoundary(text, idealEnd, wordBoundaryLookback))
			if actualEnd <= pos {
				_, size := utf8.DecodeRuneInString(text[pos:])
				actualEnd = pos + size
			}
		}

		chunk += text[pos:actualEnd]
		pos = actualEnd

		if chunk != "" {
			result = append(result, chunk)

			if c.overlap > 0 && len(chunk) > c.overlap {
				overlap = c.extractOverlap(chunk)
			} else if c.overlap > 0 {
				overlap = chunk
			} else {
				overlap = ""
			}
		}
	}

	return result
}

// extractOverlap takes roughly the last overlap characters of a chunk,
// preferring to start at a newline, then a sentence end, then a space, so the
// next chunk does not open mid-word. Falls back to the exact character cut.
func (c *splitter) extractOverlap(chunk string) string {
	return extractOverlapSmart(chunk, c.overlap)
}

func extractOverlapSmart(chunk string, overlapSize int) string {
	if len(chunk) <= overlapSize {
		return chunk
	}

	idealStart := len(chunk) - overlapSize
	searchStart := max(0, idealStart-overlapLookback)

	// Phase 1: strong separators (newlines).
	for i := idealStart - 1; i >= searchStart; i-- {
		if chunk[i] == '\n' || chunk[i] == '\r' {
			candidate := chunk[i+1:]

			firstWordLen := 0
			for j := 0; j < len(candidate); j++ {
				ch := candidate[j]
				if ch == ' ' || ch == '\n' || ch == '\r' {
					break
				}
				if ch != '\t' {
					firstWordLen++
				}
			}

			if firstWordLen > 3 || strings.ContainsRune(candidate, ' ') {
				return candidate
			}
		}
	}

	// Phase 2: weak separators (period followed by space or newline).
	for i := idealStart - 1; i >= searchStart; i-- {
		if i+1 < len(chunk) && chunk[i] == '.' && isSpaceByte(chunk[i+1]) {
			boundary := i + 1
			for boundary < len(chunk) && isSpaceByte(chunk[boundary]) {
				boundary++
			}
			if boundary < len(chunk) {
				candidate := chunk[boundary:]
				if len(candidate) >= 10 {
					return candidate
				}
			}
		}
	}

	// Phase 3: simple word boundaries (spaces).
	for i := idealStart - 1; i >= searchStart; i-- {
		if chunk[i] == ' ' {
			candidate := chunk[i+1:]
			if len(candidate) >= 10 {
				return candidate
			}
		}
	}

	// Fallback: raw suffix.
	return tailOnRune(chunk, overlapSize)
}

// findWordBoundary searches backwards from idealPos for a space or newline
// and returns the position just after it, or idealPos unchanged when none is
// found within the lookback window.
func findWordBoundary(text string, idealPos, maxLookback int) int {
	searchStart := max(0, idealPos-maxLookback)
	for i := idealPos - 1; i >= searchStart; i-- {
		if text[i] == ' ' || text[i] == '\n' {
			return i + 1
		}
	}
	return idealPos
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t'
}

// tailOnRune returns the last n bytes of s, extended backwards if needed so
// the cut does not land inside a UTF-8 sequence.
func tailOnRune(s string, n int) string {
	if n >= len(s) {
		return s
	}
	return s[backToRuneStart(s, len(s)-n):]
}

func backToRuneStart(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
