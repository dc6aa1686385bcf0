package chunk

import (
	"strings"
	"unicode/utf8"
)

// splitMarkdown is the line-based strategy for markdown documents. Headers
// force a clean chunk boundary with no overlap carried across, and contiguous
// table blocks may overflow the size ceiling by up to 25% so a table header
// is not severed from its rows.
func splitMarkdown(text string, maxSize, overlap int) []string {
	var chunks []string

	lines := strings.Split(text, "\n")
	current := ""

	lastLineWasTableRow := false
	tableMaxSize := maxSize + maxSize/4 // +25%

	for i, line := range lines {
		isLastLine := i == len(lines)-1
		isHeader := isMarkdownHeader(line)

		// Header hard-split: a header always starts a fresh chunk, with no
		// overlap from the preceding paragraph.
		if current != "" && isHeader {
			chunks = append(chunks, current)
			current = ""
		}

		lineWithSep := line
		if !isLastLine {
			lineWithSep += "\n"
		}

		isTableRow := strings.HasPrefix(strings.TrimSpace(line), "|")
		nextIsTableRow := false
		if !isLastLine {
			nextIsTableRow = strings.HasPrefix(strings.TrimSpace(lines[i+1]), "|")
		}

		candidate := current + lineWithSep

		if len(candidate) <= maxSize {
			current = candidate
			lastLineWasTableRow = isTableRow
			continue
		}

		// Inside a contiguous table block the candidate may run over, up to
		// the relaxed ceiling, to keep header and rows together.
		inTableRegion := isTableRow || lastLineWasTableRow || nextIsTableRow
		if inTableRegion && len(candidate) <= tableMaxSize {
			current = candidate
			lastLineWasTableRow = isTableRow
			continue
		}

		// A single line larger than a whole chunk gets a word-boundary aware
		// hard split of its own.
		if current == "" && len(lineWithSep) > maxSize {
			start := 0
			for start < len(lineWithSep) {
				idealEnd := start + maxSize
				if idealEnd >= len(lineWithSep) {
					chunks = append(chunks, lineWithSep[start:])
					break
				}

				actualEnd := backToRuneStart(lineWithSep, findWordBoundary(lineWithSep, idealEnd, wordBoundaryLookback))
				if actualEnd <= start {
					_, size := utf8.DecodeRuneInString(lineWithSep[start:])
					actualEnd = start + size
				}
				piece := lineWithSep[start:actualEnd]
				chunks = append(chunks, piece)

				next := actualEnd
				if overlap > 0 {
					seed := extractOverlapSmart(piece, overlap)
					next = actualEnd - len(seed)
				}
				if next <= start {
					next = actualEnd
				}
				start = next
			}
			lastLineWasTableRow = isTableRow
			continue
		}

		// Normal flush: emit the chunk and seed the next one with overlap.
		if current != "" {
			chunks = append(chunks, current)
			if overlap > 0 && len(current) > overlap {
				seed := extractOverlapSmart(current, overlap)
				if len(seed)+len(lineWithSep) <= maxSize {
					current = seed + lineWithSep
				} else {
					current = lineWithSep
				}
			} else {
				current = lineWithSep
			}
		} else {
			current = lineWithSep
		}

		lastLineWasTableRow = isTableRow
	}

	if current != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

// isMarkdownHeader reports whether a line is an ATX heading: one to six
// hashes followed by a space or end of line.
func isMarkdownHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return false
	}

	hashes := 0
	for hashes < len(trimmed) && trimmed[hashes] == '#' {
		hashes++
	}
	if hashes > 6 {
		return false
	}
	if hashes == len(trimmed) {
		return true
	}
	return trimmed[hashes] == ' '
}
