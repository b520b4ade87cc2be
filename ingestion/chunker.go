package ingestion

import (
	"strings"
	"unicode/utf8"
)

// Default chunking geometry. Roughly a manual page per chunk with enough
// overlap that instructions spanning a cut stay retrievable.
const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// splitText splits text into overlapping chunks of at most chunkSize bytes.
//
// Cut points are chosen by boundary preference: paragraph break, then line
// break, then word break, then a raw character cut. A boundary is only used
// if it falls in the second half of the window, so chunks stay reasonably
// full. Consecutive chunks overlap by chunkOverlap bytes (adjusted to the
// nearest rune boundary).
func splitText(text string, chunkSize, chunkOverlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if chunkSize < 1 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}

	var chunks []string
	start := 0

	for start < len(text) {
		end := start + chunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = cutPoint(text, start, end)
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(text) {
			break
		}

		next := end - chunkOverlap
		// Always make forward progress, overlap notwithstanding
		if next <= start {
			next = end
		}
		// Never resume mid-rune
		for next > 0 && next < len(text) && !utf8.RuneStart(text[next]) {
			next--
		}
		start = next
	}

	return chunks
}

// cutPoint picks the best cut position in text[start:limit], preferring
// paragraph, line, and word boundaries over raw character cuts.
func cutPoint(text string, start, limit int) int {
	window := text[start:limit]
	half := len(window) / 2

	// Paragraph boundary: cut after the blank line
	if i := strings.LastIndex(window, "\n\n"); i > half {
		return start + i + 2
	}

	// Line boundary: cut after the newline
	if i := strings.LastIndexByte(window, '\n'); i > half {
		return start + i + 1
	}

	// Word boundary: cut at the space
	if i := strings.LastIndexByte(window, ' '); i > half {
		return start + i
	}

	// Raw cut, backed up to a rune boundary
	end := limit
	for end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	if end == start {
		return limit
	}
	return end
}
