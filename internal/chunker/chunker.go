// Package chunker splits document text into overlapping spans for embedding.
package chunker

import (
	"fmt"
	"unicode"

	"github.com/notely/assist/internal/models"
)

// Span is one chunk of text and its rune offset within the source document.
type Span struct {
	Text   string
	Offset int
}

// Split cuts text into overlapping spans of at most size runes. It prefers to
// cut at a sentence end or whitespace near the size limit so words are not
// severed, falling back to a hard cut when no boundary exists in the window.
// Each span after the first starts overlap runes before the previous span's
// end, so consecutive spans share that much context. Pure function of its
// inputs: identical arguments always produce identical spans.
//
// size must be greater than overlap and overlap must be >= 0, otherwise
// models.ErrInvalidParameters is returned.
func Split(text string, size, overlap int) ([]Span, error) {
	if size <= 0 || overlap < 0 || size <= overlap {
		return nil, fmt.Errorf("%w: chunk size %d must exceed overlap %d (overlap >= 0)",
			models.ErrInvalidParameters, size, overlap)
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	var spans []Span
	start := 0
	for start < n {
		end := start + size
		if end >= n {
			spans = append(spans, Span{Text: string(runes[start:n]), Offset: start})
			break
		}
		end = cutPoint(runes, start, end, overlap)
		spans = append(spans, Span{Text: string(runes[start:end]), Offset: start})
		// Next span re-reads the last overlap runes of this one. cutPoint
		// guarantees end > start+overlap, so the start always advances.
		start = end - overlap
	}
	return spans, nil
}

// cutPoint picks the cut for a span beginning at start with a tentative end.
// It scans backwards from end, preferring the position just after a sentence
// terminator, then after any whitespace. Candidates at or before start+overlap
// are rejected since they would stall the walk; with none left, the hard cut
// at end stands.
func cutPoint(runes []rune, start, end, overlap int) int {
	limit := start + overlap
	ws := -1
	for i := end - 1; i > limit; i-- {
		r := runes[i-1]
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			return i
		}
		if ws < 0 && unicode.IsSpace(r) {
			ws = i
		}
	}
	if ws > 0 {
		return ws
	}
	return end
}
