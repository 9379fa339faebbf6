package chunker

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	// DefaultSize is the chunk window in runes
	DefaultSize = 512
	// DefaultOverlap is the shared tail between consecutive chunks in runes
	DefaultOverlap = 50
)

// Splitter cuts text into overlapping windows preferring word boundaries
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates Splitter instance
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size < 1 {
		return nil, fmt.Errorf("wrong size %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("wrong overlap %d for size %d", overlap, size)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Split returns trimmed chunks of at most size runes.
// Deterministic: same text always gives the same chunks
func (s *Splitter) Split(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	var res []string
	start := 0
	for start < len(runes) {
		end := start + s.size
		if end >= len(runes) {
			res = appendChunk(res, runes[start:])
			break
		}
		cut := lastBoundary(runes, start, end)
		res = appendChunk(res, runes[start:cut])
		next := cut - s.overlap
		if next <= start {
			next = cut
		}
		for next < len(runes) && unicode.IsSpace(runes[next]) {
			next++
		}
		start = next
	}
	return res
}

// lastBoundary returns the rightmost whitespace position in (start, end],
// or end when the window has no break at all
func lastBoundary(runes []rune, start, end int) int {
	for i := end; i > start; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

func appendChunk(res []string, runes []rune) []string {
	ch := strings.TrimSpace(string(runes))
	if ch != "" {
		res = append(res, ch)
	}
	return res
}
