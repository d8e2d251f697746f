// Package corpus loads the static reference text and splits it into
// fixed-size overlapping chunks for retrieval.
package corpus

import (
	"fmt"
	"os"
	"strings"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Split cuts text into chunks of at most size runes, with consecutive chunks
// sharing overlap runes. Whitespace-only input returns nil. The chunk list is
// computed once at startup and treated as immutable afterwards.
func Split(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// LoadFile reads a corpus file and splits it. A missing file is not an error
// for the caller to die on; it is reported so the caller can disable retrieval.
func LoadFile(path string, size, overlap int) ([]string, error) {
	contentBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file %s: %w", path, err)
	}
	return Split(string(contentBytes), size, overlap), nil
}
