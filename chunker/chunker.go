// Package chunker splits document text into size-bounded segments that stay
// under the embedding service's input limit. Chunks do not overlap: each one
// is stored with the full document identity and re-joined at query time, so
// boundary-spanning context is not needed.
package chunker

import "strings"

// DefaultCeiling keeps chunks well under the embedding input limit with a
// safety margin. Deployments tune this through configuration.
const DefaultCeiling = 3000

// Normalize collapses all whitespace runs to single spaces. Chunking always
// operates on normalized text so that rejoining chunks with single spaces
// reconstructs it exactly.
func Normalize(content string) string {
	return strings.Join(strings.Fields(content), " ")
}

// Split greedily accumulates whitespace-delimited tokens until the chunk
// (tokens joined by single spaces) reaches the ceiling, then starts a new
// chunk. The final partial chunk is kept even when under-sized.
func Split(content string, ceiling int) []string {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}

	words := strings.Fields(content)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentSize := 0

	for _, word := range words {
		current = append(current, word)
		currentSize += len(word) + 1 // +1 for the joining space

		if currentSize >= ceiling {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
			currentSize = 0
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// Rejoin is the inverse of Split over normalized content.
func Rejoin(chunks []string) string {
	return strings.Join(chunks, " ")
}
