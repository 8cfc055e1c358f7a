package chunker

import (
	"strings"
	"testing"
)

func TestSplit_SmallDocumentSingleChunk(t *testing.T) {
	// 18 chars repeated 50 times is 900 characters, well under the ceiling.
	content := strings.Repeat("Alpha Beta Gamma. ", 50)

	chunks := Split(content, 3000)

	if len(chunks) != 1 {
		t.Fatalf("expected exactly 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != Normalize(content) {
		t.Errorf("single chunk should equal normalized content")
	}
}

func TestSplit_LargeDocumentChunkCount(t *testing.T) {
	// Build roughly 10,000 characters of word-sized tokens.
	var b strings.Builder
	for b.Len() < 10000 {
		b.WriteString("Alpha Beta Gamma. ")
	}
	content := b.String()[:10000]

	chunks := Split(content, 3000)

	if len(chunks) != 4 {
		t.Fatalf("expected exactly 4 chunks, got %d", len(chunks))
	}
	for i, c := range chunks[:3] {
		if len(c) == 0 {
			t.Errorf("chunk %d is empty", i)
		}
		// A chunk closes as soon as it reaches the ceiling, so it can
		// exceed it by at most one token.
		if len(c) > 3000+len("Gamma.")+1 {
			t.Errorf("chunk %d exceeds ceiling: %d chars", i, len(c))
		}
	}
	if Rejoin(chunks) != Normalize(content) {
		t.Errorf("rejoined chunks do not reconstruct normalized content")
	}
}

func TestSplit_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ceiling int
	}{
		{"plain sentence", "the quick brown fox jumps over the lazy dog", 10},
		{"messy whitespace", "  one\n\ntwo\tthree   four  ", 8},
		{"single word over ceiling", "supercalifragilisticexpialidocious", 5},
		{"empty", "", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.content, tt.ceiling)
			if Rejoin(chunks) != Normalize(tt.content) {
				t.Errorf("round trip failed: %q != %q", Rejoin(chunks), Normalize(tt.content))
			}
		})
	}
}

func TestSplit_FinalPartialChunkKept(t *testing.T) {
	chunks := Split("aaaa bbbb cccc dd", 10)

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	last := chunks[len(chunks)-1]
	if len(last) >= 10 {
		t.Errorf("expected final chunk to be under-sized, got %d chars", len(last))
	}
}

func TestSplit_ZeroCeilingUsesDefault(t *testing.T) {
	content := strings.Repeat("word ", 100)
	chunks := Split(content, 0)
	if len(chunks) != 1 {
		t.Fatalf("500 chars should fit a default-ceiling chunk, got %d chunks", len(chunks))
	}
}
