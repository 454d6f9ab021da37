package util

import "testing"

func TestChunkText(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxyz"
	chunks := ChunkText(text, 10, 2)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	if chunks[0] != "abcdefghij" {
		t.Fatalf("unexpected first chunk: %s", chunks[0])
	}
}

func TestChunkTextDropsWhitespaceOnlyWindows(t *testing.T) {
	chunks := ChunkText("abc       \t\n      xyz", 6, 0)
	for _, c := range chunks {
		if c == "" {
			t.Fatalf("empty chunk survived filtering")
		}
	}
}
