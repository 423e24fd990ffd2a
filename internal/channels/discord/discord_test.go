package discord

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitChunkShortContent(t *testing.T) {
	chunk, rest := splitChunk("hello", 2000)
	if chunk != "hello" || rest != "" {
		t.Fatalf("got %q, %q", chunk, rest)
	}
}

func TestSplitChunkPrefersNewline(t *testing.T) {
	content := strings.Repeat("a", 1500) + "\n" + strings.Repeat("b", 1500)
	chunk, rest := splitChunk(content, 2000)
	if !strings.HasSuffix(chunk, "\n") {
		t.Fatalf("expected cut after the newline, chunk ends %q", chunk[len(chunk)-5:])
	}
	if len(chunk)+len(rest) != len(content) {
		t.Fatal("split must not lose bytes")
	}
}

func TestSplitChunkNeverSplitsRune(t *testing.T) {
	// 3-byte runes, so the 2000-byte boundary lands mid-rune.
	content := strings.Repeat("€", 1500) // 4500 bytes, no newlines
	var rebuilt strings.Builder
	for content != "" {
		var chunk string
		chunk, content = splitChunk(content, 2000)
		if chunk == "" {
			t.Fatal("empty chunk would loop forever")
		}
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk splits a rune: %q...", chunk[:8])
		}
		rebuilt.WriteString(chunk)
	}
	if utf8.RuneCountInString(rebuilt.String()) != 1500 {
		t.Fatal("chunks must reassemble to the original content")
	}
}
