package chunker

import (
	"strings"
	"testing"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	c := New(800, 100)

	chunks := c.Split("short document")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "short document" {
		t.Errorf("expected text unchanged, got %q", chunks[0])
	}
}

func TestSplitEmptyText(t *testing.T) {
	c := New(800, 100)

	if chunks := c.Split(""); chunks != nil {
		t.Errorf("expected nil, got %v", chunks)
	}
}

func TestSplitOverlappingWindows(t *testing.T) {
	c := New(10, 3)

	text := "abcdefghijklmnopqrst" // 20 runes
	chunks := c.Split(text)

	want := []string{"abcdefghij", "hijklmnopq", "opqrst"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %v", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], chunks[i])
		}
	}
}

func TestSplitOverlapSharesTail(t *testing.T) {
	c := New(10, 3)

	chunks := c.Split(strings.Repeat("x", 9) + "Y" + strings.Repeat("z", 9))
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	// The boundary rune Y must appear in both the first and second chunk.
	if !strings.Contains(chunks[0], "Y") || !strings.Contains(chunks[1], "Y") {
		t.Errorf("expected boundary rune in both chunks: %q %q", chunks[0], chunks[1])
	}
}

func TestSplitCountsRunesNotBytes(t *testing.T) {
	c := New(4, 1)

	chunks := c.Split("ąčęėįšųū") // 8 runes, 16 bytes
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != "ąčęė" {
		t.Errorf("expected first chunk of 4 runes, got %q", chunks[0])
	}
}

func TestSplitReassemblesWithoutLoss(t *testing.T) {
	c := New(50, 10)

	text := strings.Repeat("abcdefghij", 30)
	chunks := c.Split(text)

	// Strip each chunk's overlap prefix and the concatenation must equal the
	// original text.
	var b strings.Builder
	b.WriteString(chunks[0])
	for _, ch := range chunks[1:] {
		r := []rune(ch)
		b.WriteString(string(r[10:]))
	}
	if b.String() != text {
		t.Error("expected chunks to reassemble into original text")
	}
}

func TestNewInvalidConfigFallsBack(t *testing.T) {
	c := New(0, -5)
	if c.size != DefaultChunkSize || c.overlap != DefaultOverlap {
		t.Errorf("expected defaults, got size=%d overlap=%d", c.size, c.overlap)
	}

	c = New(10, 10)
	if c.overlap >= c.size {
		t.Errorf("expected overlap below size, got size=%d overlap=%d", c.size, c.overlap)
	}
}
