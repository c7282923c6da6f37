package chunker

// Defaults for document splitting. Windows are measured in runes so
// multi-byte text chunks at the same granularity as ASCII.
const (
	DefaultChunkSize = 800
	DefaultOverlap   = 100
)

// Chunker splits document text into fixed-size overlapping windows for
// embedding. The overlap keeps sentences that straddle a boundary retrievable
// from at least one chunk.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. Non-positive size falls back to DefaultChunkSize;
// an overlap outside [0, size) falls back to DefaultOverlap, clamped below
// size so the window always advances.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
		if overlap >= size {
			overlap = size / 2
		}
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split returns the overlapping windows of text in document order. Text at
// most one window long yields a single chunk; empty text yields none.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.size {
		return []string{text}
	}

	step := c.size - c.overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
