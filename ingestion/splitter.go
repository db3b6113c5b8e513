// Package ingestion turns uploaded documents into plain-text chunks
// ready for indexing.
package ingestion

// CharacterSplitter splits text into fixed-size chunks with a sliding
// overlap so sentences spanning a boundary appear in both neighbours.
type CharacterSplitter struct {
	ChunkSize int
	Overlap   int
}

// NewSplitter returns a splitter with the standard chunking parameters.
func NewSplitter() CharacterSplitter {
	return CharacterSplitter{ChunkSize: 1000, Overlap: 200}
}

// SplitText cuts text into chunks of at most ChunkSize runes, each chunk
// starting Overlap runes before the previous one ended. Empty input
// yields no chunks.
func (s CharacterSplitter) SplitText(text string) []string {
	if text == "" {
		return nil
	}
	size := s.ChunkSize
	if size <= 0 {
		size = 1000
	}
	overlap := s.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	step := size - overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + size
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
