package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is the in-process index backend: a brute-force scan over all
// stored vectors. Appropriate at document scale (hundreds to low thousands
// of chunks per session).
type Memory struct {
	embedder Embedder

	mu        sync.RWMutex
	dimension int
	chunks    []Chunk
}

func NewMemory(embedder Embedder) *Memory {
	return &Memory{embedder: embedder}
}

// NewMemoryFromTexts builds a populated index from pre-split segments.
func NewMemoryFromTexts(ctx context.Context, embedder Embedder, texts []string) (*Memory, error) {
	m := NewMemory(embedder)
	if err := Build(ctx, m, embedder, texts); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Memory) Insert(_ context.Context, key string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("%w: zero-length vector", ErrDimensionMismatch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dimension == 0 {
		m.dimension = len(vector)
	} else if len(vector) != m.dimension {
		return fmt.Errorf("%w: index dimension %d, vector length %d", ErrDimensionMismatch, m.dimension, len(vector))
	}

	m.chunks = append(m.chunks, Chunk{
		ID:     uuid.NewString(),
		Key:    key,
		Vector: vector,
	})
	return nil
}

func (m *Memory) Search(_ context.Context, query []float32, k int) ([]RetrievedChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if k <= 0 || len(m.chunks) == 0 {
		return nil, nil
	}

	scored := make([]RetrievedChunk, len(m.chunks))
	for i, chunk := range m.chunks {
		scored[i] = RetrievedChunk{
			Text:  chunk.Key,
			Score: CosineSimilarity(query, chunk.Vector),
		}
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func (m *Memory) SearchByText(ctx context.Context, query string, k int) ([]RetrievedChunk, error) {
	vectors, err := m.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}
	return m.Search(ctx, vectors[0], k)
}

func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, len(m.chunks))
	for i, chunk := range m.chunks {
		keys[i] = chunk.Key
	}
	return keys, nil
}

// Len reports the number of stored chunks.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

var _ Index = (*Memory)(nil)
