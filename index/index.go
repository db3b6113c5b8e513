// Package index stores text chunks with their embedding vectors and serves
// nearest-neighbour queries by cosine similarity.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when an inserted vector's length differs
// from the dimension the index was established with. The failed insertion
// leaves the index untouched.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Chunk is one unit of document text plus its embedding.
type Chunk struct {
	ID     string
	Key    string
	Vector []float32
}

// RetrievedChunk is a search hit: the chunk text and its similarity score.
type RetrievedChunk struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Index is a per-session semantic store. One index belongs to exactly one
// session and is never shared.
type Index interface {
	Insert(ctx context.Context, key string, vector []float32) error
	Search(ctx context.Context, query []float32, k int) ([]RetrievedChunk, error)
	SearchByText(ctx context.Context, query string, k int) ([]RetrievedChunk, error)
	Keys(ctx context.Context) ([]string, error)
}

// Embedder is the subset of the embeddings provider the index needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Build embeds all texts in a single batch and inserts them into idx. A
// failed batch is retried exactly once before the error surfaces; on
// failure nothing has been inserted, so callers can safely discard idx.
func Build(ctx context.Context, idx Index, embedder Embedder, texts []string) error {
	if len(texts) == 0 {
		return nil
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		vectors, err = embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("bulk embed after retry: %w", err)
		}
	}

	if len(vectors) != len(texts) {
		return fmt.Errorf("embedding count mismatch: have %d texts, %d vectors", len(texts), len(vectors))
	}

	for i, text := range texts {
		if err := idx.Insert(ctx, text, vectors[i]); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	return nil
}

// CosineSimilarity returns dot(a,b) / (||a|| * ||b||), or 0 when either
// vector has zero magnitude or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
