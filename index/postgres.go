package index

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Postgres is the pgvector-backed index backend. Chunks for each session
// live under a collection id in a shared table, so ranking semantics match
// the in-memory backend while the vectors survive in the database.
type Postgres struct {
	pool       *pgxpool.Pool
	embedder   Embedder
	collection string
	dimension  int
}

func NewPostgres(pool *pgxpool.Pool, embedder Embedder, collection string, dimension int) *Postgres {
	return &Postgres{
		pool:       pool,
		embedder:   embedder,
		collection: collection,
		dimension:  dimension,
	}
}

func (p *Postgres) Insert(ctx context.Context, key string, vector []float32) error {
	if p.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if len(vector) != p.dimension {
		return fmt.Errorf("%w: index dimension %d, vector length %d", ErrDimensionMismatch, p.dimension, len(vector))
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO doc_chunks (id, collection, position, content, embedding)
		SELECT $1, $2, COALESCE(MAX(position) + 1, 0), $3, $4
		FROM doc_chunks WHERE collection = $2
	`, uuid.NewString(), p.collection, key, pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	return nil
}

func (p *Postgres) Search(ctx context.Context, query []float32, k int) ([]RetrievedChunk, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if k <= 0 {
		return nil, nil
	}

	// <=> is cosine distance; earlier insertion (lower position) wins ties.
	rows, err := p.pool.Query(ctx, `
		SELECT content, 1 - (embedding <=> $1::vector) AS score
		FROM doc_chunks
		WHERE collection = $2
		ORDER BY embedding <=> $1::vector, position
		LIMIT $3
	`, pgvector.NewVector(query), p.collection, k)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	results := make([]RetrievedChunk, 0, k)
	for rows.Next() {
		var item RetrievedChunk
		if err := rows.Scan(&item.Text, &item.Score); err != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", err)
		}
		results = append(results, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return results, nil
}

func (p *Postgres) SearchByText(ctx context.Context, query string, k int) ([]RetrievedChunk, error) {
	vectors, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}
	return p.Search(ctx, vectors[0], k)
}

func (p *Postgres) Keys(ctx context.Context) ([]string, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := p.pool.Query(ctx, `
		SELECT content FROM doc_chunks
		WHERE collection = $1
		ORDER BY position
	`, p.collection)
	if err != nil {
		return nil, fmt.Errorf("query chunk keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan chunk key: %w", err)
		}
		keys = append(keys, key)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return keys, nil
}

var _ Index = (*Postgres)(nil)
