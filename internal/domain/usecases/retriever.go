package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
	"github.com/0xcro3dile/metarag-go/internal/domain/ports"
)

// DefaultTopK is the retriever's own fan-out when callers pass no limit.
const DefaultTopK = 4

// VectorRetriever implements ports.Retriever on top of an embedder and a vector store.
type VectorRetriever struct {
	embedder    ports.EmbeddingService
	vectorStore ports.VectorStore
	topK        int
}

// NewVectorRetriever creates a VectorRetriever with injected dependencies.
func NewVectorRetriever(embedder ports.EmbeddingService, vectorStore ports.VectorStore, topK int) *VectorRetriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &VectorRetriever{
		embedder:    embedder,
		vectorStore: vectorStore,
		topK:        topK,
	}
}

// Retrieve returns up to limit chunks ranked by similarity to query.
// An empty query has nothing to rank by and returns chunks in corpus order instead.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, limit int) ([]entities.Chunk, error) {
	if limit <= 0 {
		limit = r.topK
	}

	if strings.TrimSpace(query) == "" {
		chunks, err := r.vectorStore.List(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("listing chunks: %w", err)
		}
		return chunks, nil
	}

	// 1. Embed the query
	queryEmbedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	// 2. Search vector store
	results, err := r.vectorStore.Search(ctx, queryEmbedding, limit)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}

	chunks := make([]entities.Chunk, len(results))
	for i, res := range results {
		chunks[i] = res.Chunk
	}
	return chunks, nil
}
