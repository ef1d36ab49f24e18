// Package vectordb provides vector store adapters.
// Clean Architecture: adapters implementing ports.VectorStore.
// InMemoryStore serves tests and throwaway runs, SQLiteStore persists the corpus.
package vectordb

import (
	"context"
	"sort"
	"sync"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
)

// InMemoryStore is a simple in-memory vector store.
// Open-Closed: can be replaced with SQLiteStore without changing usecases.
type InMemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]entities.Chunk // chunkID -> chunk
	docs   map[string]map[string]struct{}
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		chunks: make(map[string]entities.Chunk),
		docs:   make(map[string]map[string]struct{}),
	}
}

// Store saves chunks with their embeddings. A chunk with an existing ID replaces it.
func (s *InMemoryStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		s.chunks[chunk.ID] = chunk
		ids, ok := s.docs[chunk.DocumentID]
		if !ok {
			ids = make(map[string]struct{})
			s.docs[chunk.DocumentID] = ids
		}
		ids[chunk.ID] = struct{}{}
	}
	return nil
}

// Search finds the most similar chunks to a query embedding.
func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	return rankTopK(embedding, s.all(), topK), nil
}

// ChunkCount returns the number of stored chunks.
func (s *InMemoryStore) ChunkCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// List returns up to limit chunks ordered by document and position.
func (s *InMemoryStore) List(ctx context.Context, limit int) ([]entities.Chunk, error) {
	chunks := s.all()
	sort.Slice(chunks, func(i, j int) bool { return corpusLess(chunks[i], chunks[j]) })
	if limit >= 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}
	return chunks, nil
}

// Delete removes all chunks for a document.
func (s *InMemoryStore) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.docs[documentID] {
		delete(s.chunks, id)
	}
	delete(s.docs, documentID)
	return nil
}

// Clear removes all data from the store.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = make(map[string]entities.Chunk)
	s.docs = make(map[string]map[string]struct{})
	return nil
}

func (s *InMemoryStore) all() []entities.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := make([]entities.Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		chunks = append(chunks, c)
	}
	return chunks
}
