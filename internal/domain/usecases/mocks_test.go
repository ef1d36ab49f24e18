package usecases

import (
	"context"
	"fmt"
	"sync"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
	"github.com/0xcro3dile/metarag-go/internal/domain/ports"
)

// mockEmbedder implements ports.EmbeddingService for testing
type mockEmbedder struct {
	embedFn func(text string) ([]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.embedFn != nil {
		return m.embedFn(text)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		emb, err := m.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		result[i] = emb
	}
	return result, nil
}

// mockVectorStore implements ports.VectorStore for testing
type mockVectorStore struct {
	mu        sync.Mutex
	chunks    []entities.Chunk
	deleted   []string
	listCalls []int
	storeFn   func(chunks []entities.Chunk) error
	searchErr error
}

func (m *mockVectorStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storeFn != nil {
		return m.storeFn(chunks)
	}
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *mockVectorStore) Search(ctx context.Context, emb []float32, topK int) ([]entities.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var results []entities.QueryResult
	for i, c := range m.chunks {
		if i >= topK {
			break
		}
		results = append(results, entities.QueryResult{Chunk: c, Score: 0.9})
	}
	return results, nil
}

func (m *mockVectorStore) List(ctx context.Context, limit int) ([]entities.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls = append(m.listCalls, limit)
	if limit > len(m.chunks) {
		limit = len(m.chunks)
	}
	return append([]entities.Chunk(nil), m.chunks[:limit]...), nil
}

func (m *mockVectorStore) Delete(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, docID)
	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.DocumentID != docID {
			kept = append(kept, c)
		}
	}
	m.chunks = kept
	return nil
}

func (m *mockVectorStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = nil
	return nil
}

func (m *mockVectorStore) snapshot() ([]entities.Chunk, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entities.Chunk(nil), m.chunks...), append([]string(nil), m.deleted...)
}

// invocation records one call made through mockInvoker.
type invocation struct {
	Prompt string
	Config entities.ModelConfig
}

// mockInvoker implements ports.ModelInvoker, delegating to fn and recording every call.
type mockInvoker struct {
	mu    sync.Mutex
	calls []invocation
	fn    func(ctx context.Context, prompt string, cfg entities.ModelConfig) (string, error)
}

func (m *mockInvoker) Invoke(ctx context.Context, prompt string, cfg entities.ModelConfig) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, invocation{Prompt: prompt, Config: cfg})
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(ctx, prompt, cfg)
	}
	return "ok", nil
}

func (m *mockInvoker) callsFor(model string) []invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []invocation
	for _, c := range m.calls {
		if c.Config.Model == model {
			out = append(out, c)
		}
	}
	return out
}

func (m *mockInvoker) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockRetriever implements ports.Retriever with a fixed result.
type mockRetriever struct {
	mu     sync.Mutex
	chunks []entities.Chunk
	err    error
	calls  []retrieveCall
}

type retrieveCall struct {
	Query string
	Limit int
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string, limit int) ([]entities.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, retrieveCall{Query: query, Limit: limit})
	if m.err != nil {
		return nil, m.err
	}
	return m.chunks, nil
}

// mockLoader implements ports.DocumentLoader for .txt files held in memory.
type mockLoader struct {
	contents map[string]string
}

func (m *mockLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	content, ok := m.contents[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return &entities.Document{ID: entities.DocumentID(path), Name: path, Path: path, Content: content}, nil
}

func (m *mockLoader) SupportedExtensions() []string { return []string{".txt"} }

// mockWatcher implements ports.FileWatcher over a caller-fed channel.
type mockWatcher struct {
	events chan ports.FileEvent
}

func (m *mockWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	return m.events, nil
}

func (m *mockWatcher) Stop() error { return nil }

// makeChunks returns n chunks whose content is "chunk-<i>".
func makeChunks(n int) []entities.Chunk {
	chunks := make([]entities.Chunk, n)
	for i := range chunks {
		chunks[i] = entities.Chunk{
			ID:         fmt.Sprintf("c%d", i),
			DocumentID: "doc",
			Content:    fmt.Sprintf("chunk-%d", i),
			Index:      i,
		}
	}
	return chunks
}

// testRoles uses a distinct model per role so calls can be told apart.
func testRoles() entities.ModelRoles {
	return entities.ModelRoles{
		Classifier: entities.ModelConfig{Model: "supervisor", MaxConcurrency: 1},
		Fact:       entities.ModelConfig{Model: "qa", MaxConcurrency: 1},
		Map:        entities.ModelConfig{Model: "mapper", MaxConcurrency: 3},
		Reduce:     entities.ModelConfig{Model: "reducer", MaxConcurrency: 1},
	}
}
