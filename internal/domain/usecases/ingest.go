package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
	"github.com/0xcro3dile/metarag-go/internal/domain/ports"
)

// IngestUseCase turns documents into embedded chunks in the vector store,
// the corpus the retriever answers from.
type IngestUseCase struct {
	embedder     ports.EmbeddingService
	vectorStore  ports.VectorStore
	loader       ports.DocumentLoader
	chunkSize    int
	chunkOverlap int
	logger       *zap.Logger
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
// loader may be nil when documents are only ingested through Ingest.
func NewIngestUseCase(
	embedder ports.EmbeddingService,
	vectorStore ports.VectorStore,
	loader ports.DocumentLoader,
	chunkSize, chunkOverlap int,
	logger *zap.Logger,
) *IngestUseCase {
	if chunkSize <= 0 {
		chunkSize = 500 // characters
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestUseCase{
		embedder:     embedder,
		vectorStore:  vectorStore,
		loader:       loader,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger,
	}
}

// Ingest processes a document: chunks it, embeds it, stores it.
func (uc *IngestUseCase) Ingest(ctx context.Context, doc *entities.Document) error {
	chunks, err := uc.embedDocument(ctx, doc)
	if err != nil {
		return err
	}
	return uc.store(ctx, doc, chunks)
}

// IngestFile loads the file at path and replaces any chunks previously stored for it.
// The old chunks are only removed once the new ones are embedded.
func (uc *IngestUseCase) IngestFile(ctx context.Context, path string) error {
	if uc.loader == nil {
		return fmt.Errorf("ingesting %s: no document loader configured", path)
	}
	doc, err := uc.loader.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	chunks, err := uc.embedDocument(ctx, doc)
	if err != nil {
		return err
	}
	if err := uc.vectorStore.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return uc.store(ctx, doc, chunks)
}

// embedDocument chunks doc and embeds all chunk texts in one batch.
func (uc *IngestUseCase) embedDocument(ctx context.Context, doc *entities.Document) ([]entities.Chunk, error) {
	chunks := uc.chunkDocument(doc)
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	embeddings, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", doc.Name, err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding %s: got %d vectors for %d chunks", doc.Name, len(embeddings), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}
	return chunks, nil
}

func (uc *IngestUseCase) store(ctx context.Context, doc *entities.Document, chunks []entities.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := uc.vectorStore.Store(ctx, chunks); err != nil {
		return fmt.Errorf("storing %s: %w", doc.Name, err)
	}
	uc.logger.Debug("document ingested", zap.String("document", doc.Name), zap.Int("chunks", len(chunks)))
	return nil
}

// IngestDir ingests every supported file below dir and returns how many were ingested.
func (uc *IngestUseCase) IngestDir(ctx context.Context, dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !uc.supported(path) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := uc.IngestFile(ctx, path); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}
	uc.logger.Info("directory ingested", zap.String("dir", dir), zap.Int("documents", count))
	return count, nil
}

// Watch keeps the store in sync with dir until ctx is done.
// Failures on single files are logged and do not stop the loop.
func (uc *IngestUseCase) Watch(ctx context.Context, watcher ports.FileWatcher, dir string) error {
	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			log := uc.logger.With(zap.String("path", event.Path), zap.Stringer("op", event.Operation))

			var err error
			switch event.Operation {
			case ports.FileCreated, ports.FileModified:
				err = uc.IngestFile(ctx, event.Path)
			case ports.FileDeleted:
				err = uc.Delete(ctx, entities.DocumentID(event.Path))
			}
			if err != nil {
				log.Warn("sync failed", zap.Error(err))
				continue
			}
			log.Info("corpus updated")
		}
	}
}

// Delete removes a document from the store.
func (uc *IngestUseCase) Delete(ctx context.Context, documentID string) error {
	return uc.vectorStore.Delete(ctx, documentID)
}

func (uc *IngestUseCase) supported(path string) bool {
	if uc.loader == nil {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range uc.loader.SupportedExtensions() {
		if e == ext {
			return true
		}
	}
	return false
}

// chunkDocument splits document content into overlapping chunks.
func (uc *IngestUseCase) chunkDocument(doc *entities.Document) []entities.Chunk {
	content := strings.TrimSpace(doc.Content)
	if len(content) == 0 {
		return nil
	}

	var chunks []entities.Chunk
	start := 0
	index := 0

	for start < len(content) {
		end := start + uc.chunkSize
		if end > len(content) {
			end = len(content)
		}

		// Try to break at word boundary, otherwise at a rune boundary
		if end < len(content) {
			lastSpace := strings.LastIndex(content[start:end], " ")
			if lastSpace > 0 {
				end = start + lastSpace
			} else {
				end = runeBoundary(content, start, end)
			}
		}

		chunkContent := strings.TrimSpace(content[start:end])
		if len(chunkContent) > 0 {
			chunks = append(chunks, entities.Chunk{
				ID:         generateChunkID(doc.ID, index),
				DocumentID: doc.ID,
				Content:    chunkContent,
				Index:      index,
			})
			index++
		}

		if end == len(content) {
			break
		}
		next := end - uc.chunkOverlap
		for next > start && next < end && !utf8.RuneStart(content[next]) {
			next++
		}
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// runeBoundary moves end back to the start of the rune it falls in.
// A window narrower than that rune is widened past it instead.
func runeBoundary(content string, start, end int) int {
	cut := end
	for cut > start && !utf8.RuneStart(content[cut]) {
		cut--
	}
	if cut > start {
		return cut
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}
	return end
}

// generateChunkID creates a deterministic ID for a chunk.
func generateChunkID(docID string, index int) string {
	hash := sha256.Sum256([]byte(docID + ":" + strconv.Itoa(index)))
	return hex.EncodeToString(hash[:8])
}
