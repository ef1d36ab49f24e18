// Package app wires configuration into the engine, ingestion and their adapters.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/metarag-go/internal/adapters/embedding"
	"github.com/0xcro3dile/metarag-go/internal/adapters/filewatcher"
	"github.com/0xcro3dile/metarag-go/internal/adapters/llm"
	"github.com/0xcro3dile/metarag-go/internal/adapters/loader"
	"github.com/0xcro3dile/metarag-go/internal/adapters/parser"
	"github.com/0xcro3dile/metarag-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/metarag-go/internal/config"
	"github.com/0xcro3dile/metarag-go/internal/domain/ports"
	"github.com/0xcro3dile/metarag-go/internal/domain/usecases"
)

// App holds the wired components of one process.
type App struct {
	Config *config.AppConfig
	Logger *zap.Logger
	Engine *usecases.Router
	Ingest *usecases.IngestUseCase
	Loader *loader.MultiLoader

	store     ports.VectorStore
	pdfParser *parser.PDFServiceParser
	closers   []func() error
}

// chunkCounter is implemented by stores that can report their size.
type chunkCounter interface {
	ChunkCount(ctx context.Context) (int, error)
}

// New builds every component cfg selects. Close releases what it opened.
func New(cfg *config.AppConfig, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	invoker, err := newInvoker(cfg, logger)
	if err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger}
	store, err := a.newStore()
	if err != nil {
		return nil, err
	}

	a.store = store

	var pdfParser ports.DocumentParser
	if cfg.Ingest.PDFServiceURL != "" {
		a.pdfParser = parser.NewPDFServiceParser(cfg.Ingest.PDFServiceURL, logger.Named("parser"))
		pdfParser = a.pdfParser
	}
	a.Loader = loader.NewMultiLoader(pdfParser)

	retriever := usecases.NewVectorRetriever(embedder, store, cfg.Engine.FactTopK)
	a.Engine = usecases.NewEngine(invoker, retriever, EngineConfig(cfg), logger.Named("engine"))
	a.Ingest = usecases.NewIngestUseCase(embedder, store, a.Loader,
		cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, logger.Named("ingest"))
	return a, nil
}

// EngineConfig maps the file configuration onto the engine's.
func EngineConfig(cfg *config.AppConfig) usecases.EngineConfig {
	return usecases.EngineConfig{
		Roles:                   cfg.Models,
		MaxChunks:               cfg.Engine.MaxChunks,
		MetaQuery:               cfg.Engine.MetaQuery,
		ReturnIntermediateSteps: cfg.Engine.ReturnIntermediateSteps,
	}
}

// ChunkCount reports how many chunks the store holds.
func (a *App) ChunkCount(ctx context.Context) (int, error) {
	c, ok := a.store.(chunkCounter)
	if !ok {
		return 0, fmt.Errorf("store %q cannot count chunks", a.Config.Store.Type)
	}
	return c.ChunkCount(ctx)
}

// CheckPDFService warns when PDF ingestion is configured but its service does not answer.
// It reports whether PDFs can be ingested.
func (a *App) CheckPDFService(ctx context.Context) bool {
	if a.pdfParser == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if !a.pdfParser.IsServiceHealthy(ctx) {
		a.Logger.Warn("pdf service unreachable, pdf files will fail to ingest",
			zap.String("url", a.Config.Ingest.PDFServiceURL))
		return false
	}
	return true
}

// NewWatcher creates a file watcher for the extensions the loader supports.
func (a *App) NewWatcher() (ports.FileWatcher, error) {
	w, err := filewatcher.NewFSNotifyWatcher(a.Loader.SupportedExtensions(), a.Logger.Named("watcher"))
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	a.closers = append(a.closers, w.Stop)
	return w, nil
}

// Close releases stores and watchers in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newInvoker(cfg *config.AppConfig, logger *zap.Logger) (ports.ModelInvoker, error) {
	timeout := time.Duration(cfg.LLM.TimeoutSecs) * time.Second
	log := logger.Named("llm")

	var inner ports.ModelInvoker
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		inv, err := llm.NewOpenAIInvoker(llm.OpenAIConfig{
			APIKey:  cfg.APIKey(),
			BaseURL: cfg.LLM.BaseURL,
			Timeout: timeout,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("%w (set %s)", err, cfg.LLM.APIKeyEnv)
		}
		inner = inv
	case config.ProviderOllama:
		inner = llm.NewOllamaInvoker(cfg.LLM.BaseURL, timeout, log)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
	return llm.NewGate(inner, cfg.LLM.RequestsPerSecond, log), nil
}

func newEmbedder(cfg *config.AppConfig, logger *zap.Logger) (ports.EmbeddingService, error) {
	log := logger.Named("embedding")
	switch cfg.Embedding.Provider {
	case config.ProviderOpenAI:
		e, err := embedding.NewOpenAIAdapter(cfg.APIKey(), cfg.Embedding.BaseURL, cfg.Embedding.Model, log)
		if err != nil {
			return nil, fmt.Errorf("%w (set %s)", err, cfg.LLM.APIKeyEnv)
		}
		return e, nil
	case config.ProviderOllama:
		return embedding.NewOllamaAdapter(cfg.Embedding.BaseURL, cfg.Embedding.Model, log), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

func (a *App) newStore() (ports.VectorStore, error) {
	switch a.Config.Store.Type {
	case config.StoreMemory:
		return vectordb.NewInMemoryStore(), nil
	case config.StoreSQLite:
		s, err := vectordb.NewSQLiteStore(a.Config.Store.Path, a.Logger.Named("store"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store type %q", a.Config.Store.Type)
	}
}
