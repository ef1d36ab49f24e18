package usecases

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
	"github.com/0xcro3dile/metarag-go/internal/domain/ports"
)

// FactExecutor answers a factual question with one retrieval and one model call.
type FactExecutor struct {
	retriever ports.Retriever
	invoker   ports.ModelInvoker
	model     entities.ModelConfig
	logger    *zap.Logger
}

// NewFactExecutor creates a FactExecutor with injected dependencies.
func NewFactExecutor(retriever ports.Retriever, invoker ports.ModelInvoker, model entities.ModelConfig, logger *zap.Logger) *FactExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FactExecutor{
		retriever: retriever,
		invoker:   invoker,
		model:     model,
		logger:    logger,
	}
}

// Run retrieves context for the question and asks the model once.
// History is rendered into the prompt as given.
func (e *FactExecutor) Run(ctx context.Context, question string, history entities.History) (*entities.Answer, error) {
	q := entities.NormalizeQuestion(question)
	start := time.Now()

	// 1. Retrieve with the retriever's default fan-out
	chunks, err := e.retriever.Retrieve(ctx, q, 0)
	if err != nil {
		return nil, &entities.RetrieverError{Query: q, Err: err}
	}

	// 2. One combined prompt, one call
	text, err := e.invoker.Invoke(ctx, buildQAPrompt(q, history, chunks), e.model)
	if err != nil {
		return nil, &entities.ModelInvocationError{
			Stage: entities.StageFact,
			Model: e.model.Model,
			Index: -1,
			Err:   err,
		}
	}

	e.logger.Debug("fact answer generated",
		zap.String("request_id", RequestID(ctx)),
		zap.Int("chunks", len(chunks)),
		zap.Int("history_turns", len(history)),
		zap.Duration("duration", time.Since(start)))

	return &entities.Answer{Text: text, Kind: entities.VerdictFact}, nil
}
