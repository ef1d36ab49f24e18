package usecases

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
	"github.com/0xcro3dile/metarag-go/internal/domain/ports"
)

// mapOutputSeparator keeps per-chunk contributions distinguishable for the reduce step.
const mapOutputSeparator = "\n\n"

// MetaExecutor runs the classifier-generated map/reduce synthesis over the corpus.
type MetaExecutor struct {
	retriever ports.Retriever
	invoker   ports.ModelInvoker
	cfg       EngineConfig
	logger    *zap.Logger
}

// NewMetaExecutor creates a MetaExecutor. Zero config fields fall back to DefaultEngineConfig.
func NewMetaExecutor(retriever ports.Retriever, invoker ports.ModelInvoker, cfg EngineConfig, logger *zap.Logger) *MetaExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaExecutor{
		retriever: retriever,
		invoker:   invoker,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Run maps mapTmpl over up to MaxChunks retrieved chunks and reduces the ordered outputs
// with reduceTmpl. Any failure fails the whole run; reduce never sees partial map results.
// The question is not re-injected: the templates already encode its intent.
func (e *MetaExecutor) Run(ctx context.Context, mapTmpl, reduceTmpl entities.Template, history entities.History) (*entities.Answer, error) {
	log := e.logger.With(zap.String("request_id", RequestID(ctx)))
	start := time.Now()

	// 1. Bounded retrieval
	chunks, err := e.retriever.Retrieve(ctx, e.cfg.MetaQuery, e.cfg.MaxChunks)
	if err != nil {
		return nil, &entities.RetrieverError{Query: e.cfg.MetaQuery, Limit: e.cfg.MaxChunks, Err: err}
	}
	if len(chunks) > e.cfg.MaxChunks {
		chunks = chunks[:e.cfg.MaxChunks]
	}

	// 2. Map phase
	outputs, err := e.mapChunks(ctx, mapTmpl, chunks)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Debug("map phase complete",
		zap.Int("chunks", len(chunks)),
		zap.String("model", e.cfg.Roles.Map.Model),
		zap.Duration("duration", time.Since(start)))

	// 3. Ordered concatenation, 4. single reduce call
	blob := strings.Join(outputs, mapOutputSeparator)
	text, err := e.invoker.Invoke(ctx, reduceTmpl.Render(blob), e.cfg.Roles.Reduce)
	if err != nil {
		return nil, &entities.ModelInvocationError{
			Stage: entities.StageReduce,
			Model: e.cfg.Roles.Reduce.Model,
			Index: -1,
			Err:   err,
		}
	}

	log.Info("meta answer generated",
		zap.Int("chunks", len(chunks)),
		zap.Int("history_turns", len(history)),
		zap.Duration("duration", time.Since(start)))

	answer := &entities.Answer{
		Text:       text,
		Kind:       entities.VerdictMeta,
		Degenerate: mapTmpl.IsDegenerate() || reduceTmpl.IsDegenerate(),
	}
	if e.cfg.ReturnIntermediateSteps {
		answer.IntermediateSteps = outputs
	}
	return answer, nil
}

// mapChunks applies tmpl to every chunk with at most Roles.Map.MaxConcurrency calls in flight.
// Each task writes only its own slot, so outputs keep retrieval order whatever the completion order.
func (e *MetaExecutor) mapChunks(ctx context.Context, tmpl entities.Template, chunks []entities.Chunk) ([]string, error) {
	outputs := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Roles.Map.MaxConcurrency)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := e.invoker.Invoke(gctx, tmpl.Render(chunk.Content), e.cfg.Roles.Map)
			if err != nil {
				return &entities.ModelInvocationError{
					Stage: entities.StageMap,
					Model: e.cfg.Roles.Map.Model,
					Index: i,
					Err:   err,
				}
			}
			outputs[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}
