// Package usecases contains application business rules.
// Usecases orchestrate entities and depend only on port interfaces: the router decides
// between the fact and meta executors, the retriever and ingestion feed them the corpus.
package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
	"github.com/0xcro3dile/metarag-go/internal/domain/ports"
)

// QuestionClassifier decides how a question is answered.
type QuestionClassifier interface {
	Classify(ctx context.Context, question string) (entities.Verdict, error)
}

// FactRunner answers FACT questions.
type FactRunner interface {
	Run(ctx context.Context, question string, history entities.History) (*entities.Answer, error)
}

// MetaRunner answers META questions from classifier-generated templates.
type MetaRunner interface {
	Run(ctx context.Context, mapTmpl, reduceTmpl entities.Template, history entities.History) (*entities.Answer, error)
}

// Router ties the classifier verdict to the executor that answers the question.
type Router struct {
	classifier QuestionClassifier
	fact       FactRunner
	meta       MetaRunner
	logger     *zap.Logger
}

// NewRouter creates a Router over explicit collaborators.
func NewRouter(classifier QuestionClassifier, fact FactRunner, meta MetaRunner, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{classifier: classifier, fact: fact, meta: meta, logger: logger}
}

// NewEngine wires classifier and both executors around one invoker and one retriever.
func NewEngine(invoker ports.ModelInvoker, retriever ports.Retriever, cfg EngineConfig, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return NewRouter(
		NewClassifier(invoker, cfg.Roles.Classifier, logger),
		NewFactExecutor(retriever, invoker, cfg.Roles.Fact, logger),
		NewMetaExecutor(retriever, invoker, cfg, logger),
		logger,
	)
}

// Route classifies the question and dispatches it. Classifier and executor failures
// are returned unmodified; there is no retry and no fallback path.
func (r *Router) Route(ctx context.Context, question string, history entities.History) (*entities.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, &entities.ValidationError{Field: "question", Reason: entities.ErrEmptyQuestion}
	}
	if RequestID(ctx) == "" {
		ctx = WithRequestID(ctx, uuid.NewString())
	}
	log := r.logger.With(zap.String("request_id", RequestID(ctx)))
	start := time.Now()

	verdict, err := r.classifier.Classify(ctx, question)
	if err != nil {
		log.Error("classification failed", zap.Error(err))
		return nil, err
	}
	log.Info("question classified", zap.String("verdict", string(verdict.Kind)))

	var answer *entities.Answer
	switch verdict.Kind {
	case entities.VerdictFact:
		answer, err = r.fact.Run(ctx, question, history)
	default:
		answer, err = r.meta.Run(ctx, verdict.Map, verdict.Reduce, history)
	}
	if err != nil {
		log.Error("answering failed", zap.String("verdict", string(verdict.Kind)), zap.Error(err))
		return nil, err
	}

	log.Info("question answered",
		zap.String("verdict", string(verdict.Kind)),
		zap.Duration("duration", time.Since(start)))
	return answer, nil
}
