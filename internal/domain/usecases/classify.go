package usecases

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
	"github.com/0xcro3dile/metarag-go/internal/domain/ports"
)

// factPrefixLen is how much of the classifier response the decision looks at.
const factPrefixLen = 5

// Classifier asks the supervising model whether a question is FACT or META.
type Classifier struct {
	invoker ports.ModelInvoker
	model   entities.ModelConfig
	logger  *zap.Logger
}

// NewClassifier creates a Classifier calling model through invoker.
func NewClassifier(invoker ports.ModelInvoker, model entities.ModelConfig, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{invoker: invoker, model: model, logger: logger}
}

// Classify issues exactly one model call and parses its response into a Verdict.
func (c *Classifier) Classify(ctx context.Context, question string) (entities.Verdict, error) {
	log := c.logger.With(zap.String("request_id", RequestID(ctx)), zap.String("stage", entities.StageClassify))

	start := time.Now()
	raw, err := c.invoker.Invoke(ctx, buildSupervisorPrompt(question), c.model)
	if err != nil {
		return entities.Verdict{}, &entities.ModelInvocationError{
			Stage: entities.StageClassify,
			Model: c.model.Model,
			Index: -1,
			Err:   err,
		}
	}

	verdict := ParseVerdict(raw)
	log.Debug("supervisor replied",
		zap.String("verdict", string(verdict.Kind)),
		zap.Int("response_len", len(raw)),
		zap.Duration("duration", time.Since(start)))
	if verdict.Degenerate {
		log.Warn("classifier response lacks MAP or REDUCE; meta path runs with empty instructions",
			zap.Bool("map_degenerate", verdict.Map.IsDegenerate()),
			zap.Bool("reduce_degenerate", verdict.Reduce.IsDegenerate()))
	}
	return verdict, nil
}

// ParseVerdict applies the decision rule to a raw classifier response.
// Only a response starting with FACT (optionally quoted) is a fact question;
// anything else, including garbled output, is treated as META.
func ParseVerdict(raw string) entities.Verdict {
	if isFactResponse(raw) {
		return entities.Verdict{Kind: entities.VerdictFact}
	}
	mapTmpl, reduceTmpl, degenerate := ExtractTemplates(raw)
	return entities.Verdict{
		Kind:       entities.VerdictMeta,
		Map:        mapTmpl,
		Reduce:     reduceTmpl,
		Degenerate: degenerate,
	}
}

func isFactResponse(raw string) bool {
	head := raw
	if len(head) > factPrefixLen {
		head = head[:factPrefixLen]
	}
	head = strings.TrimPrefix(head, "'")
	return strings.HasPrefix(head, string(entities.VerdictFact))
}
