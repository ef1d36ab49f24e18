package usecases

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		raw  string
		want entities.VerdictKind
	}{
		{"FACT", entities.VerdictFact},
		{"FACT.", entities.VerdictFact},
		{"'FACT'", entities.VerdictFact},
		{"FACTUAL answer follows", entities.VerdictFact},
		{"META\nMAP: x\nREDUCE: y", entities.VerdictMeta},
		{"fact", entities.VerdictMeta},
		{" FACT", entities.VerdictMeta},
		{"The answer is FACT", entities.VerdictMeta},
		{"", entities.VerdictMeta},
		{"¯\\_(ツ)_/¯", entities.VerdictMeta},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseVerdict(tt.raw).Kind)
		})
	}
}

func TestParseVerdict_MetaCarriesTemplates(t *testing.T) {
	v := ParseVerdict("META\nMAP: Check for a title.\nREDUCE: Count the titles.")

	assert.Equal(t, entities.VerdictMeta, v.Kind)
	assert.False(t, v.Degenerate)
	assert.Equal(t, ": Check for a title.\n Context: {context}", v.Map.Text())
	assert.Equal(t, ": Count the titles. Context: {summaries}", v.Reduce.Text())
}

func TestParseVerdict_GarbageIsDegenerateMeta(t *testing.T) {
	v := ParseVerdict("sorry, I cannot help with that")

	assert.Equal(t, entities.VerdictMeta, v.Kind)
	assert.True(t, v.Degenerate)
	assert.True(t, v.Map.IsDegenerate())
	assert.True(t, v.Reduce.IsDegenerate())
}

func TestClassifier_Classify(t *testing.T) {
	invoker := &mockInvoker{fn: func(ctx context.Context, prompt string, cfg entities.ModelConfig) (string, error) {
		return "FACT", nil
	}}
	model := entities.ModelConfig{Model: "supervisor", Temperature: 0}
	c := NewClassifier(invoker, model, nil)

	v, err := c.Classify(context.Background(), "  Who wrote\nthe report?  ")
	require.NoError(t, err)
	assert.Equal(t, entities.VerdictFact, v.Kind)

	require.Equal(t, 1, invoker.total())
	call := invoker.calls[0]
	assert.Equal(t, model, call.Config)
	assert.NotContains(t, call.Prompt, "\n")
	assert.True(t, strings.HasSuffix(call.Prompt, "Who wrote the report?"))
	assert.True(t, strings.HasPrefix(call.Prompt, "You supervise"))
}

func TestClassifier_InvokerError(t *testing.T) {
	boom := errors.New("rate limited")
	invoker := &mockInvoker{fn: func(ctx context.Context, prompt string, cfg entities.ModelConfig) (string, error) {
		return "", boom
	}}
	c := NewClassifier(invoker, entities.ModelConfig{Model: "supervisor"}, nil)

	_, err := c.Classify(context.Background(), "How many documents are there?")
	require.Error(t, err)

	var mie *entities.ModelInvocationError
	require.ErrorAs(t, err, &mie)
	assert.Equal(t, entities.StageClassify, mie.Stage)
	assert.Equal(t, "supervisor", mie.Model)
	assert.ErrorIs(t, err, boom)
}
