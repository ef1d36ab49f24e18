package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
)

func TestFactExecutor_Run(t *testing.T) {
	retriever := &mockRetriever{chunks: []entities.Chunk{
		{Content: "John Miller drafted the second chapter."},
		{Content: "The law was passed in March."},
	}}
	invoker := &mockInvoker{fn: func(ctx context.Context, prompt string, cfg entities.ModelConfig) (string, error) {
		return "He drafted chapter two.", nil
	}}
	model := entities.ModelConfig{Model: "qa"}
	exec := NewFactExecutor(retriever, invoker, model, nil)

	history := entities.History{{Question: "Hi", Answer: "Hello!"}}
	answer, err := exec.Run(context.Background(), " What did\nJohn Miller do? ", history)
	require.NoError(t, err)

	assert.Equal(t, "He drafted chapter two.", answer.Text)
	assert.Equal(t, entities.VerdictFact, answer.Kind)
	assert.Empty(t, answer.IntermediateSteps)

	require.Len(t, retriever.calls, 1)
	assert.Equal(t, retrieveCall{Query: "What did John Miller do?", Limit: 0}, retriever.calls[0])

	require.Equal(t, 1, invoker.total())
	prompt := invoker.calls[0].Prompt
	assert.Contains(t, prompt, "Human: Hi\nAssistant: Hello!")
	assert.Contains(t, prompt, "John Miller drafted the second chapter.\n\nThe law was passed in March.")
	assert.Contains(t, prompt, "Question: What did John Miller do?")
	assert.Equal(t, model, invoker.calls[0].Config)
}

func TestFactExecutor_RetrieverError(t *testing.T) {
	boom := errors.New("index offline")
	invoker := &mockInvoker{}
	exec := NewFactExecutor(&mockRetriever{err: boom}, invoker, entities.ModelConfig{Model: "qa"}, nil)

	_, err := exec.Run(context.Background(), "When?", nil)

	var re *entities.RetrieverError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "retrieving chunks: index offline", err.Error())
	assert.Zero(t, invoker.total())
}

func TestFactExecutor_InvokerError(t *testing.T) {
	boom := errors.New("timeout")
	invoker := &mockInvoker{fn: func(ctx context.Context, prompt string, cfg entities.ModelConfig) (string, error) {
		return "", boom
	}}
	exec := NewFactExecutor(&mockRetriever{}, invoker, entities.ModelConfig{Model: "qa"}, nil)

	_, err := exec.Run(context.Background(), "When?", nil)

	var mie *entities.ModelInvocationError
	require.ErrorAs(t, err, &mie)
	assert.Equal(t, entities.StageFact, mie.Stage)
	assert.ErrorIs(t, err, boom)
}

func TestBuildQAPrompt_NoHistory(t *testing.T) {
	prompt := buildQAPrompt("Why?", nil, nil)
	assert.NotContains(t, prompt, "Chat history:")
	assert.Contains(t, prompt, "Question: Why?")
}
