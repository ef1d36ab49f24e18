package entities

import (
	"errors"
	"fmt"
)

// ErrEmptyQuestion is matched by every ValidationError raised for a missing question.
var ErrEmptyQuestion = errors.New("no question in the request")

// ValidationError rejects a request before any collaborator is called.
type ValidationError struct {
	Field  string
	Reason error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Reason }

// Stages at which a model invocation can fail.
const (
	StageClassify = "classify"
	StageFact     = "fact"
	StageMap      = "map"
	StageReduce   = "reduce"
)

// ModelInvocationError wraps any failure surfaced by a model invoker.
type ModelInvocationError struct {
	Stage string
	Model string
	Index int // chunk index for the map stage, -1 otherwise
	Err   error
}

func (e *ModelInvocationError) Error() string {
	if e.Stage == StageMap && e.Index >= 0 {
		return fmt.Sprintf("model %s failed at %s[%d]: %v", e.Model, e.Stage, e.Index, e.Err)
	}
	return fmt.Sprintf("model %s failed at %s: %v", e.Model, e.Stage, e.Err)
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }

// RetrieverError wraps a failure of the document retriever.
// Limit 0 stands for the retriever's default fan-out.
type RetrieverError struct {
	Query string
	Limit int
	Err   error
}

func (e *RetrieverError) Error() string {
	if e.Limit <= 0 {
		return fmt.Sprintf("retrieving chunks: %v", e.Err)
	}
	return fmt.Sprintf("retrieving up to %d chunks: %v", e.Limit, e.Err)
}

func (e *RetrieverError) Unwrap() error { return e.Err }
