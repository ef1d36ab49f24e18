// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Document represents a source document (PDF, TXT, MD).
// This is a core entity - no knowledge of storage or external systems.
type Document struct {
	ID        string
	Name      string
	Path      string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentID derives the deterministic id of the document stored at path.
func DocumentID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

// Chunk represents a piece of a document for embedding.
// Retrievers return chunks ranked by similarity; that order is preserved by the executors.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	Index      int       // Position in document
	Embedding  []float32 // Vector representation (populated by adapter)
}

// QueryResult represents a search result with relevance.
type QueryResult struct {
	Chunk     Chunk
	Score     float64 // Similarity score
	SourceDoc string  // Document name for citation
}

// Turn is one prior (question, answer) exchange of a conversation.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// History is the ordered conversation so far. The core never validates or truncates it.
type History []Turn

// VerdictKind is the classifier's structural decision for a question.
type VerdictKind string

const (
	// VerdictFact marks a narrow lookup answerable from a few retrieved passages.
	VerdictFact VerdictKind = "FACT"
	// VerdictMeta marks a corpus-wide aggregation question.
	VerdictMeta VerdictKind = "META"
)

// Verdict is the classifier output. Map and Reduce are only meaningful for VerdictMeta.
type Verdict struct {
	Kind   VerdictKind
	Map    Template
	Reduce Template

	// Degenerate is set when MAP or REDUCE could not be located in the classifier text
	// and the corresponding template carries an empty instruction.
	Degenerate bool
}

// Slot names used by the generated templates.
const (
	SlotContext   = "context"
	SlotSummaries = "summaries"
)

// Template is a classifier-generated instruction with a single context slot.
type Template struct {
	Instruction string
	Slot        string
}

// NewTemplate builds a template around a free-form instruction.
func NewTemplate(instruction, slot string) Template {
	return Template{Instruction: instruction, Slot: slot}
}

// Text returns the executable template: the instruction followed by its context clause.
func (t Template) Text() string {
	return t.Instruction + " Context: {" + t.Slot + "}"
}

// Render substitutes value into the template's slot.
func (t Template) Render(value string) string {
	return strings.ReplaceAll(t.Text(), "{"+t.Slot+"}", value)
}

// IsDegenerate reports whether the template has no instruction of its own.
func (t Template) IsDegenerate() bool {
	return strings.TrimSpace(t.Instruction) == ""
}

// Answer is the final result handed back to the transport layer.
type Answer struct {
	Text              string      `json:"text"`
	Kind              VerdictKind `json:"kind"`
	IntermediateSteps []string    `json:"intermediateSteps,omitempty"`
	Degenerate        bool        `json:"degenerate,omitempty"`
}

// NormalizeQuestion trims the question and replaces newlines with spaces,
// the form every prompt receives it in.
func NormalizeQuestion(q string) string {
	return strings.ReplaceAll(strings.TrimSpace(q), "\n", " ")
}
