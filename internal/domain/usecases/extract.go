package usecases

import (
	"strings"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
)

// Delimiters the classifier uses to introduce the generated instructions.
const (
	mapDelimiter    = "MAP"
	reduceDelimiter = "REDUCE"
)

// ExtractTemplates parses MAP and REDUCE instructions out of classifier text.
// It never fails: a missing delimiter yields a template with an empty instruction,
// and degenerate reports that this happened for at least one of them.
func ExtractTemplates(text string) (mapTmpl, reduceTmpl entities.Template, degenerate bool) {
	mapInstr, mapOK := extractBetween(text, mapDelimiter, reduceDelimiter)
	reduceInstr, reduceOK := extractBetween(text, reduceDelimiter, "")

	mapTmpl = entities.NewTemplate(mapInstr, entities.SlotContext)
	reduceTmpl = entities.NewTemplate(reduceInstr, entities.SlotSummaries)
	return mapTmpl, reduceTmpl, !mapOK || !reduceOK
}

// extractBetween returns the text after the first a and before the first b.
// When b is absent, empty or precedes a, everything after a is returned.
func extractBetween(input, a, b string) (string, bool) {
	start := strings.Index(input, a)
	if start == -1 {
		return "", false
	}
	end := strings.Index(input, b)
	if b != "" && end > start {
		return input[start+len(a) : end], true
	}
	return input[start+len(a):], true
}
