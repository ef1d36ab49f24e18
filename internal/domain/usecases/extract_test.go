package usecases

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/0xcro3dile/metarag-go/internal/domain/entities"
)

func TestExtractTemplates(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		wantMap        string
		wantReduce     string
		wantDegenerate bool
	}{
		{
			name:       "well formed",
			input:      "META\nMAP: List all authors.\nREDUCE: Merge the lists.",
			wantMap:    ": List all authors.\n",
			wantReduce: ": Merge the lists.",
		},
		{
			name:           "no delimiters",
			input:          "I am not sure what you mean.",
			wantDegenerate: true,
		},
		{
			name:           "map without reduce",
			input:          "META MAP: count headers",
			wantMap:        ": count headers",
			wantDegenerate: true,
		},
		{
			name:           "reduce without map",
			input:          "META REDUCE: sum",
			wantReduce:     ": sum",
			wantDegenerate: true,
		},
		{
			name:       "reduce before map",
			input:      "REDUCE: b MAP: a",
			wantMap:    ": a",
			wantReduce: ": b MAP: a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, r, degenerate := ExtractTemplates(tt.input)
			assert.Equal(t, tt.wantMap, m.Instruction)
			assert.Equal(t, tt.wantReduce, r.Instruction)
			assert.Equal(t, entities.SlotContext, m.Slot)
			assert.Equal(t, entities.SlotSummaries, r.Slot)
			assert.Equal(t, tt.wantDegenerate, degenerate)
		})
	}
}

func TestExtractBetween(t *testing.T) {
	got, ok := extractBetween("xxAyyBzz", "A", "B")
	assert.True(t, ok)
	assert.Equal(t, "yy", got)

	got, ok = extractBetween("xxAyy", "A", "")
	assert.True(t, ok)
	assert.Equal(t, "yy", got)

	got, ok = extractBetween("xxBAyy", "A", "B")
	assert.True(t, ok)
	assert.Equal(t, "yy", got)

	_, ok = extractBetween("xxyy", "A", "B")
	assert.False(t, ok)
}

func TestExtractTemplates_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mapInstr := rapid.StringMatching(`[a-z ,.']{0,40}`).Draw(t, "map")
		reduceInstr := rapid.StringMatching(`[a-z ,.']{0,40}`).Draw(t, "reduce")

		m, r, degenerate := ExtractTemplates("META\nMAP:" + mapInstr + "\nREDUCE:" + reduceInstr)
		if degenerate {
			t.Fatalf("well formed response reported as degenerate")
		}
		if m.Instruction != ":"+mapInstr+"\n" {
			t.Fatalf("map instruction = %q", m.Instruction)
		}
		if r.Instruction != ":"+reduceInstr {
			t.Fatalf("reduce instruction = %q", r.Instruction)
		}
	})
}

func TestExtractTemplates_NeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.String().Draw(t, "input")
		m, r, degenerate := ExtractTemplates(input)
		if !strings.Contains(input, mapDelimiter) && !degenerate {
			t.Fatalf("missing MAP must be degenerate")
		}
		if !strings.Contains(m.Text(), "{"+entities.SlotContext+"}") ||
			!strings.Contains(r.Text(), "{"+entities.SlotSummaries+"}") {
			t.Fatalf("templates lost their slot")
		}
	})
}
