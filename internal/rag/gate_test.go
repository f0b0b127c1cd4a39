package rag

import (
	"strings"
	"testing"

	"github.com/techmentor-ai/techmentor/internal/knowledge"
)

func resultsWithLengths(lengths ...int) []knowledge.Result {
	results := make([]knowledge.Result, len(lengths))
	for i, n := range lengths {
		results[i] = knowledge.Result{
			Document: knowledge.Document{Content: strings.Repeat("x", n)},
		}
	}
	return results
}

func TestGate_Relevant(t *testing.T) {
	gate := NewGate()

	tests := []struct {
		name    string
		results []knowledge.Result
		want    bool
	}{
		{"no documents", nil, false},
		{"single long document", resultsWithLengths(1000), false},
		{"two short documents", resultsWithLengths(200, 200), false},
		{"two documents at threshold", resultsWithLengths(250, 250), true},
		{"two documents just under", resultsWithLengths(250, 249), false},
		{"many documents with enough text", resultsWithLengths(100, 200, 300), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gate.Relevant(tt.results); got != tt.want {
				t.Errorf("Relevant() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGate_CustomThresholds(t *testing.T) {
	gate := &Gate{MinDocs: 1, MinTotalLength: 10}

	if !gate.Relevant(resultsWithLengths(10)) {
		t.Error("one 10-char document should pass a 1/10 gate")
	}
	if gate.Relevant(resultsWithLengths(9)) {
		t.Error("9 chars should fail a 1/10 gate")
	}
}
