package engine

import (
	"reflect"
	"strings"
	"testing"
)

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"kubernetes", "kubernetes"},
		{"Kubernetes", "kubernetes"},
		{"  Kubernetes  ", "kubernetes"},
		{"Raft   Consensus", "raft consensus"},
		{"raft\tconsensus", "raft consensus"},
		{"raft\nconsensus\nlog", "raft consensus log"},
		{"TCP/IP", "tcp/ip"}, // punctuation kept, only case and spacing change
		{"état", "état"},
		{"", ""},
		{"   ", ""},
		{"\t\n", ""},
	}

	for _, tt := range tests {
		got := normalizeLabel(tt.input)
		if got != tt.want {
			t.Errorf("normalizeLabel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeLabelTruncatesLongInput(t *testing.T) {
	long := strings.Repeat("word ", 50) // 250 chars, over the 120 limit
	got := normalizeLabel(long)
	if len(got) > maxLabelChars {
		t.Errorf("label length = %d, want ≤ %d", len(got), maxLabelChars)
	}
	if strings.HasSuffix(got, " ") {
		t.Error("truncated label has trailing space")
	}
	if got == "" {
		t.Error("long label normalized to empty")
	}
}

func TestNormalizeBatch(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"drops empties", []string{"raft", "", "   ", "paxos"}, []string{"raft", "paxos"}},
		{"dedupes after normalizing", []string{"Raft", "raft", "  RAFT  "}, []string{"raft"}},
		{"keeps first-seen order", []string{"zebra", "apple", "zebra"}, []string{"zebra", "apple"}},
		{"all empty", []string{"", "  "}, []string{}},
		{"nil input", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeBatch(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeBatch(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncateClean(t *testing.T) {
	s := "hello world this is a test string"
	result := truncateClean(s, 15)
	if len(result) > 15 {
		t.Errorf("truncateClean result too long: %d", len(result))
	}
	// Should cut at word boundary
	if strings.HasSuffix(result, " ") {
		t.Error("truncated result has trailing space")
	}
}

func TestTruncateCleanShortInput(t *testing.T) {
	if got := truncateClean("short", 120); got != "short" {
		t.Errorf("truncateClean left short input alone, got %q", got)
	}
}
