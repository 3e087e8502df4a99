package utils

import (
	"reflect"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "hello..."},
		{"hello", 0, "hello"},
		{"hello", -1, "hello"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.s, tt.maxLen); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Grievance filing deadline", []string{"grievance", "filing", "deadline"}},
		{"Article 12, Section 3(b)", []string{"article", "12", "section", "3", "b"}},
		{"  ", nil},
		{"don't", []string{"don", "t"}},
	}
	for _, tt := range tests {
		got := Tokenize(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalizeContent(t *testing.T) {
	a := CanonicalizeContent("Overtime   must be\n\tapproved.")
	b := CanonicalizeContent("overtime must be approved.")
	if a != b {
		t.Errorf("canonical forms differ: %q vs %q", a, b)
	}
	if a != "overtime must be approved." {
		t.Errorf("got %q", a)
	}
}
