package util

import (
	"reflect"
	"testing"
)

func TestKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "drops stopwords and short tokens",
			text: "What is the effect of microgravity on E. coli?",
			want: []string{"effect", "microgravity", "coli"},
		},
		{
			name: "lowercases tokens",
			text: "Escherichia Coli Growth",
			want: []string{"escherichia", "coli", "growth"},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "punctuation only",
			text: "?!. ,",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Keywords(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Keywords(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{name: "shorter than limit", text: "short", limit: 10, want: "short"},
		{name: "exactly at limit", text: "12345", limit: 5, want: "12345"},
		{name: "over limit", text: "1234567890", limit: 4, want: "1234..."},
		{name: "zero limit returns input", text: "abc", limit: 0, want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.text, tt.limit); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("First sentence. Second one! Third? trailing fragment")
	want := []string{"First sentence.", "Second one!", "Third?", "trailing fragment"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitSentences() = %v, want %v", got, want)
	}
}
