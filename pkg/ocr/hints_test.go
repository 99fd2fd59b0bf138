package ocr

import (
	"reflect"
	"testing"
)

func TestDetectFigureHints(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "classifies captions by keyword",
			text: "Figure 1. Electron micrograph of the sample.\nsome prose\nFig. 2: Growth curve over time.",
			want: []string{"micrograph", "graph"},
		},
		{
			name: "schematic maps to diagram",
			text: "Figure 3: Schematic of the bioreactor loop.",
			want: []string{"diagram"},
		},
		{
			name: "no captions",
			text: "Plain paragraph without any captions.",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectFigureHints(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DetectFigureHints() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectTableHints(t *testing.T) {
	text := "Table 1. Endpoints measured.\nbody\nTable 2: Instrument settings."
	got := DetectTableHints(text)
	want := []string{"table", "table"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DetectTableHints() = %v, want %v", got, want)
	}
}

func TestExtractPageNum(t *testing.T) {
	tests := []struct {
		path string
		want int
	}{
		{path: "/tmp/x/page-1.png", want: 1},
		{path: "/tmp/x/page-12.png", want: 12},
		{path: "/tmp/x/page.png", want: 0},
	}
	for _, tt := range tests {
		if got := extractPageNum(tt.path); got != tt.want {
			t.Errorf("extractPageNum(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}
}
