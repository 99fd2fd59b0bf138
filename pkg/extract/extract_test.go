package extract

import (
	"context"
	"math"
	"testing"

	"github.com/bionexus/backend/pkg/common"
)

func TestDedupe(t *testing.T) {
	mentions := []common.Mention{
		{Text: "Human", Type: common.EntityOrganism, Confidence: 0.8},
		{Text: "human", Type: common.EntityOrganism, Confidence: 0.9},
	}

	got := Dedupe(mentions)
	if len(got) != 1 {
		t.Fatalf("Dedupe() returned %d mentions, want 1", len(got))
	}
	if got[0].Confidence != 0.9 {
		t.Errorf("Dedupe() kept confidence %v, want 0.9", got[0].Confidence)
	}
}

func TestDedupeKeepsDistinctTypes(t *testing.T) {
	mentions := []common.Mention{
		{Text: "coli", Type: common.EntityOrganism, Confidence: 0.8},
		{Text: "coli", Type: common.EntityDataset, Confidence: 0.7},
	}

	got := Dedupe(mentions)
	if len(got) != 2 {
		t.Fatalf("Dedupe() returned %d mentions, want 2", len(got))
	}
}

func TestModelConfidence(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "short lowercase", text: "yeast", want: 0.70},
		{name: "short uppercase", text: "Yeast", want: 0.75},
		{name: "long uppercase", text: "Spectrometry", want: 0.85},
		{name: "genus species", text: "Escherichia coli", want: 0.95},
		{name: "short genus species", text: "Mus mus", want: 0.85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := modelConfidence(tt.text)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("modelConfidence(%q) = %v, want %v", tt.text, got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("modelConfidence(%q) = %v out of bounds", tt.text, got)
			}
		})
	}
}

func TestEntityIDDeterministic(t *testing.T) {
	a := EntityID(common.EntityOrganism, "Escherichia coli")
	b := EntityID(common.EntityOrganism, "  escherichia COLI ")
	if a != b {
		t.Errorf("EntityID not normalization-invariant: %q vs %q", a, b)
	}

	c := EntityID(common.EntityDataset, "Escherichia coli")
	if a == c {
		t.Error("EntityID collides across types")
	}
}

func TestRulePass(t *testing.T) {
	text := "Samples of Escherichia coli were spun in a centrifuge."
	mentions := rulePass(text, "page_1")

	var organism, instrument *common.Mention
	for i := range mentions {
		switch mentions[i].Type {
		case common.EntityOrganism:
			organism = &mentions[i]
		case common.EntityInstrument:
			instrument = &mentions[i]
		}
	}

	if organism == nil {
		t.Fatal("rulePass found no organism")
	}
	if organism.Text != "Escherichia coli" || organism.Confidence != 0.80 {
		t.Errorf("organism = %q conf %v, want Escherichia coli conf 0.80", organism.Text, organism.Confidence)
	}
	if instrument == nil {
		t.Fatal("rulePass found no instrument")
	}
	if instrument.Confidence != 0.75 {
		t.Errorf("instrument confidence = %v, want 0.75", instrument.Confidence)
	}
}

func TestExtractWithoutRecognizer(t *testing.T) {
	extractor := NewExtractor(nil)
	mentions := extractor.Extract(context.Background(), "Escherichia coli grown in a bioreactor.", "page_1")

	if len(mentions) != 2 {
		t.Fatalf("Extract() returned %d mentions, want 2", len(mentions))
	}
	for _, mention := range mentions {
		if mention.Confidence < 0 || mention.Confidence > 1 {
			t.Errorf("mention %q confidence %v out of bounds", mention.Text, mention.Confidence)
		}
		if mention.PageID != "page_1" {
			t.Errorf("mention %q page = %q, want page_1", mention.Text, mention.PageID)
		}
	}
}

func TestMapEntityType(t *testing.T) {
	if got := mapEntityType("organism"); got != common.EntityOrganism {
		t.Errorf("mapEntityType(organism) = %v", got)
	}
	if got := mapEntityType("PLASMID"); got != common.EntityUnknown {
		t.Errorf("mapEntityType(PLASMID) = %v, want Unknown", got)
	}
}
