package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bionexus/backend/pkg/common"
)

func TestCanonicalizeOrganism(t *testing.T) {
	ncbi := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/esearch.fcgi" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"esearchresult": {"idlist": ["562"]}}`))
	}))
	defer ncbi.Close()

	c := NewCanonicalizer(CanonicalizerParams{NCBIBaseURL: ncbi.URL})
	mentions := c.Canonicalize(context.Background(), []common.Mention{
		{Text: "Escherichia coli", Type: common.EntityOrganism},
	})

	if mentions[0].CanonicalID != "NCBITaxon:562" {
		t.Errorf("CanonicalID = %q, want NCBITaxon:562", mentions[0].CanonicalID)
	}
}

func TestCanonicalizeProteinEndpoint(t *testing.T) {
	uniprot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [{"primaryAccession": "P0AGD3"}]}`))
	}))
	defer uniprot.Close()

	c := NewCanonicalizer(CanonicalizerParams{
		NCBIBaseURL:    "http://127.0.0.1:1", // unused for endpoints
		UniProtBaseURL: uniprot.URL,
	})
	mentions := c.Canonicalize(context.Background(), []common.Mention{
		{Text: "SodA protein", Type: common.EntityEndpoint},
	})

	if mentions[0].CanonicalID != "UniProt:P0AGD3" {
		t.Errorf("CanonicalID = %q, want UniProt:P0AGD3", mentions[0].CanonicalID)
	}
}

func TestCanonicalizeLookupFailure(t *testing.T) {
	// unroutable base URL, lookups must fail silently
	c := NewCanonicalizer(CanonicalizerParams{
		NCBIBaseURL:    "http://127.0.0.1:1",
		UniProtBaseURL: "http://127.0.0.1:1",
	})
	mentions := c.Canonicalize(context.Background(), []common.Mention{
		{Text: "Escherichia coli", Type: common.EntityOrganism},
		{Text: "growth rate", Type: common.EntityEndpoint},
	})

	for _, mention := range mentions {
		if mention.CanonicalID != "" {
			t.Errorf("mention %q got CanonicalID %q, want empty", mention.Text, mention.CanonicalID)
		}
	}
}

func TestCanonicalizeNoMatch(t *testing.T) {
	ncbi := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"esearchresult": {"idlist": []}}`))
	}))
	defer ncbi.Close()

	c := NewCanonicalizer(CanonicalizerParams{NCBIBaseURL: ncbi.URL})
	mentions := c.Canonicalize(context.Background(), []common.Mention{
		{Text: "Unknownus organismus", Type: common.EntityOrganism},
	})

	if mentions[0].CanonicalID != "" {
		t.Errorf("CanonicalID = %q, want empty", mentions[0].CanonicalID)
	}
}

func TestIsProteinName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{name: "SodA", want: true},
		{name: "TP53", want: true},
		{name: "heat shock protein", want: true},
		{name: "growth rate", want: false},
		{name: "microgravity", want: false},
	}
	for _, tt := range tests {
		if got := isProteinName(tt.name); got != tt.want {
			t.Errorf("isProteinName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
