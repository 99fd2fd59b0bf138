package vecindex

import (
	"context"
	"math"
	"testing"
)

func TestMemoryIndexSearch(t *testing.T) {
	index := NewMemoryIndex()
	err := index.Upsert(context.Background(), []Entry{
		{ID: "a", PubID: "pub_1", PageID: "page_1", Vector: []float32{1, 0, 0}},
		{ID: "b", PubID: "pub_1", PageID: "page_2", Vector: []float32{0.9, 0.1, 0}},
		{ID: "c", PubID: "pub_2", PageID: "page_3", Vector: []float32{0, 1, 0}},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := index.Search(context.Background(), []float32{1, 0, 0}, 2, 0.5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Entry.ID != "a" {
		t.Errorf("expected best hit a, got %s", hits[0].Entry.ID)
	}
	if hits[1].Entry.ID != "b" {
		t.Errorf("expected second hit b, got %s", hits[1].Entry.ID)
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("hits out of order: %f < %f", hits[0].Score, hits[1].Score)
	}
	// the orthogonal vector must be filtered by the threshold
	for _, hit := range hits {
		if hit.Entry.ID == "c" {
			t.Error("orthogonal entry passed the threshold")
		}
	}
}

func TestMemoryIndexUpsertReplaces(t *testing.T) {
	index := NewMemoryIndex()
	ctx := context.Background()

	if err := index.Upsert(ctx, []Entry{{ID: "a", Vector: []float32{1, 0}}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := index.Upsert(ctx, []Entry{{ID: "a", Vector: []float32{0, 1}}}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if index.Len() != 1 {
		t.Fatalf("expected 1 entry after replace, got %d", index.Len())
	}

	hits, err := index.Search(ctx, []float32{0, 1}, 1, 0.9)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected replaced vector to match, got %d hits", len(hits))
	}
}

func TestMemoryIndexDeleteByPub(t *testing.T) {
	index := NewMemoryIndex()
	ctx := context.Background()

	err := index.Upsert(ctx, []Entry{
		{ID: "a", PubID: "pub_1", Vector: []float32{1, 0}},
		{ID: "b", PubID: "pub_1", Vector: []float32{0, 1}},
		{ID: "c", PubID: "pub_2", Vector: []float32{1, 1}},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := index.DeleteByPub(ctx, "pub_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if index.Len() != 1 {
		t.Errorf("expected 1 remaining entry, got %d", index.Len())
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 0}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}
