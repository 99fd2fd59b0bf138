package graphstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bionexus/backend/pkg/common"
)

func seedPublication(t *testing.T, store *MemoryStore, pubID string, title string) {
	t.Helper()
	err := store.CreatePublication(context.Background(), &common.Publication{
		PubID:     pubID,
		Title:     title,
		Year:      2021,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("create publication: %v", err)
	}
}

func seedPage(t *testing.T, store *MemoryStore, pageID string, pubID string, text string) {
	t.Helper()
	err := store.CreatePage(context.Background(), &common.Page{
		PageID:     pageID,
		PubID:      pubID,
		PageNumber: 1,
		OCRText:    text,
	})
	if err != nil {
		t.Fatalf("create page: %v", err)
	}
}

func TestMemoryStorePublicationRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	seedPublication(t, store, "pub_1", "Heat stress in E. coli")

	pub, err := store.GetPublication(context.Background(), "pub_1")
	if err != nil {
		t.Fatalf("get publication: %v", err)
	}
	if pub.Title != "Heat stress in E. coli" {
		t.Errorf("unexpected title: %s", pub.Title)
	}

	_, err = store.GetPublication(context.Background(), "pub_missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreCreatePageRequiresPublication(t *testing.T) {
	store := NewMemoryStore()

	err := store.CreatePage(context.Background(), &common.Page{PageID: "page_1", PubID: "pub_ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown publication, got %v", err)
	}
}

func TestMemoryStoreMergeEntity(t *testing.T) {
	store := NewMemoryStore()

	first := &common.EntityRecord{
		EntityID:   "organism_abc",
		Name:       "Escherichia coli",
		Type:       common.EntityOrganism,
		Confidence: 0.80,
		Mentions:   []common.Mention{{Text: "E. coli", Context: "cultures of E. coli"}},
	}
	if err := store.MergeEntity(context.Background(), first); err != nil {
		t.Fatalf("merge entity: %v", err)
	}

	second := &common.EntityRecord{
		EntityID:    "organism_abc",
		Name:        "Escherichia coli",
		Type:        common.EntityOrganism,
		CanonicalID: "NCBITaxon:562",
		Confidence:  0.95,
		Mentions:    []common.Mention{{Text: "Escherichia coli", Context: "growth of Escherichia coli"}},
	}
	if err := store.MergeEntity(context.Background(), second); err != nil {
		t.Fatalf("merge entity again: %v", err)
	}

	entity, ok := store.Entity("organism_abc")
	if !ok {
		t.Fatal("entity not stored")
	}
	if entity.Confidence != 0.95 {
		t.Errorf("expected max confidence 0.95, got %f", entity.Confidence)
	}
	if len(entity.Mentions) != 2 {
		t.Errorf("expected union of 2 mentions, got %d", len(entity.Mentions))
	}
	if entity.CanonicalID != "NCBITaxon:562" {
		t.Errorf("expected canonical id set on merge, got %q", entity.CanonicalID)
	}

	// lower confidence and a different canonical id must not overwrite
	third := &common.EntityRecord{
		EntityID:    "organism_abc",
		Name:        "Escherichia coli",
		Type:        common.EntityOrganism,
		CanonicalID: "NCBITaxon:999",
		Confidence:  0.50,
	}
	if err := store.MergeEntity(context.Background(), third); err != nil {
		t.Fatalf("merge entity third time: %v", err)
	}
	entity, _ = store.Entity("organism_abc")
	if entity.Confidence != 0.95 {
		t.Errorf("confidence regressed to %f", entity.Confidence)
	}
	if entity.CanonicalID != "NCBITaxon:562" {
		t.Errorf("canonical id overwritten to %q", entity.CanonicalID)
	}
}

func TestMemoryStoreCreateRelation(t *testing.T) {
	store := NewMemoryStore()
	seedPublication(t, store, "pub_1", "title")
	seedPage(t, store, "page_1", "pub_1", "text")

	for _, id := range []string{"organism_a", "endpoint_b"} {
		err := store.MergeEntity(context.Background(), &common.EntityRecord{
			EntityID: id, Name: id, Type: common.EntityOrganism, Confidence: 0.8,
		})
		if err != nil {
			t.Fatalf("merge entity %s: %v", id, err)
		}
	}

	err := store.CreateRelation(context.Background(), &common.RelationEdge{
		SourceEntityID: "organism_a",
		TargetEntityID: "endpoint_b",
		Type:           common.RelationInvestigated,
		Confidence:     0.7,
		PageID:         "page_1",
	})
	if err != nil {
		t.Fatalf("create relation: %v", err)
	}

	err = store.CreateRelation(context.Background(), &common.RelationEdge{
		SourceEntityID: "organism_a",
		TargetEntityID: "endpoint_b",
		Type:           common.RelationType("EXPLODES"),
		Confidence:     0.7,
		PageID:         "page_1",
	})
	if err == nil {
		t.Error("expected error for unknown relation type")
	}

	err = store.CreateRelation(context.Background(), &common.RelationEdge{
		SourceEntityID: "organism_a",
		TargetEntityID: "entity_missing",
		Type:           common.RelationInvestigated,
		Confidence:     0.7,
		PageID:         "page_1",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing target, got %v", err)
	}

	if got := len(store.Relations()); got != 1 {
		t.Errorf("expected 1 stored relation, got %d", got)
	}
}

func TestMemoryStoreSearchPages(t *testing.T) {
	store := NewMemoryStore()
	seedPublication(t, store, "pub_1", "Thermal biology")
	seedPage(t, store, "page_1", "pub_1", "Escherichia coli cultures were grown at 42C.")
	seedPage(t, store, "page_2", "pub_1", "Methods for mass spectrometry analysis.")

	if err := store.MergeEntity(context.Background(), &common.EntityRecord{
		EntityID: "organism_ec", Name: "Escherichia coli", Type: common.EntityOrganism, Confidence: 0.8,
	}); err != nil {
		t.Fatalf("merge entity: %v", err)
	}
	if err := store.LinkMention(context.Background(), "organism_ec", "page_1"); err != nil {
		t.Fatalf("link mention: %v", err)
	}

	hits, err := store.SearchPages(context.Background(), "escherichia COLI", 10)
	if err != nil {
		t.Fatalf("search pages: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Page.PageID != "page_1" {
		t.Errorf("unexpected page: %s", hits[0].Page.PageID)
	}
	if hits[0].Publication.PubID != "pub_1" {
		t.Errorf("hit missing publication, got %q", hits[0].Publication.PubID)
	}
	if len(hits[0].Entities) != 1 || hits[0].Entities[0] != "Escherichia coli" {
		t.Errorf("unexpected entities on hit: %v", hits[0].Entities)
	}
}

func TestMemoryStoreFindPublicationsByKeywords(t *testing.T) {
	store := NewMemoryStore()
	seedPublication(t, store, "pub_1", "Heat stress responses in bacteria")
	seedPublication(t, store, "pub_2", "Proteomics of yeast")

	pubs, err := store.FindPublicationsByKeywords(context.Background(), []string{"heat", "missingword"}, 5)
	if err != nil {
		t.Fatalf("find publications: %v", err)
	}
	if len(pubs) != 1 || pubs[0].PubID != "pub_1" {
		t.Errorf("unexpected result: %+v", pubs)
	}

	pubs, err = store.FindPublicationsByKeywords(context.Background(), nil, 5)
	if err != nil {
		t.Fatalf("find publications with no keywords: %v", err)
	}
	if len(pubs) != 0 {
		t.Errorf("expected no results for empty keywords, got %d", len(pubs))
	}
}

func TestMemoryStoreStats(t *testing.T) {
	store := NewMemoryStore()
	seedPublication(t, store, "pub_1", "title")
	seedPage(t, store, "page_1", "pub_1", "text")

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Publications != 1 || stats.Pages != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
