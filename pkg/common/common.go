package common

import "time"

// EntityType classifies an extracted entity.
type EntityType string

const (
	EntityOrganism   EntityType = "Organism"
	EntityEndpoint   EntityType = "Endpoint"
	EntityInstrument EntityType = "Instrument"
	EntityDataset    EntityType = "Dataset"
	EntityExperiment EntityType = "Experiment"
	EntityGrant      EntityType = "Grant"
	EntityUnknown    EntityType = "Unknown"
)

// RelationType classifies an edge between two entities.
type RelationType string

const (
	RelationInvestigated RelationType = "INVESTIGATED"
	RelationReports      RelationType = "REPORTS"
	RelationDerivedFrom  RelationType = "DERIVED_FROM"
	RelationMentions     RelationType = "MENTIONS"
)

// Publication is the root node for an ingested document. Identity is
// immutable once created; the remaining fields are filled in as pages
// complete.
type Publication struct {
	PubID          string    `json:"pub_id"`
	Title          string    `json:"title"`
	Authors        []string  `json:"authors"`
	Abstract       string    `json:"abstract"`
	Year           int       `json:"year"`
	Journal        string    `json:"journal"`
	DOI            string    `json:"doi"`
	FundingSources []string  `json:"funding_sources"`
	TotalPages     int       `json:"total_pages"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Page is one OCR'd page of a publication. Every page belongs to exactly
// one publication via a PART_OF edge.
type Page struct {
	PageID           string    `json:"page_id"`
	PubID            string    `json:"pub_id"`
	PageNumber       int       `json:"page_number"`
	OCRText          string    `json:"ocr_text"`
	ImageURL         string    `json:"image_url"`
	Embedding        []float32 `json:"embedding,omitempty"`
	ExtractedFigures []string  `json:"extracted_figures"`
	ExtractedTables  []string  `json:"extracted_tables"`
}

// Mention is one occurrence of an entity reference at a specific text
// span, before deduplication and merging.
type Mention struct {
	Text       string     `json:"text"`
	Type       EntityType `json:"type"`
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Confidence float64    `json:"confidence"`
	PageID     string     `json:"page_id"`
	// CanonicalID is an external identifier (taxonomy, protein database)
	// when canonicalization resolved one. Empty otherwise.
	CanonicalID string `json:"canonical_id,omitempty"`
	Context     string `json:"context,omitempty"`
}

// EntityRecord is the merged entity node as persisted in the graph.
// The merge key is (type, normalized name); re-encountering the key
// accumulates mentions and keeps the maximum confidence seen.
type EntityRecord struct {
	EntityID    string     `json:"entity_id"`
	Name        string     `json:"name"`
	Type        EntityType `json:"type"`
	CanonicalID string     `json:"canonical_id,omitempty"`
	Confidence  float64    `json:"confidence"`
	Mentions    []Mention  `json:"mentions"`
}

// RelationEdge is a typed, directional edge between two entity nodes
// carrying confidence and textual evidence spans.
type RelationEdge struct {
	SourceEntityID string       `json:"source_entity_id"`
	TargetEntityID string       `json:"target_entity_id"`
	Type           RelationType `json:"type"`
	Confidence     float64      `json:"confidence"`
	Evidence       []string     `json:"evidence"`
	PageID         string       `json:"page_id"`
}

// RankedResult is the common result shape produced by every retrieval
// strategy. Score semantics depend on the strategy that produced it.
type RankedResult struct {
	ID       string   `json:"id"`
	PubID    string   `json:"pub_id"`
	PageID   string   `json:"page_id,omitempty"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Year     int      `json:"year,omitempty"`
	Snippet  string   `json:"snippet"`
	Score    float64  `json:"score"`
	Entities []string `json:"entities,omitempty"`
}

// Citation references one evidence passage backing a claim in a
// generated answer.
type Citation struct {
	CitationID int     `json:"citation_id"`
	PubID      string  `json:"pub_id"`
	PageID     string  `json:"page_id"`
	Snippet    string  `json:"snippet"`
	Confidence float64 `json:"confidence"`
}

// Answer is the result of citation-grounded synthesis. When evidence is
// insufficient the flag is set and CandidateSources lists publications
// worth reading instead.
type Answer struct {
	Answer               string     `json:"answer"`
	Citations            []Citation `json:"citations"`
	Confidence           float64    `json:"confidence"`
	InsufficientEvidence bool       `json:"insufficient_evidence"`
	CandidateSources     []string   `json:"candidate_sources,omitempty"`
}

// Clamp bounds a confidence score to [0, 1].
func Clamp(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
