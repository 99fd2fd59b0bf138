// Package vecindex maintains the page-level vector index used by semantic
// retrieval. Each entry holds one page embedding plus enough payload to
// render a ranked result without a graph round trip.
package vecindex

import "context"

// Payload is the metadata stored alongside each vector.
type Payload struct {
	Title      string   `json:"title"`
	Authors    []string `json:"authors"`
	Year       int      `json:"year"`
	PageNumber int      `json:"page_number"`
	Snippet    string   `json:"snippet"`
}

// Entry is one indexed page.
type Entry struct {
	ID      string    `json:"id"`
	PubID   string    `json:"pub_id"`
	PageID  string    `json:"page_id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

// Hit is a scored search result.
type Hit struct {
	Entry Entry   `json:"entry"`
	Score float64 `json:"score"`
}

// Index abstracts the vector store.
type Index interface {
	// Upsert writes entries in a single batch. An entry with an already
	// indexed ID replaces the previous vector and payload.
	Upsert(ctx context.Context, entries []Entry) error
	// Search returns up to topK entries by cosine similarity, dropping
	// hits below threshold. Results are ordered best first.
	Search(ctx context.Context, vector []float32, topK int, threshold float64) ([]Hit, error)
	// DeleteByPub removes every entry belonging to a publication.
	DeleteByPub(ctx context.Context, pubID string) error
	Close(ctx context.Context) error
}
