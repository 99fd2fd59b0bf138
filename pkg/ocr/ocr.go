package ocr

import "context"

// Document is one input publication handed to the engine, raw PDF bytes
// plus the corpus name it was listed under.
type Document struct {
	Name string
	Data []byte
}

// PageResult is the engine output for a single page, in page order.
type PageResult struct {
	PageNumber  int
	Text        string
	Confidence  float64
	FigureHints []string
	TableHints  []string
	ImageRef    string
	Image       []byte
}

// Engine converts a document into ordered per-page text. Implementations
// must return pages sorted by page number and never skip a page silently;
// a page that could not be read is returned with empty text and a low
// confidence instead.
type Engine interface {
	Process(ctx context.Context, doc Document) ([]PageResult, error)
}
