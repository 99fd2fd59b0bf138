package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bionexus/backend/pkg/ai"
	"github.com/bionexus/backend/pkg/logger"
)

const transcriptionPrompt = "You are a document transcription engine. " +
	"Transcribe all text visible on this scientific publication page. " +
	"Preserve the reading order, keep section headings, figure captions and " +
	"table contents. Output plain text only, no commentary."

// VisionEngine implements Engine by rendering PDF pages to images and
// transcribing each page with a vision model. When the model fails on a
// page, the embedded text layer is used instead.
type VisionEngine struct {
	client      ai.NexusAIClient
	renderDPI   int
	maxParallel int
	pageTimeout time.Duration
}

// VisionEngineParams configures a VisionEngine.
type VisionEngineParams struct {
	Client      ai.NexusAIClient
	RenderDPI   int
	MaxParallel int
	PageTimeout time.Duration
}

// NewVisionEngine creates a vision-based OCR engine.
func NewVisionEngine(params VisionEngineParams) *VisionEngine {
	if params.RenderDPI <= 0 {
		params.RenderDPI = 150
	}
	if params.MaxParallel <= 0 {
		params.MaxParallel = 4
	}
	if params.PageTimeout <= 0 {
		params.PageTimeout = 2 * time.Minute
	}
	return &VisionEngine{
		client:      params.Client,
		renderDPI:   params.RenderDPI,
		maxParallel: params.MaxParallel,
		pageTimeout: params.PageTimeout,
	}
}

// Process renders the document and transcribes every page. Pages are
// returned in order; transcription runs in a bounded fan-out.
func (e *VisionEngine) Process(ctx context.Context, doc Document) ([]PageResult, error) {
	images, err := renderPages(ctx, doc.Data, e.renderDPI)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", doc.Name, err)
	}

	results := make([]PageResult, len(images))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(e.maxParallel)

	for i := range images {
		idx := i
		eg.Go(func() error {
			pageNum := idx + 1
			results[idx] = e.processPage(ectx, doc, images[idx], pageNum)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (e *VisionEngine) processPage(ctx context.Context, doc Document, image []byte, pageNum int) PageResult {
	pCtx, cancel := context.WithTimeout(ctx, e.pageTimeout)
	defer cancel()

	text, err := e.client.GenerateImageDescription(pCtx, transcriptionPrompt, image, "image/png")
	confidence := 0.95
	if err != nil {
		logger.Warn("[OCR] Vision transcription failed, using text layer", "doc", doc.Name, "page", pageNum, "err", err)
		text, err = extractPageText(ctx, doc.Data, pageNum)
		confidence = 0.75
		if err != nil {
			logger.Error("[OCR] Text layer extraction failed", "doc", doc.Name, "page", pageNum, "err", err)
			text = ""
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		confidence = 0.1
	} else if len(text) < 200 {
		confidence = confidence - 0.1
	}

	return PageResult{
		PageNumber:  pageNum,
		Text:        text,
		Confidence:  confidence,
		FigureHints: DetectFigureHints(text),
		TableHints:  DetectTableHints(text),
		ImageRef:    fmt.Sprintf("%s#page=%d", doc.Name, pageNum),
		Image:       image,
	}
}
