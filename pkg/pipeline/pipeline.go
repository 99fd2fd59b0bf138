// Package pipeline runs the ingestion flow: OCR, entity and relation
// extraction, canonicalization, embedding and storage.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/bionexus/backend/internal/jobs"
	"github.com/bionexus/backend/internal/util"
	"github.com/bionexus/backend/pkg/common"
	"github.com/bionexus/backend/pkg/embed"
	"github.com/bionexus/backend/pkg/extract"
	"github.com/bionexus/backend/pkg/graphstore"
	"github.com/bionexus/backend/pkg/logger"
	"github.com/bionexus/backend/pkg/ocr"
	"github.com/bionexus/backend/pkg/vecindex"
)

const snippetLength = 200

// Pipeline wires the ingestion stages together.
type Pipeline struct {
	engine        ocr.Engine
	extractor     *extract.Extractor
	canonicalizer *extract.Canonicalizer
	encoder       *embed.Encoder
	graph         graphstore.GraphStore
	index         vecindex.Index
	jobStore      jobs.JobStore
}

// PipelineParams collects the pipeline dependencies.
type PipelineParams struct {
	Engine        ocr.Engine
	Extractor     *extract.Extractor
	Canonicalizer *extract.Canonicalizer
	Encoder       *embed.Encoder
	Graph         graphstore.GraphStore
	Index         vecindex.Index
	JobStore      jobs.JobStore
}

// NewPipeline creates a Pipeline from its dependencies.
func NewPipeline(params PipelineParams) *Pipeline {
	return &Pipeline{
		engine:        params.Engine,
		extractor:     params.Extractor,
		canonicalizer: params.Canonicalizer,
		encoder:       params.Encoder,
		graph:         params.Graph,
		index:         params.Index,
		jobStore:      params.JobStore,
	}
}

// Run processes a batch of documents under the given job. Documents are
// isolated from each other: one failing document is counted and skipped,
// the rest of the batch continues. The job completes with its per-document
// counts even when every document failed; Fail is for errors outside the
// document loop.
func (p *Pipeline) Run(ctx context.Context, jobID string, docs []ocr.Document) error {
	job, err := p.jobStore.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}

	job.Status = jobs.StatusRunning
	job.TotalDocs = len(docs)
	job.UpdatedAt = time.Now()
	if err := p.jobStore.Update(ctx, job); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	var lastErr error
	for _, doc := range docs {
		pubID, err := p.ProcessDocument(ctx, doc)
		if err != nil {
			logger.Error("[Pipeline] Document failed", "job", jobID, "document", doc.Name, "error", err)
			job.FailedDocs++
			lastErr = err
		} else {
			logger.Info("[Pipeline] Document ingested", "job", jobID, "document", doc.Name, "publication", pubID)
			job.ProcessedDocs++
		}
		job.UpdatedAt = time.Now()
		if err := p.jobStore.Update(ctx, job); err != nil {
			return fmt.Errorf("update job progress: %w", err)
		}
	}

	now := time.Now()
	job.UpdatedAt = now
	job.CompletedAt = &now
	job.Status = jobs.StatusCompleted
	if job.FailedDocs > 0 {
		job.Error = fmt.Sprintf("%d of %d documents failed, last error: %v", job.FailedDocs, len(docs), lastErr)
	}
	return p.jobStore.Update(ctx, job)
}

// Fail marks the job as failed. It is reserved for errors that abort the
// batch before or outside the per-document loop, such as an unreachable
// corpus store.
func (p *Pipeline) Fail(ctx context.Context, jobID string, cause error) error {
	job, err := p.jobStore.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	now := time.Now()
	job.Status = jobs.StatusFailed
	job.Error = cause.Error()
	job.UpdatedAt = now
	job.CompletedAt = &now
	return p.jobStore.Update(ctx, job)
}

// ProcessDocument ingests a single document and returns the new
// publication ID. Writes are ordered so that no page, entity or relation
// ever references a node that does not exist yet.
func (p *Pipeline) ProcessDocument(ctx context.Context, doc ocr.Document) (string, error) {
	nano, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate publication id: %w", err)
	}
	pubID := "pub_" + nano

	now := time.Now()
	pub := &common.Publication{
		PubID:     pubID,
		Title:     documentTitle(doc),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.graph.CreatePublication(ctx, pub); err != nil {
		return "", fmt.Errorf("store publication: %w", err)
	}

	pages, err := p.engine.Process(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("ocr %s: %w", doc.Name, err)
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("ocr %s: no pages", doc.Name)
	}

	pub.Title = publicationTitle(doc, pages)
	pub.TotalPages = len(pages)
	pub.UpdatedAt = time.Now()
	if err := p.graph.UpdatePublication(ctx, pub); err != nil {
		return "", fmt.Errorf("update publication: %w", err)
	}

	var entries []vecindex.Entry
	for _, pageResult := range pages {
		page := &common.Page{
			PageID:           fmt.Sprintf("%s_p%d", pubID, pageResult.PageNumber),
			PubID:            pubID,
			PageNumber:       pageResult.PageNumber,
			OCRText:          pageResult.Text,
			ImageURL:         pageResult.ImageRef,
			ExtractedFigures: pageResult.FigureHints,
			ExtractedTables:  pageResult.TableHints,
		}
		if err := p.graph.CreatePage(ctx, page); err != nil {
			return "", fmt.Errorf("store page %d: %w", pageResult.PageNumber, err)
		}

		if err := p.processPageEntities(ctx, page); err != nil {
			return "", err
		}

		entry, err := p.encodePage(ctx, pub, page, pageResult.Image)
		if err != nil {
			logger.Warn("[Pipeline] Page not indexed", "page", page.PageID, "error", err)
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) > 0 {
		if err := p.index.Upsert(ctx, entries); err != nil {
			return "", fmt.Errorf("index pages: %w", err)
		}
	}
	return pubID, nil
}

func (p *Pipeline) processPageEntities(ctx context.Context, page *common.Page) error {
	mentions := p.extractor.Extract(ctx, page.OCRText, page.PageID)
	if p.canonicalizer != nil {
		mentions = p.canonicalizer.Canonicalize(ctx, mentions)
	}

	for _, mention := range mentions {
		entity := &common.EntityRecord{
			EntityID:    extract.EntityID(mention.Type, mention.Text),
			Name:        mention.Text,
			Type:        mention.Type,
			CanonicalID: mention.CanonicalID,
			Confidence:  mention.Confidence,
			Mentions:    []common.Mention{mention},
		}
		if err := p.graph.MergeEntity(ctx, entity); err != nil {
			return fmt.Errorf("merge entity %s: %w", entity.EntityID, err)
		}
		if err := p.graph.LinkMention(ctx, entity.EntityID, page.PageID); err != nil {
			return fmt.Errorf("link mention %s: %w", entity.EntityID, err)
		}
	}

	for _, edge := range extract.ExtractRelations(page.OCRText, mentions, page.PageID) {
		if err := p.graph.CreateRelation(ctx, &edge); err != nil {
			return fmt.Errorf("store relation: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) encodePage(ctx context.Context, pub *common.Publication, page *common.Page, image []byte) (vecindex.Entry, error) {
	vector, err := p.encoder.EncodePage(ctx, page.OCRText, image)
	if err != nil {
		return vecindex.Entry{}, err
	}
	return vecindex.Entry{
		ID:     page.PageID,
		PubID:  page.PubID,
		PageID: page.PageID,
		Vector: vector,
		Payload: vecindex.Payload{
			Title:      pub.Title,
			Authors:    pub.Authors,
			Year:       pub.Year,
			PageNumber: page.PageNumber,
			Snippet:    util.Truncate(page.OCRText, snippetLength),
		},
	}, nil
}

// publicationTitle prefers the first non-empty line of the first page and
// falls back to the document name.
func publicationTitle(doc ocr.Document, pages []ocr.PageResult) string {
	for _, line := range strings.Split(pages[0].Text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return util.Truncate(line, 200)
		}
	}
	return documentTitle(doc)
}

// documentTitle is the document name without its extension, used for the
// placeholder record before any page text exists.
func documentTitle(doc ocr.Document) string {
	name := doc.Name
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	return name
}
