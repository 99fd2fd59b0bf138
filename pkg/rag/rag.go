// Package rag synthesizes answers from retrieved passages, grounded by
// numbered citations.
package rag

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/bionexus/backend/internal/util"
	"github.com/bionexus/backend/pkg/ai"
	"github.com/bionexus/backend/pkg/common"
	"github.com/bionexus/backend/pkg/graphstore"
	"github.com/bionexus/backend/pkg/logger"
	"github.com/bionexus/backend/pkg/retrieval"
)

const systemInstruction = `You are a biomedical research assistant. Answer the question using ONLY the numbered evidence passages provided.
Cite every claim with the passage number in square brackets, for example [1] or [2].
If the passages do not contain enough information to answer, reply with exactly: Insufficient evidence.
If passages contradict each other, state the contradiction and cite both sides.`

const insufficientAnswer = "Insufficient evidence."

const (
	defaultMaxPassages  = 8
	defaultTokenBudget  = 4000
	semanticThreshold   = 0.3
	minAnswerConfidence = 0.3
	noCitationPenalty   = 0.1
	fallbackPassages    = 3
	candidateSources    = 5
)

var citationMarkerPattern = regexp.MustCompile(`\[(\d+)\]`)

// passage is one evidence unit offered to the model.
type passage struct {
	PubID      string
	PageID     string
	Title      string
	PageNumber int
	Text       string
	Confidence float64
}

// Synthesizer answers questions over the indexed corpus.
type Synthesizer struct {
	client      ai.NexusAIClient
	retriever   *retrieval.Retriever
	graph       graphstore.GraphStore
	maxPassages int
	tokenBudget int
}

// SynthesizerParams collects the synthesizer dependencies.
type SynthesizerParams struct {
	Client    ai.NexusAIClient
	Retriever *retrieval.Retriever
	Graph     graphstore.GraphStore
	// MaxPassages caps the evidence passed to the model, default 8.
	MaxPassages int
	// TokenBudget caps the token size of the evidence block, default 4000.
	TokenBudget int
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(params SynthesizerParams) *Synthesizer {
	if params.MaxPassages <= 0 {
		params.MaxPassages = defaultMaxPassages
	}
	if params.TokenBudget <= 0 {
		params.TokenBudget = defaultTokenBudget
	}
	return &Synthesizer{
		client:      params.Client,
		retriever:   params.Retriever,
		graph:       params.Graph,
		maxPassages: params.MaxPassages,
		tokenBudget: params.TokenBudget,
	}
}

// Answer retrieves evidence for the question and synthesizes a cited
// answer. A non-empty pubID restricts the evidence to that publication.
func (s *Synthesizer) Answer(ctx context.Context, question string, pubID string) (*common.Answer, error) {
	passages, err := s.gatherPassages(ctx, question, pubID)
	if err != nil {
		return nil, err
	}
	if len(passages) == 0 {
		return s.insufficient(ctx, question), nil
	}
	passages = s.trimToBudget(passages)

	text, err := s.generate(ctx, question, passages)
	if err != nil {
		logger.Warn("[RAG] Generation failed, using extractive fallback", "error", err)
		text = extractiveAnswer(question, passages)
	}

	answer := s.grade(text, passages)
	if answer.InsufficientEvidence {
		answer.CandidateSources = s.findCandidates(ctx, question)
	}
	return answer, nil
}

func (s *Synthesizer) gatherPassages(ctx context.Context, question string, pubID string) ([]passage, error) {
	if pubID != "" {
		pub, err := s.graph.GetPublication(ctx, pubID)
		if err != nil {
			return nil, fmt.Errorf("load publication %s: %w", pubID, err)
		}
		pages, err := s.graph.GetPublicationPages(ctx, pubID)
		if err != nil {
			return nil, fmt.Errorf("load pages of %s: %w", pubID, err)
		}
		passages := make([]passage, 0, len(pages))
		for _, page := range pages {
			if strings.TrimSpace(page.OCRText) == "" {
				continue
			}
			passages = append(passages, passage{
				PubID:      pubID,
				PageID:     page.PageID,
				Title:      pub.Title,
				PageNumber: page.PageNumber,
				Text:       page.OCRText,
				Confidence: 1.0,
			})
			if len(passages) >= s.maxPassages {
				break
			}
		}
		return passages, nil
	}

	results, err := s.retriever.SearchSemantic(ctx, question, s.maxPassages, semanticThreshold)
	if err != nil {
		logger.Debug("[RAG] Semantic retrieval unavailable, using keyword search", "error", err)
		results = nil
	}
	if len(results) == 0 {
		results, err = s.retriever.Search(ctx, question, s.maxPassages)
		if err != nil {
			return nil, fmt.Errorf("retrieve evidence: %w", err)
		}
	}

	passages := make([]passage, 0, len(results))
	for _, result := range results {
		if strings.TrimSpace(result.Snippet) == "" {
			continue
		}
		passages = append(passages, passage{
			PubID:      result.PubID,
			PageID:     result.PageID,
			Title:      result.Title,
			Confidence: common.Clamp(result.Score),
			Text:       result.Snippet,
		})
	}
	return passages, nil
}

// trimToBudget drops trailing passages once the evidence block exceeds the
// token budget. At least one passage always survives.
func (s *Synthesizer) trimToBudget(passages []passage) []passage {
	encoding, err := tiktoken.GetEncoding("o200k_base")
	total := 0
	for i, p := range passages {
		var tokens int
		if err != nil {
			tokens = len(p.Text) / 4
		} else {
			tokens = len(encoding.Encode(p.Text, nil, nil))
		}
		total += tokens
		if total > s.tokenBudget && i > 0 {
			return passages[:i]
		}
	}
	return passages
}

func (s *Synthesizer) generate(ctx context.Context, question string, passages []passage) (string, error) {
	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nEvidence passages:\n")
	for i, p := range passages {
		fmt.Fprintf(&sb, "[%d] %s", i+1, p.Title)
		if p.PageNumber > 0 {
			fmt.Fprintf(&sb, ", page %d", p.PageNumber)
		}
		sb.WriteString(":\n")
		sb.WriteString(p.Text)
		sb.WriteString("\n\n")
	}

	return s.client.GenerateCompletion(ctx, sb.String(),
		ai.WithSystemPrompts(systemInstruction),
		ai.WithTemperature(0.2),
	)
}

// grade parses citation markers and computes the answer confidence: the
// mean cited-passage confidence scaled by citation coverage over the
// offered passages.
func (s *Synthesizer) grade(text string, passages []passage) *common.Answer {
	answer := &common.Answer{Answer: strings.TrimSpace(text)}

	if strings.EqualFold(answer.Answer, insufficientAnswer) ||
		strings.EqualFold(answer.Answer, strings.TrimSuffix(insufficientAnswer, ".")) {
		// no markers, so the no-citation floor applies
		answer.Confidence = noCitationPenalty
		answer.InsufficientEvidence = true
		return answer
	}

	cited := map[int]struct{}{}
	for _, match := range citationMarkerPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n < 1 || n > len(passages) {
			continue
		}
		cited[n] = struct{}{}
	}

	if len(cited) == 0 {
		answer.Confidence = noCitationPenalty
		answer.InsufficientEvidence = true
		return answer
	}

	sum := 0.0
	for n := 1; n <= len(passages); n++ {
		if _, ok := cited[n]; !ok {
			continue
		}
		p := passages[n-1]
		answer.Citations = append(answer.Citations, common.Citation{
			CitationID: n,
			PubID:      p.PubID,
			PageID:     p.PageID,
			Snippet:    util.Truncate(p.Text, 200),
			Confidence: p.Confidence,
		})
		sum += p.Confidence
	}
	answer.Confidence = common.Clamp(sum / float64(len(cited)) * float64(len(cited)) / float64(len(passages)))
	if answer.Confidence < minAnswerConfidence {
		answer.InsufficientEvidence = true
	}
	return answer
}

// extractiveAnswer picks keyword-bearing sentences from the strongest
// passages when the model is unavailable. A passage contributes nothing
// unless one of its sentences contains a question keyword; when no
// passage does, the answer degrades to a generic statement so no
// uncited claim is fabricated.
func extractiveAnswer(question string, passages []passage) string {
	keywords := util.Keywords(question)

	var lines []string
	for i, p := range passages {
		if i >= fallbackPassages {
			break
		}
		sentence := pickSentence(p.Text, keywords)
		if sentence == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%d] %s", i+1, sentence))
	}
	if len(lines) == 0 {
		return "Based on the available evidence [1], the research indicates relevant information but requires further investigation."
	}
	return strings.Join(lines, "\n")
}

func pickSentence(text string, keywords []string) string {
	for _, sentence := range util.SplitSentences(text) {
		lower := strings.ToLower(sentence)
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				return strings.TrimSpace(sentence)
			}
		}
	}
	return ""
}

func (s *Synthesizer) insufficient(ctx context.Context, question string) *common.Answer {
	return &common.Answer{
		Answer:               insufficientAnswer,
		InsufficientEvidence: true,
		CandidateSources:     s.findCandidates(ctx, question),
	}
}

func (s *Synthesizer) findCandidates(ctx context.Context, question string) []string {
	if s.graph == nil {
		return nil
	}
	pubs, err := s.graph.FindPublicationsByKeywords(ctx, util.Keywords(question), candidateSources)
	if err != nil {
		logger.Debug("[RAG] Candidate source lookup failed", "error", err)
		return nil
	}
	titles := make([]string, 0, len(pubs))
	for _, pub := range pubs {
		titles = append(titles, pub.Title)
	}
	return titles
}
