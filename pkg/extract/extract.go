package extract

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/bionexus/backend/pkg/ai"
	"github.com/bionexus/backend/pkg/common"
	"github.com/bionexus/backend/pkg/logger"
)

var genusSpeciesPattern = regexp.MustCompile(`^[A-Z][a-z]+ [a-z]+$`)

const recognizerPrompt = `Identify the named entities in the following text from a scientific publication.
Recognize these entity types: Organism, Endpoint, Instrument, Dataset, Experiment, Grant.
Only list entities that literally appear in the text.

Text:
%s`

type recognizedEntity struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

type recognizerOutput struct {
	Entities []recognizedEntity `json:"entities"`
}

// Extractor produces typed entity mentions from page text. A model-based
// recognizer runs first, followed by a rule-based pass; both feed the
// same deduplication.
type Extractor struct {
	client ai.NexusAIClient
}

// NewExtractor creates an Extractor backed by the given AI client. A nil
// client disables the model-based pass, leaving only the rules.
func NewExtractor(client ai.NexusAIClient) *Extractor {
	return &Extractor{client: client}
}

// NormalizeName canonicalizes an entity name for merge-key purposes.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// EntityID derives the deterministic entity identifier from type and name.
// The same (type, normalized name) pair always produces the same ID.
func EntityID(entityType common.EntityType, name string) string {
	h := fnv.New64a()
	h.Write([]byte(string(entityType)))
	h.Write([]byte{'|'})
	h.Write([]byte(NormalizeName(name)))
	return fmt.Sprintf("%s_%x", strings.ToLower(string(entityType)), h.Sum64())
}

// modelConfidence scores a model-recognized mention.
func modelConfidence(text string) float64 {
	confidence := 0.70
	if len(text) > 10 {
		confidence += 0.10
	}
	if text != "" && text[0] >= 'A' && text[0] <= 'Z' {
		confidence += 0.05
	}
	if genusSpeciesPattern.MatchString(text) {
		confidence += 0.10
	}
	return common.Clamp(confidence)
}

func mapEntityType(label string) common.EntityType {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "organism":
		return common.EntityOrganism
	case "endpoint":
		return common.EntityEndpoint
	case "instrument":
		return common.EntityInstrument
	case "dataset":
		return common.EntityDataset
	case "experiment":
		return common.EntityExperiment
	case "grant":
		return common.EntityGrant
	default:
		return common.EntityUnknown
	}
}

// contextWindow returns the text surrounding a span, used as the stored
// mention context.
func contextWindow(text string, start, end int) string {
	from := start - 60
	if from < 0 {
		from = 0
	}
	to := end + 60
	if to > len(text) {
		to = len(text)
	}
	return text[from:to]
}

// Extract runs both recognizer passes over the page text and returns
// deduplicated mentions. Recognizer failures are logged and degrade to
// the rule-based pass alone; Extract never fails the caller.
func (e *Extractor) Extract(ctx context.Context, text string, pageID string) []common.Mention {
	var mentions []common.Mention
	mentions = append(mentions, e.modelPass(ctx, text, pageID)...)
	mentions = append(mentions, rulePass(text, pageID)...)
	return Dedupe(mentions)
}

func (e *Extractor) modelPass(ctx context.Context, text string, pageID string) []common.Mention {
	if e.client == nil || strings.TrimSpace(text) == "" {
		return nil
	}

	var out recognizerOutput
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"entity_recognition",
		"Named entities found in a scientific text",
		fmt.Sprintf(recognizerPrompt, text),
		&out,
	)
	if err != nil {
		logger.Warn("[Extract] Recognizer unavailable, falling back to rules", "page", pageID, "err", err)
		return nil
	}

	var mentions []common.Mention
	for _, entity := range out.Entities {
		name := strings.TrimSpace(entity.Text)
		if name == "" {
			continue
		}
		start := strings.Index(text, name)
		if start < 0 {
			start = strings.Index(strings.ToLower(text), strings.ToLower(name))
		}
		if start < 0 {
			// hallucinated span, not present in the page
			continue
		}
		end := start + len(name)
		mentions = append(mentions, common.Mention{
			Text:       name,
			Type:       mapEntityType(entity.Type),
			Start:      start,
			End:        end,
			Confidence: modelConfidence(name),
			PageID:     pageID,
			Context:    contextWindow(text, start, end),
		})
	}
	return mentions
}

// Dedupe groups mentions by (type, lowercased-trimmed name) and keeps the
// single highest-confidence mention per group, preserving first-seen order.
func Dedupe(mentions []common.Mention) []common.Mention {
	type key struct {
		entityType common.EntityType
		name       string
	}

	index := make(map[key]int)
	var out []common.Mention
	for _, mention := range mentions {
		k := key{entityType: mention.Type, name: NormalizeName(mention.Text)}
		if i, ok := index[k]; ok {
			if mention.Confidence > out[i].Confidence {
				out[i] = mention
			}
			continue
		}
		index[k] = len(out)
		out = append(out, mention)
	}
	return out
}
