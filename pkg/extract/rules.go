package extract

import (
	"regexp"

	"github.com/bionexus/backend/pkg/common"
)

const (
	organismRuleConfidence   = 0.80
	instrumentRuleConfidence = 0.75
)

// Organisms that show up across the corpus more reliably than the model
// recognizes them, plus the generic Genus-species form.
var organismPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bEscherichia coli\b`),
	regexp.MustCompile(`\bE\. coli\b`),
	regexp.MustCompile(`\bArabidopsis thaliana\b`),
	regexp.MustCompile(`\bMus musculus\b`),
	regexp.MustCompile(`\bSaccharomyces cerevisiae\b`),
	regexp.MustCompile(`\bBacillus subtilis\b`),
	regexp.MustCompile(`\bCaenorhabditis elegans\b`),
	regexp.MustCompile(`\bDrosophila melanogaster\b`),
	regexp.MustCompile(`\bHomo sapiens\b`),
}

var instrumentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmass spectromet(?:er|ry)\b`),
	regexp.MustCompile(`(?i)\bspectrophotometer\b`),
	regexp.MustCompile(`(?i)\bflow cytometer\b`),
	regexp.MustCompile(`(?i)\bcentrifuge\b`),
	regexp.MustCompile(`(?i)\bmicroscope\b`),
	regexp.MustCompile(`(?i)\bbioreactor\b`),
	regexp.MustCompile(`(?i)\bincubator\b`),
	regexp.MustCompile(`(?i)\bsequencer\b`),
	regexp.MustCompile(`(?i)\bthermocycler\b`),
}

// rulePass scans the text with the fixed pattern sets. Rule-based mentions
// carry fixed confidences and go through the same dedupe as model output.
func rulePass(text string, pageID string) []common.Mention {
	var mentions []common.Mention

	for _, pattern := range organismPatterns {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			mentions = append(mentions, common.Mention{
				Text:       text[loc[0]:loc[1]],
				Type:       common.EntityOrganism,
				Start:      loc[0],
				End:        loc[1],
				Confidence: organismRuleConfidence,
				PageID:     pageID,
				Context:    contextWindow(text, loc[0], loc[1]),
			})
		}
	}

	for _, pattern := range instrumentPatterns {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			mentions = append(mentions, common.Mention{
				Text:       text[loc[0]:loc[1]],
				Type:       common.EntityInstrument,
				Start:      loc[0],
				End:        loc[1],
				Confidence: instrumentRuleConfidence,
				PageID:     pageID,
				Context:    contextWindow(text, loc[0], loc[1]),
			})
		}
	}

	return mentions
}
