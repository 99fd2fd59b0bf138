package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/bionexus/backend/pkg/common"
)

const relationConfidence = 0.7

type relationPattern struct {
	relationType common.RelationType
	pattern      *regexp.Regexp
}

// triggerPattern builds a pattern that matches a trigger phrase together
// with a short run of context words on either side. Punctuation stops the
// runs, so a match never crosses a sentence boundary.
func triggerPattern(triggers string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:\w+[ \t]+){0,8}(?:` + triggers + `)(?:[ \t]+\w+){0,8}`)
}

var relationPatterns = []relationPattern{
	{common.RelationInvestigated, triggerPattern(`investigated|studied|examined|analyzed|assessed`)},
	{common.RelationReports, triggerPattern(`reported|showed|demonstrated|revealed|found`)},
	{common.RelationDerivedFrom, triggerPattern(`derived from|isolated from|obtained from|extracted from`)},
	{common.RelationMentions, triggerPattern(`using|with|via|employing`)},
}

// ExtractRelations derives typed edges between entities whose mention
// spans overlap a trigger match. For every match, the overlapping
// mentions are ordered by appearance and adjacent pairs of distinct
// entities each produce one edge at fixed confidence, with the matched
// text as evidence.
func ExtractRelations(text string, mentions []common.Mention, pageID string) []common.RelationEdge {
	if len(mentions) < 2 {
		return nil
	}

	type emitted struct {
		source string
		target string
		kind   common.RelationType
	}
	seen := make(map[emitted]struct{})

	var edges []common.RelationEdge
	for _, rp := range relationPatterns {
		for _, loc := range rp.pattern.FindAllStringIndex(text, -1) {
			var overlapping []common.Mention
			for _, mention := range mentions {
				if mention.Start < loc[1] && mention.End > loc[0] {
					overlapping = append(overlapping, mention)
				}
			}
			if len(overlapping) < 2 {
				continue
			}
			sort.Slice(overlapping, func(i, j int) bool {
				return overlapping[i].Start < overlapping[j].Start
			})

			evidence := strings.TrimSpace(text[loc[0]:loc[1]])
			for i := 0; i+1 < len(overlapping); i++ {
				sourceID := EntityID(overlapping[i].Type, overlapping[i].Text)
				targetID := EntityID(overlapping[i+1].Type, overlapping[i+1].Text)
				if sourceID == targetID {
					continue
				}
				key := emitted{source: sourceID, target: targetID, kind: rp.relationType}
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}

				edges = append(edges, common.RelationEdge{
					SourceEntityID: sourceID,
					TargetEntityID: targetID,
					Type:           rp.relationType,
					Confidence:     relationConfidence,
					Evidence:       []string{evidence},
					PageID:         pageID,
				})
			}
		}
	}
	return edges
}
