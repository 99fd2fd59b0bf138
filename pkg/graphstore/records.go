package graphstore

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/bionexus/backend/pkg/common"
)

// Helpers to map Neo4j nodes back into domain structs. The driver returns
// property maps with interface values; numeric properties come back as int64.

func publicationFromRecord(record *neo4j.Record, key string) common.Publication {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return common.Publication{}
	}
	node, ok := value.(neo4j.Node)
	if !ok {
		return common.Publication{}
	}
	return publicationFromProps(node.Props)
}

func publicationFromProps(props map[string]any) common.Publication {
	return common.Publication{
		PubID:          stringProp(props, "pub_id"),
		Title:          stringProp(props, "title"),
		Authors:        stringListProp(props, "authors"),
		Abstract:       stringProp(props, "abstract"),
		Year:           intProp(props, "year"),
		Journal:        stringProp(props, "journal"),
		DOI:            stringProp(props, "doi"),
		FundingSources: stringListProp(props, "funding_sources"),
		TotalPages:     intProp(props, "total_pages"),
		CreatedAt:      timeProp(props, "created_at"),
		UpdatedAt:      timeProp(props, "updated_at"),
	}
}

func pageFromRecord(record *neo4j.Record, key string) common.Page {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return common.Page{}
	}
	node, ok := value.(neo4j.Node)
	if !ok {
		return common.Page{}
	}
	props := node.Props
	return common.Page{
		PageID:           stringProp(props, "page_id"),
		PubID:            stringProp(props, "pub_id"),
		PageNumber:       intProp(props, "page_number"),
		OCRText:          stringProp(props, "ocr_text"),
		ImageURL:         stringProp(props, "image_url"),
		ExtractedFigures: stringListProp(props, "extracted_figures"),
		ExtractedTables:  stringListProp(props, "extracted_tables"),
	}
}

func entityFromRecord(record *neo4j.Record, key string) common.EntityRecord {
	value, ok := record.Get(key)
	if !ok || value == nil {
		return common.EntityRecord{}
	}
	node, ok := value.(neo4j.Node)
	if !ok {
		return common.EntityRecord{}
	}
	props := node.Props
	entity := common.EntityRecord{
		EntityID:    stringProp(props, "entity_id"),
		Name:        stringProp(props, "name"),
		Type:        common.EntityType(stringProp(props, "type")),
		CanonicalID: stringProp(props, "canonical_id"),
		Confidence:  floatProp(props, "confidence"),
	}
	for _, context := range stringListProp(props, "mention_contexts") {
		entity.Mentions = append(entity.Mentions, common.Mention{Context: context})
	}
	return entity
}

func stringProp(props map[string]any, key string) string {
	if value, ok := props[key].(string); ok {
		return value
	}
	return ""
}

func intProp(props map[string]any, key string) int {
	if value, ok := props[key].(int64); ok {
		return int(value)
	}
	return 0
}

func floatProp(props map[string]any, key string) float64 {
	switch value := props[key].(type) {
	case float64:
		return value
	case int64:
		return float64(value)
	}
	return 0
}

func timeProp(props map[string]any, key string) time.Time {
	if value, ok := props[key].(time.Time); ok {
		return value
	}
	return time.Time{}
}

func stringListProp(props map[string]any, key string) []string {
	return stringList(props[key])
}

func stringList(value any) []string {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intValue(record *neo4j.Record, key string) int {
	value, ok := record.Get(key)
	if !ok {
		return 0
	}
	if n, ok := value.(int64); ok {
		return int(n)
	}
	return 0
}
