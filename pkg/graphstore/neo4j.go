package graphstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/bionexus/backend/pkg/common"
)

// Neo4jStore implements GraphStore against a Neo4j server. All values are
// bound as parameters; the only dynamic identifier is the relation type,
// validated against the known set.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
}

// Neo4jStoreParams configures the connection.
type Neo4jStoreParams struct {
	URI      string
	Username string
	Password string
}

// NewNeo4jStore connects to Neo4j and verifies connectivity.
func NewNeo4jStore(ctx context.Context, params Neo4jStoreParams) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(
		params.URI,
		neo4j.BasicAuth(params.Username, params.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Neo4jStore{driver: driver}, nil
}

func (s *Neo4jStore) run(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		"CREATE CONSTRAINT pub_id IF NOT EXISTS FOR (p:Publication) REQUIRE p.pub_id IS UNIQUE",
		"CREATE CONSTRAINT page_id IF NOT EXISTS FOR (p:Page) REQUIRE p.page_id IS UNIQUE",
		"CREATE CONSTRAINT entity_id IF NOT EXISTS FOR (e:Entity) REQUIRE e.entity_id IS UNIQUE",
		"CREATE INDEX entity_name IF NOT EXISTS FOR (e:Entity) ON (e.name)",
	}
	for _, statement := range statements {
		if _, err := s.run(ctx, statement, nil); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Neo4jStore) CreatePublication(ctx context.Context, pub *common.Publication) error {
	q := NewQuery()
	q.Appendf("MERGE (p:Publication {pub_id: %s})", q.BindNamed("pub_id", pub.PubID))
	q.Appendf(`ON CREATE SET p.title = %s, p.authors = %s, p.abstract = %s,
		p.year = %s, p.journal = %s, p.doi = %s, p.funding_sources = %s,
		p.total_pages = %s, p.created_at = %s, p.updated_at = %s`,
		q.BindNamed("title", pub.Title),
		q.BindNamed("authors", pub.Authors),
		q.BindNamed("abstract", pub.Abstract),
		q.BindNamed("year", pub.Year),
		q.BindNamed("journal", pub.Journal),
		q.BindNamed("doi", pub.DOI),
		q.BindNamed("funding", pub.FundingSources),
		q.BindNamed("total_pages", pub.TotalPages),
		q.BindNamed("created_at", pub.CreatedAt.UTC()),
		q.BindNamed("updated_at", pub.UpdatedAt.UTC()),
	)

	if _, err := s.run(ctx, q.Cypher(), q.Params()); err != nil {
		return fmt.Errorf("create publication %s: %w", pub.PubID, err)
	}
	return nil
}

func (s *Neo4jStore) UpdatePublication(ctx context.Context, pub *common.Publication) error {
	q := NewQuery()
	q.Appendf("MATCH (p:Publication {pub_id: %s})", q.BindNamed("pub_id", pub.PubID))
	q.Appendf(`SET p.title = %s, p.authors = %s, p.abstract = %s, p.year = %s,
		p.journal = %s, p.doi = %s, p.funding_sources = %s, p.total_pages = %s,
		p.updated_at = %s`,
		q.BindNamed("title", pub.Title),
		q.BindNamed("authors", pub.Authors),
		q.BindNamed("abstract", pub.Abstract),
		q.BindNamed("year", pub.Year),
		q.BindNamed("journal", pub.Journal),
		q.BindNamed("doi", pub.DOI),
		q.BindNamed("funding", pub.FundingSources),
		q.BindNamed("total_pages", pub.TotalPages),
		q.BindNamed("updated_at", pub.UpdatedAt.UTC()),
	)
	q.Append("RETURN p.pub_id AS pub_id")

	records, err := s.run(ctx, q.Cypher(), q.Params())
	if err != nil {
		return fmt.Errorf("update publication %s: %w", pub.PubID, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("publication %s: %w", pub.PubID, ErrNotFound)
	}
	return nil
}

func (s *Neo4jStore) GetPublication(ctx context.Context, pubID string) (*common.Publication, error) {
	q := NewQuery()
	q.Appendf("MATCH (p:Publication {pub_id: %s})", q.BindNamed("pub_id", pubID))
	q.Append("RETURN p")

	records, err := s.run(ctx, q.Cypher(), q.Params())
	if err != nil {
		return nil, fmt.Errorf("get publication %s: %w", pubID, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("publication %s: %w", pubID, ErrNotFound)
	}
	pub := publicationFromRecord(records[0], "p")
	return &pub, nil
}

func (s *Neo4jStore) GetPublicationPages(ctx context.Context, pubID string) ([]common.Page, error) {
	q := NewQuery()
	q.Appendf("MATCH (page:Page)-[:PART_OF]->(p:Publication {pub_id: %s})", q.BindNamed("pub_id", pubID))
	q.Append("RETURN page ORDER BY page.page_number")

	records, err := s.run(ctx, q.Cypher(), q.Params())
	if err != nil {
		return nil, fmt.Errorf("get pages of %s: %w", pubID, err)
	}
	pages := make([]common.Page, 0, len(records))
	for _, record := range records {
		pages = append(pages, pageFromRecord(record, "page"))
	}
	return pages, nil
}

func (s *Neo4jStore) CreatePage(ctx context.Context, page *common.Page) error {
	q := NewQuery()
	q.Appendf("MATCH (pub:Publication {pub_id: %s})", q.BindNamed("pub_id", page.PubID))
	q.Appendf("MERGE (p:Page {page_id: %s})", q.BindNamed("page_id", page.PageID))
	q.Appendf(`SET p.pub_id = %s, p.page_number = %s, p.ocr_text = %s,
		p.image_url = %s, p.extracted_figures = %s, p.extracted_tables = %s`,
		q.BindNamed("pub_id2", page.PubID),
		q.BindNamed("page_number", page.PageNumber),
		q.BindNamed("ocr_text", page.OCRText),
		q.BindNamed("image_url", page.ImageURL),
		q.BindNamed("figures", page.ExtractedFigures),
		q.BindNamed("tables", page.ExtractedTables),
	)
	q.Append("MERGE (p)-[:PART_OF]->(pub)")
	q.Append("RETURN p.page_id AS page_id")

	records, err := s.run(ctx, q.Cypher(), q.Params())
	if err != nil {
		return fmt.Errorf("create page %s: %w", page.PageID, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("publication %s: %w", page.PubID, ErrNotFound)
	}
	return nil
}

func (s *Neo4jStore) MergeEntity(ctx context.Context, entity *common.EntityRecord) error {
	contexts := make([]string, 0, len(entity.Mentions))
	for _, mention := range entity.Mentions {
		contexts = append(contexts, mention.Context)
	}

	q := NewQuery()
	q.Appendf("MERGE (e:Entity {entity_id: %s})", q.BindNamed("entity_id", entity.EntityID))
	q.Appendf(`ON CREATE SET e.name = %s, e.type = %s, e.canonical_id = %s,
		e.confidence = %s, e.mention_contexts = %s, e.mention_count = %s`,
		q.BindNamed("name", entity.Name),
		q.BindNamed("type", string(entity.Type)),
		q.BindNamed("canonical_id", entity.CanonicalID),
		q.BindNamed("confidence", common.Clamp(entity.Confidence)),
		q.BindNamed("contexts", contexts),
		q.BindNamed("mention_count", len(entity.Mentions)),
	)
	q.Append(`ON MATCH SET
		e.confidence = CASE WHEN $confidence > e.confidence THEN $confidence ELSE e.confidence END,
		e.mention_contexts = e.mention_contexts + $contexts,
		e.mention_count = e.mention_count + $mention_count,
		e.canonical_id = CASE WHEN e.canonical_id = '' THEN $canonical_id ELSE e.canonical_id END`)

	if _, err := s.run(ctx, q.Cypher(), q.Params()); err != nil {
		return fmt.Errorf("merge entity %s: %w", entity.EntityID, err)
	}
	return nil
}

func (s *Neo4jStore) LinkMention(ctx context.Context, entityID string, pageID string) error {
	q := NewQuery()
	q.Appendf("MATCH (e:Entity {entity_id: %s})", q.BindNamed("entity_id", entityID))
	q.Appendf("MATCH (p:Page {page_id: %s})", q.BindNamed("page_id", pageID))
	q.Append("MERGE (e)-[:MENTIONED_IN]->(p)")
	q.Append("RETURN e.entity_id AS entity_id")

	records, err := s.run(ctx, q.Cypher(), q.Params())
	if err != nil {
		return fmt.Errorf("link mention %s -> %s: %w", entityID, pageID, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("entity %s or page %s: %w", entityID, pageID, ErrNotFound)
	}
	return nil
}

func (s *Neo4jStore) CreateRelation(ctx context.Context, edge *common.RelationEdge) error {
	relType, err := RelationTypeIdentifier(edge.Type)
	if err != nil {
		return err
	}

	q := NewQuery()
	q.Appendf("MATCH (source:Entity {entity_id: %s})", q.BindNamed("source_id", edge.SourceEntityID))
	q.Appendf("MATCH (target:Entity {entity_id: %s})", q.BindNamed("target_id", edge.TargetEntityID))
	// relType is whitelisted above, never caller-controlled text
	q.Appendf("MERGE (source)-[r:%s]->(target)", relType)
	q.Appendf("SET r.confidence = %s, r.evidence = %s, r.page_id = %s",
		q.BindNamed("confidence", common.Clamp(edge.Confidence)),
		q.BindNamed("evidence", edge.Evidence),
		q.BindNamed("page_id", edge.PageID),
	)
	q.Append("RETURN source.entity_id AS entity_id")

	records, err := s.run(ctx, q.Cypher(), q.Params())
	if err != nil {
		return fmt.Errorf("create relation %s: %w", relType, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("relation endpoints %s, %s: %w", edge.SourceEntityID, edge.TargetEntityID, ErrNotFound)
	}
	return nil
}

func (s *Neo4jStore) SearchPages(ctx context.Context, query string, limit int) ([]PageHit, error) {
	q := NewQuery()
	q.Append("MATCH (page:Page)-[:PART_OF]->(pub:Publication)")
	q.Appendf("WHERE toLower(page.ocr_text) CONTAINS toLower(%s)", q.BindNamed("query", query))
	q.Append("OPTIONAL MATCH (e:Entity)-[:MENTIONED_IN]->(page)")
	q.Appendf("RETURN page, pub, collect(DISTINCT e.name) AS entities LIMIT %s", q.BindNamed("limit", limit))

	records, err := s.run(ctx, q.Cypher(), q.Params())
	if err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}

	hits := make([]PageHit, 0, len(records))
	for _, record := range records {
		hit := PageHit{
			Page:        pageFromRecord(record, "page"),
			Publication: publicationFromRecord(record, "pub"),
		}
		if value, ok := record.Get("entities"); ok {
			hit.Entities = stringList(value)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *Neo4jStore) SearchPublications(ctx context.Context, query string, limit int) ([]common.Publication, error) {
	q := NewQuery()
	q.Append("MATCH (pub:Publication)")
	q.Appendf("WHERE toLower(pub.title) CONTAINS toLower(%s) OR toLower(pub.abstract) CONTAINS toLower(%s)",
		q.BindNamed("query", query), "$query")
	q.Appendf("RETURN pub LIMIT %s", q.BindNamed("limit", limit))

	records, err := s.run(ctx, q.Cypher(), q.Params())
	if err != nil {
		return nil, fmt.Errorf("search publications: %w", err)
	}

	out := make([]common.Publication, 0, len(records))
	for _, record := range records {
		out = append(out, publicationFromRecord(record, "pub"))
	}
	return out, nil
}

func (s *Neo4jStore) SearchEntities(ctx context.Context, query string, limit int) ([]EntityHit, error) {
	q := NewQuery()
	q.Append("MATCH (e:Entity)")
	q.Appendf("WHERE toLower(e.name) CONTAINS toLower(%s)", q.BindNamed("query", query))
	q.Append("OPTIONAL MATCH (e)-[:MENTIONED_IN]->(page:Page)-[:PART_OF]->(pub:Publication)")
	q.Appendf("RETURN e, page.page_id AS page_id, pub LIMIT %s", q.BindNamed("limit", limit))

	records, err := s.run(ctx, q.Cypher(), q.Params())
	if err != nil {
		return nil, fmt.Errorf("search entities: %w", err)
	}

	hits := make([]EntityHit, 0, len(records))
	for _, record := range records {
		hit := EntityHit{Entity: entityFromRecord(record, "e")}
		if value, ok := record.Get("page_id"); ok {
			if pageID, ok := value.(string); ok {
				hit.PageID = pageID
			}
		}
		if value, ok := record.Get("pub"); ok && value != nil {
			if node, ok := value.(neo4j.Node); ok {
				pub := publicationFromProps(node.Props)
				hit.Publication = &pub
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *Neo4jStore) FindPublicationsByKeywords(ctx context.Context, keywords []string, limit int) ([]common.Publication, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	q := NewQuery()
	q.Append("MATCH (pub:Publication)")
	conditions := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		conditions = append(conditions, fmt.Sprintf("toLower(pub.title) CONTAINS %s", q.Bind(strings.ToLower(keyword))))
	}
	q.Appendf("WHERE %s", strings.Join(conditions, " OR "))
	q.Appendf("RETURN pub LIMIT %s", q.BindNamed("limit", limit))

	records, err := s.run(ctx, q.Cypher(), q.Params())
	if err != nil {
		return nil, fmt.Errorf("find publications by keywords: %w", err)
	}

	out := make([]common.Publication, 0, len(records))
	for _, record := range records {
		out = append(out, publicationFromRecord(record, "pub"))
	}
	return out, nil
}

func (s *Neo4jStore) Stats(ctx context.Context) (Stats, error) {
	records, err := s.run(ctx, `
		MATCH (pub:Publication) WITH count(pub) AS pubs
		MATCH (page:Page) WITH pubs, count(page) AS pages
		MATCH (e:Entity) WITH pubs, pages, count(e) AS entities
		OPTIONAL MATCH (:Entity)-[r]->(:Entity)
		RETURN pubs, pages, entities, count(r) AS relations`, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	if len(records) == 0 {
		return Stats{}, nil
	}
	record := records[0]
	return Stats{
		Publications: intValue(record, "pubs"),
		Pages:        intValue(record, "pages"),
		Entities:     intValue(record, "entities"),
		Relations:    intValue(record, "relations"),
	}, nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
