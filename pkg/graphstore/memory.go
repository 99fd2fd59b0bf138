package graphstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bionexus/backend/pkg/common"
)

// MemoryStore is an in-memory GraphStore with the same merge semantics as
// the Neo4j implementation. Selected by configuration for single-process
// and test deployments.
type MemoryStore struct {
	mu sync.RWMutex

	publications map[string]common.Publication
	pages        map[string]common.Page
	entities     map[string]common.EntityRecord
	relations    []common.RelationEdge

	// entityID -> set of pageIDs
	mentionedIn map[string]map[string]struct{}
	// pubID -> ordered pageIDs
	pubPages map[string][]string
}

// NewMemoryStore creates an empty in-memory graph store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		publications: map[string]common.Publication{},
		pages:        map[string]common.Page{},
		entities:     map[string]common.EntityRecord{},
		mentionedIn:  map[string]map[string]struct{}{},
		pubPages:     map[string][]string{},
	}
}

func (s *MemoryStore) EnsureSchema(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) CreatePublication(ctx context.Context, pub *common.Publication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.publications[pub.PubID]; !ok {
		s.publications[pub.PubID] = *pub
	}
	return nil
}

func (s *MemoryStore) UpdatePublication(ctx context.Context, pub *common.Publication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.publications[pub.PubID]; !ok {
		return fmt.Errorf("publication %s: %w", pub.PubID, ErrNotFound)
	}
	s.publications[pub.PubID] = *pub
	return nil
}

func (s *MemoryStore) GetPublication(ctx context.Context, pubID string) (*common.Publication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pub, ok := s.publications[pubID]
	if !ok {
		return nil, fmt.Errorf("publication %s: %w", pubID, ErrNotFound)
	}
	return &pub, nil
}

func (s *MemoryStore) GetPublicationPages(ctx context.Context, pubID string) ([]common.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pageIDs := s.pubPages[pubID]
	pages := make([]common.Page, 0, len(pageIDs))
	for _, pageID := range pageIDs {
		pages = append(pages, s.pages[pageID])
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].PageNumber < pages[j].PageNumber })
	return pages, nil
}

func (s *MemoryStore) CreatePage(ctx context.Context, page *common.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.publications[page.PubID]; !ok {
		return fmt.Errorf("publication %s: %w", page.PubID, ErrNotFound)
	}
	if _, ok := s.pages[page.PageID]; !ok {
		s.pubPages[page.PubID] = append(s.pubPages[page.PubID], page.PageID)
	}
	s.pages[page.PageID] = *page
	return nil
}

func (s *MemoryStore) MergeEntity(ctx context.Context, entity *common.EntityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entities[entity.EntityID]
	if !ok {
		record := *entity
		record.Confidence = common.Clamp(record.Confidence)
		s.entities[entity.EntityID] = record
		return nil
	}

	existing.Mentions = append(existing.Mentions, entity.Mentions...)
	if entity.Confidence > existing.Confidence {
		existing.Confidence = common.Clamp(entity.Confidence)
	}
	if existing.CanonicalID == "" && entity.CanonicalID != "" {
		existing.CanonicalID = entity.CanonicalID
	}
	s.entities[entity.EntityID] = existing
	return nil
}

func (s *MemoryStore) LinkMention(ctx context.Context, entityID string, pageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[entityID]; !ok {
		return fmt.Errorf("entity %s: %w", entityID, ErrNotFound)
	}
	if _, ok := s.pages[pageID]; !ok {
		return fmt.Errorf("page %s: %w", pageID, ErrNotFound)
	}
	if s.mentionedIn[entityID] == nil {
		s.mentionedIn[entityID] = map[string]struct{}{}
	}
	s.mentionedIn[entityID][pageID] = struct{}{}
	return nil
}

func (s *MemoryStore) CreateRelation(ctx context.Context, edge *common.RelationEdge) error {
	if _, err := RelationTypeIdentifier(edge.Type); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[edge.SourceEntityID]; !ok {
		return fmt.Errorf("entity %s: %w", edge.SourceEntityID, ErrNotFound)
	}
	if _, ok := s.entities[edge.TargetEntityID]; !ok {
		return fmt.Errorf("entity %s: %w", edge.TargetEntityID, ErrNotFound)
	}
	s.relations = append(s.relations, *edge)
	return nil
}

func (s *MemoryStore) SearchPages(ctx context.Context, query string, limit int) ([]PageHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var hits []PageHit
	for _, pubID := range s.sortedPubIDs() {
		for _, pageID := range s.pubPages[pubID] {
			page := s.pages[pageID]
			if !strings.Contains(strings.ToLower(page.OCRText), needle) {
				continue
			}
			hits = append(hits, PageHit{
				Page:        page,
				Publication: s.publications[pubID],
				Entities:    s.entityNamesForPage(pageID),
			})
			if limit > 0 && len(hits) >= limit {
				return hits, nil
			}
		}
	}
	return hits, nil
}

func (s *MemoryStore) SearchPublications(ctx context.Context, query string, limit int) ([]common.Publication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	var out []common.Publication
	for _, pubID := range s.sortedPubIDs() {
		pub := s.publications[pubID]
		if strings.Contains(strings.ToLower(pub.Title), needle) ||
			strings.Contains(strings.ToLower(pub.Abstract), needle) {
			out = append(out, pub)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) SearchEntities(ctx context.Context, query string, limit int) ([]EntityHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(query)
	entityIDs := make([]string, 0, len(s.entities))
	for entityID := range s.entities {
		entityIDs = append(entityIDs, entityID)
	}
	sort.Strings(entityIDs)

	var hits []EntityHit
	for _, entityID := range entityIDs {
		entity := s.entities[entityID]
		if !strings.Contains(strings.ToLower(entity.Name), needle) {
			continue
		}
		hit := EntityHit{Entity: entity}
		for pageID := range s.mentionedIn[entityID] {
			page := s.pages[pageID]
			pub := s.publications[page.PubID]
			hit.PageID = pageID
			hit.Publication = &pub
			break
		}
		hits = append(hits, hit)
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

func (s *MemoryStore) FindPublicationsByKeywords(ctx context.Context, keywords []string, limit int) ([]common.Publication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []common.Publication
	for _, pubID := range s.sortedPubIDs() {
		pub := s.publications[pubID]
		title := strings.ToLower(pub.Title)
		for _, keyword := range keywords {
			if strings.Contains(title, strings.ToLower(keyword)) {
				out = append(out, pub)
				break
			}
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Publications: len(s.publications),
		Pages:        len(s.pages),
		Entities:     len(s.entities),
		Relations:    len(s.relations),
	}, nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// Relations returns a copy of all relation edges, used by tests.
func (s *MemoryStore) Relations() []common.RelationEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.RelationEdge, len(s.relations))
	copy(out, s.relations)
	return out
}

// Entity returns the stored entity record by ID, used by tests.
func (s *MemoryStore) Entity(entityID string) (common.EntityRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity, ok := s.entities[entityID]
	return entity, ok
}

func (s *MemoryStore) sortedPubIDs() []string {
	pubIDs := make([]string, 0, len(s.publications))
	for pubID := range s.publications {
		pubIDs = append(pubIDs, pubID)
	}
	sort.Slice(pubIDs, func(i, j int) bool {
		return s.publications[pubIDs[i]].CreatedAt.Before(s.publications[pubIDs[j]].CreatedAt)
	})
	return pubIDs
}

func (s *MemoryStore) entityNamesForPage(pageID string) []string {
	var names []string
	entityIDs := make([]string, 0, len(s.mentionedIn))
	for entityID := range s.mentionedIn {
		entityIDs = append(entityIDs, entityID)
	}
	sort.Strings(entityIDs)
	for _, entityID := range entityIDs {
		if _, ok := s.mentionedIn[entityID][pageID]; ok {
			names = append(names, s.entities[entityID].Name)
		}
	}
	return names
}
