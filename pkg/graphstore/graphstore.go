package graphstore

import (
	"context"
	"errors"

	"github.com/bionexus/backend/pkg/common"
)

// ErrNotFound is returned when a looked-up node does not exist.
var ErrNotFound = errors.New("graphstore: not found")

// PageHit is a page-level search result with its owning publication and
// the names of entities mentioned on the page.
type PageHit struct {
	Page        common.Page
	Publication common.Publication
	Entities    []string
}

// EntityHit is an entity-level search result, traversed back to one
// owning page and publication when the entity has any mention link.
type EntityHit struct {
	Entity      common.EntityRecord
	PageID      string
	Publication *common.Publication
}

// Stats summarizes graph contents.
type Stats struct {
	Publications int `json:"publications"`
	Pages        int `json:"pages"`
	Entities     int `json:"entities"`
	Relations    int `json:"relations"`
}

// GraphStore is the typed contract over the property graph. Node creation
// uses merge-on-conflict semantics keyed by the caller-supplied unique
// field; edge creation requires both endpoints to exist.
type GraphStore interface {
	// EnsureSchema creates uniqueness constraints and indexes.
	EnsureSchema(ctx context.Context) error

	CreatePublication(ctx context.Context, pub *common.Publication) error
	UpdatePublication(ctx context.Context, pub *common.Publication) error
	GetPublication(ctx context.Context, pubID string) (*common.Publication, error)
	GetPublicationPages(ctx context.Context, pubID string) ([]common.Page, error)

	// CreatePage persists a page and its PART_OF edge to the owning
	// publication.
	CreatePage(ctx context.Context, page *common.Page) error

	// MergeEntity upserts an entity by its merge key: mentions
	// accumulate, confidence keeps the maximum seen, the canonical ID is
	// set once and never cleared.
	MergeEntity(ctx context.Context, entity *common.EntityRecord) error

	// LinkMention creates a MENTIONED_IN edge from entity to page.
	LinkMention(ctx context.Context, entityID string, pageID string) error

	// CreateRelation creates one typed edge between two entities. The
	// relation type must be one of the known types.
	CreateRelation(ctx context.Context, edge *common.RelationEdge) error

	SearchPages(ctx context.Context, query string, limit int) ([]PageHit, error)
	SearchPublications(ctx context.Context, query string, limit int) ([]common.Publication, error)
	SearchEntities(ctx context.Context, query string, limit int) ([]EntityHit, error)
	FindPublicationsByKeywords(ctx context.Context, keywords []string, limit int) ([]common.Publication, error)

	Stats(ctx context.Context) (Stats, error)
	Close(ctx context.Context) error
}
