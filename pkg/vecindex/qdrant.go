package vecindex

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// QdrantIndex implements Index on a Qdrant collection with cosine distance.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
}

// QdrantIndexParams configures the connection and collection.
type QdrantIndexParams struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimensions uint64
}

// NewQdrantIndex connects to Qdrant and creates the collection if it does
// not exist yet.
func NewQdrantIndex(ctx context.Context, params QdrantIndexParams) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   params.Host,
		Port:   params.Port,
		APIKey: params.APIKey,
		UseTLS: params.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithKeepaliveParams(keepalive.ClientParameters{Time: 30 * time.Second}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	exists, err := client.CollectionExists(ctx, params.Collection)
	if err != nil {
		return nil, fmt.Errorf("check collection %s: %w", params.Collection, err)
	}
	if !exists {
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: params.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     params.Dimensions,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return nil, fmt.Errorf("create collection %s: %w", params.Collection, err)
		}
	}

	return &QdrantIndex{client: client, collection: params.Collection}, nil
}

// pointID derives a stable UUID from the entry ID. Qdrant only accepts
// UUIDs or unsigned integers as point IDs.
func pointID(entryID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(entryID)).String()
}

func (q *QdrantIndex) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(entries))
	for _, entry := range entries {
		authors := make([]any, 0, len(entry.Payload.Authors))
		for _, author := range entry.Payload.Authors {
			authors = append(authors, author)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(entry.ID)),
			Vectors: qdrant.NewVectors(entry.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"entry_id":    entry.ID,
				"pub_id":      entry.PubID,
				"page_id":     entry.PageID,
				"title":       entry.Payload.Title,
				"authors":     authors,
				"year":        int64(entry.Payload.Year),
				"page_number": int64(entry.Payload.PageNumber),
				"snippet":     entry.Payload.Snippet,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

func (q *QdrantIndex) Search(ctx context.Context, vector []float32, topK int, threshold float64) ([]Hit, error) {
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		ScoreThreshold: qdrant.PtrOf(float32(threshold)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", q.collection, err)
	}

	hits := make([]Hit, 0, len(points))
	for _, point := range points {
		hits = append(hits, Hit{
			Entry: entryFromPayload(point.Payload),
			Score: float64(point.Score),
		})
	}
	return hits, nil
}

func (q *QdrantIndex) DeleteByPub(ctx context.Context, pubID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("pub_id", pubID)},
		}),
	})
	if err != nil {
		return fmt.Errorf("delete points of %s: %w", pubID, err)
	}
	return nil
}

func (q *QdrantIndex) Close(ctx context.Context) error {
	return q.client.Close()
}

func entryFromPayload(payload map[string]*qdrant.Value) Entry {
	entry := Entry{
		ID:     payload["entry_id"].GetStringValue(),
		PubID:  payload["pub_id"].GetStringValue(),
		PageID: payload["page_id"].GetStringValue(),
		Payload: Payload{
			Title:      payload["title"].GetStringValue(),
			Year:       int(payload["year"].GetIntegerValue()),
			PageNumber: int(payload["page_number"].GetIntegerValue()),
			Snippet:    payload["snippet"].GetStringValue(),
		},
	}
	for _, value := range payload["authors"].GetListValue().GetValues() {
		entry.Payload.Authors = append(entry.Payload.Authors, value.GetStringValue())
	}
	return entry
}
