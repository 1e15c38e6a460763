// Package qdrant implements the vector index against a Qdrant server
// over gRPC.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/archivist-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*Store)(nil)

const (
	contentPayloadKey = "content"
	scrollPageSize    = 256
)

// Store implements driven.VectorIndex using Qdrant
type Store struct {
	conn        *grpc.ClientConn
	collections pb.CollectionsClient
	points      pb.PointsClient
	health      pb.QdrantClient
	collection  string
	vectorSize  uint64
}

// Config holds Qdrant connection configuration
type Config struct {
	// Addr is the gRPC endpoint (e.g., localhost:6334)
	Addr string

	// Collection is the collection name to store chunks under
	Collection string

	// VectorSize is the embedding dimension used when creating the collection
	VectorSize int
}

// NewStore connects to Qdrant and creates a new vector index
func NewStore(cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6334"
	}
	if cfg.Collection == "" {
		cfg.Collection = "documents"
	}
	if cfg.VectorSize <= 0 {
		return nil, fmt.Errorf("qdrant vector size must be positive, got %d", cfg.VectorSize)
	}

	conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s: %w", cfg.Addr, err)
	}

	return &Store{
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
		health:      pb.NewQdrantClient(conn),
		collection:  cfg.Collection,
		vectorSize:  uint64(cfg.VectorSize),
	}, nil
}

// Close releases the gRPC connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// EnsureCollection idempotently opens or creates the collection
func (s *Store) EnsureCollection(ctx context.Context) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     s.vectorSize,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	return nil
}

// Upsert inserts or replaces records by ID
func (s *Store) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, 0, len(records))
	for _, r := range records {
		payload := make(map[string]*pb.Value, len(r.Metadata)+2)
		for k, v := range r.Metadata {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}
		payload[contentPayloadKey] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: r.Content}}
		payload["id"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: r.ID}}

		points = append(points, &pb.PointStruct{
			Id: pointID(r.ID),
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: payload,
		})
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Query performs a k-nearest-neighbor search. Qdrant reports cosine
// similarity, converted here to the distance the port expects.
func (s *Store) Query(ctx context.Context, embedding []float32, k int, filter map[string]string) ([]driven.VectorMatch, error) {
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(k),
		Filter:         keywordFilter(filter),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	matches := make([]driven.VectorMatch, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		id, content, metadata := splitPayload(p.GetPayload())
		matches = append(matches, driven.VectorMatch{
			ID:       id,
			Content:  content,
			Metadata: metadata,
			Distance: 1.0 - float64(p.GetScore()),
		})
	}
	return matches, nil
}

// Delete removes records by ID
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*pb.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, pointID(id))
	}

	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete %d points: %w", len(ids), err)
	}
	return nil
}

// DeleteByFilter removes all records whose metadata matches the filter.
// Qdrant's delete does not report how many points it removed, so the
// matching points are counted first.
func (s *Store) DeleteByFilter(ctx context.Context, filter map[string]string) (int, error) {
	f := keywordFilter(filter)
	if f == nil {
		return 0, fmt.Errorf("delete by filter requires a non-empty filter")
	}

	exact := true
	countResp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Filter:         f,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("count matching points: %w", err)
	}
	matched := int(countResp.GetResult().GetCount())
	if matched == 0 {
		return 0, nil
	}

	wait := true
	_, err = s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{Filter: f},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("delete by filter: %w", err)
	}
	return matched, nil
}

// ListMetadata returns the metadata of every stored record by scrolling
// the full collection.
func (s *Store) ListMetadata(ctx context.Context) ([]map[string]string, error) {
	var metas []map[string]string
	var offset *pb.PointId
	limit := uint32(scrollPageSize)

	for {
		resp, err := s.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: s.collection,
			Limit:          &limit,
			Offset:         offset,
			WithPayload: &pb.WithPayloadSelector{
				SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("scroll points: %w", err)
		}

		for _, p := range resp.GetResult() {
			_, _, metadata := splitPayload(p.GetPayload())
			metas = append(metas, metadata)
		}

		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}
	return metas, nil
}

// Count returns the total number of stored records
func (s *Store) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// HealthCheck verifies the Qdrant server is reachable
func (s *Store) HealthCheck(ctx context.Context) error {
	_, err := s.health.HealthCheck(ctx, &pb.HealthCheckRequest{})
	return err
}

// pointID derives a stable UUID point ID from a record ID. Qdrant only
// accepts integer or UUID point IDs, so arbitrary record IDs are mapped
// through a deterministic name-based UUID; the original ID rides along
// in the payload.
func pointID(id string) *pb.PointId {
	return &pb.PointId{
		PointIdOptions: &pb.PointId_Uuid{
			Uuid: uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String(),
		},
	}
}

// keywordFilter builds an exact-match must filter from metadata pairs
func keywordFilter(filter map[string]string) *pb.Filter {
	if len(filter) == 0 {
		return nil
	}
	must := make([]*pb.Condition, 0, len(filter))
	for k, v := range filter {
		must = append(must, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{
					Key: k,
					Match: &pb.Match{
						MatchValue: &pb.Match_Keyword{Keyword: v},
					},
				},
			},
		})
	}
	return &pb.Filter{Must: must}
}

// splitPayload separates the reserved content and id keys from the
// chunk metadata.
func splitPayload(payload map[string]*pb.Value) (id, content string, metadata map[string]string) {
	metadata = make(map[string]string, len(payload))
	for k, v := range payload {
		sv := v.GetStringValue()
		switch k {
		case contentPayloadKey:
			content = sv
		case "id":
			id = sv
		default:
			metadata[k] = sv
		}
	}
	return id, content, metadata
}
