package knowledge

import (
	"context"
	"fmt"
	"io"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	payloadText    = "text"
	payloadChunkID = "chunk_id"
)

// QdrantStore keeps chunks in a Qdrant collection over gRPC.
type QdrantStore struct {
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	closer      io.Closer
}

// DialQdrant connects to a Qdrant gRPC endpoint (host:6334).
func DialQdrant(addr, collection string, opts ...grpc.DialOption) (*QdrantStore, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect qdrant %s: %w", addr, err)
	}
	s := NewQdrantStore(conn, collection)
	s.closer = conn
	return s, nil
}

// NewQdrantStore uses an existing connection. The caller keeps ownership of conn.
func NewQdrantStore(conn grpc.ClientConnInterface, collection string) *QdrantStore {
	return &QdrantStore{
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}
}

// Open checks the server is reachable. A missing collection is not an error;
// it is created by the next Reset.
func (s *QdrantStore) Open(ctx context.Context) error {
	if _, err := s.collections.List(ctx, &pb.ListCollectionsRequest{}); err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	return nil
}

func (s *QdrantStore) exists(ctx context.Context) (bool, error) {
	resp, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}
	for _, c := range resp.GetCollections() {
		if c.GetName() == s.collection {
			return true, nil
		}
	}
	return false, nil
}

// Reset recreates the collection with cosine distance.
func (s *QdrantStore) Reset(ctx context.Context, dim int) error {
	ok, err := s.exists(ctx)
	if err != nil {
		return err
	}
	if ok {
		if _, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: s.collection}); err != nil {
			return fmt.Errorf("delete collection %s: %w", s.collection, err)
		}
	}
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dim),
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

func (s *QdrantStore) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]*pb.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: c.ID}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: c.Vector}},
			},
			Payload: map[string]*pb.Value{
				payloadText:    {Kind: &pb.Value_StringValue{StringValue: c.Text}},
				payloadChunkID: {Kind: &pb.Value_IntegerValue{IntegerValue: int64(c.ChunkID)}},
			},
		}
	}
	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, limit int) ([]Match, error) {
	if limit <= 0 {
		return nil, nil
	}
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}
	matches := make([]Match, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		payload := r.GetPayload()
		matches = append(matches, Match{
			Text:    payload[payloadText].GetStringValue(),
			ChunkID: int(payload[payloadChunkID].GetIntegerValue()),
			Score:   float64(r.GetScore()),
		})
	}
	return matches, nil
}

// Count returns the number of points, or 0 when the collection does not exist.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	ok, err := s.exists(ctx)
	if err != nil || !ok {
		return 0, err
	}
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{CollectionName: s.collection, Exact: &exact})
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Close releases the connection opened by DialQdrant.
func (s *QdrantStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
