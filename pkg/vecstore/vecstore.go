// Package vecstore is the sole owner of all Qdrant operations. The index
// builder upserts chunk embeddings here and the document retriever can
// search it instead of the local brute-force matrix.
package vecstore

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Record is a single chunk embedding to store.
type Record struct {
	ID       string // point UUID
	Vector   []float32
	SourceID string // doc:<name>:<chunk>
	Doc      string
	Chunk    string
}

// Result is a single similarity hit. Score is cosine similarity, higher
// is better.
type Result struct {
	SourceID string
	Score    float32
}

// pointsAPI is the slice of pb.PointsClient the store uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// collectionsAPI is the slice of pb.CollectionsClient the store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// Store wraps a Qdrant collection over gRPC.
type Store struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
}

// New connects to Qdrant at the given gRPC address.
func New(addr, collection string) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("vecstore: dial qdrant %s: %w", addr, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// NewWithClients builds a Store on pre-built clients. Tests use this.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string) *Store {
	return &Store{points: points, collections: collections, collection: collection}
}

// Close closes the underlying gRPC connection, if one was dialed.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// EnsureCollection creates the collection if it does not exist yet.
func (s *Store) EnsureCollection(ctx context.Context, dims int) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("vecstore: list collections: %w", err)
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
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vecstore: create collection %s: %w", s.collection, err)
	}
	return nil
}

// DeleteCollection drops the collection. Used before a full index rebuild.
func (s *Store) DeleteCollection(ctx context.Context) error {
	_, err := s.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: s.collection,
	})
	if err != nil {
		return fmt.Errorf("vecstore: delete collection %s: %w", s.collection, err)
	}
	return nil
}

// Upsert stores chunk embeddings. Vectors should be L2-normalized so the
// cosine score matches the local inner-product path.
func (s *Store) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Vector},
				},
			},
			Payload: map[string]*pb.Value{
				"source_id": {Kind: &pb.Value_StringValue{StringValue: r.SourceID}},
				"doc":       {Kind: &pb.Value_StringValue{StringValue: r.Doc}},
				"chunk":     {Kind: &pb.Value_StringValue{StringValue: r.Chunk}},
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
		return fmt.Errorf("vecstore: upsert %d points: %w", len(records), err)
	}
	return nil
}

// Search performs k-NN similarity search and returns hits with their
// source_id payload.
func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]Result, error) {
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("vecstore: search: %w", err)
	}

	results := make([]Result, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		results[i] = Result{
			SourceID: r.GetPayload()["source_id"].GetStringValue(),
			Score:    r.GetScore(),
		}
	}
	return results, nil
}
