// Package refindex provides the reference-store adapters behind the matcher's
// similarity search. The canonical backend is Qdrant over gRPC; MemoryIndex
// offers an in-process drop-in for tests, demos, and small catalogs.
package refindex

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/FinchOCR/addrmatch/engine/domain"
	"github.com/FinchOCR/addrmatch/pkg/resilience"
)

// VectorStore is the sole owner of all Qdrant operations for the reference
// catalog. Search failures trip an internal circuit breaker so a dead backend
// fails fast instead of stalling every correction.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	breaker     *resilience.Breaker
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("refindex: dial qdrant %s: %w: %v", addr, domain.ErrStoreUnavailable, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		breaker:     resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}, nil
}

// NewWithClients creates a VectorStore with explicit clients. Used by tests.
func NewWithClients(points pb.PointsClient, collections pb.CollectionsClient, collection string) *VectorStore {
	return &VectorStore{
		points:      points,
		collections: collections,
		collection:  collection,
		breaker:     resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// EnsureCollection creates the collection with cosine distance if it does not
// exist yet. Called by the index builder, never during serving.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("refindex: list collections: %w: %v", domain.ErrStoreUnavailable, err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return v.CheckCompatible(ctx, dims)
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
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
		return fmt.Errorf("refindex: create collection %s: %w: %v", v.collection, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// CheckCompatible verifies that the collection's vector size matches the
// dimension of the loaded vectorizer artifact. A mismatch means the index was
// built against a different fit and is surfaced immediately.
func (v *VectorStore) CheckCompatible(ctx context.Context, dims int) error {
	info, err := v.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: v.collection})
	if err != nil {
		return fmt.Errorf("refindex: collection info %s: %w: %v", v.collection, domain.ErrStoreUnavailable, err)
	}
	size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size != uint64(dims) {
		return fmt.Errorf("refindex: collection %s has %d-dim vectors, artifact produces %d: %w",
			v.collection, size, dims, domain.ErrArtifactIncompatible)
	}
	return nil
}

// DeleteCollection drops the collection. Used when rebuilding the index.
func (v *VectorStore) DeleteCollection(ctx context.Context) error {
	_, err := v.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: v.collection})
	if err != nil {
		return fmt.Errorf("refindex: delete collection %s: %w: %v", v.collection, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Upsert stores reference records with their embeddings. Called by the
// ingestion pipeline; the serving path never mutates the store.
func (v *VectorStore) Upsert(ctx context.Context, records []domain.ReferenceRecord) error {
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
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: map[string]*pb.Value{
				"vendor_name": stringValue(r.VendorName),
				"address":     stringValue(r.Address),
				"city":        stringValue(r.City),
				"postcode":    stringValue(r.Postcode),
				"country":     stringValue(r.Country),
			},
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("refindex: upsert %d points: %w: %v", len(records), domain.ErrStoreUnavailable, err)
	}
	return nil
}

// SearchSimilar performs approximate k-NN search and returns candidates in
// the store's descending-similarity order. It may return fewer than topK
// results, or none at all.
func (v *VectorStore) SearchSimilar(ctx context.Context, vec []float32, topK int) ([]domain.CandidateRecord, error) {
	var resp *pb.SearchResponse
	err := v.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		resp, err = v.points.Search(ctx, &pb.SearchPoints{
			CollectionName: v.collection,
			Vector:         vec,
			Limit:          uint64(topK),
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("refindex: search: %w: %v", domain.ErrStoreUnavailable, err)
	}

	results := make([]domain.CandidateRecord, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		cand := domain.CandidateRecord{
			ReferenceRecord: domain.ReferenceRecord{ID: r.GetId().GetUuid()},
			Similarity:      float64(r.GetScore()),
		}
		for k, val := range r.GetPayload() {
			s := val.GetStringValue()
			switch k {
			case "vendor_name":
				cand.VendorName = s
			case "address":
				cand.Address = s
			case "city":
				cand.City = s
			case "postcode":
				cand.Postcode = s
			case "country":
				cand.Country = s
			}
		}
		results[i] = cand
	}
	return results, nil
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}
