// Package qdrant implements vector.Repository against a Qdrant server over
// gRPC, for deployments where the index outgrows a single embedded file.
package qdrant

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"ragbot/internal/vector"
)

// Repository is a Qdrant-backed vector repository.
type Repository struct {
	conn       *grpc.ClientConn
	points     pb.PointsClient
	collection string
}

// New connects to Qdrant and ensures the collection exists with the
// configured dimension. An existing collection built with a different
// dimension fails with vector.ErrDimensionMismatch.
func New(ctx context.Context, host string, port int, collection string, dimension int) (*Repository, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}

	r := &Repository{
		conn:       conn,
		points:     pb.NewPointsClient(conn),
		collection: collection,
	}
	if err := r.ensureCollection(ctx, dimension); err != nil {
		conn.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) ensureCollection(ctx context.Context, dimension int) error {
	collections := pb.NewCollectionsClient(r.conn)

	info, err := collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: r.collection})
	if err != nil {
		if status.Code(err) != codes.NotFound {
			return fmt.Errorf("qdrant collection info: %w", err)
		}
		_, err = collections.Create(ctx, &pb.CreateCollection{
			CollectionName: r.collection,
			VectorsConfig: &pb.VectorsConfig{
				Config: &pb.VectorsConfig_Params{
					Params: &pb.VectorParams{
						Size:     uint64(dimension),
						Distance: pb.Distance_Cosine,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("qdrant create collection: %w", err)
		}
		return nil
	}

	params := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params != nil && params.GetSize() != uint64(dimension) {
		return fmt.Errorf("%w: collection %q built with %d, configured %d",
			vector.ErrDimensionMismatch, r.collection, params.GetSize(), dimension)
	}
	return nil
}

func (r *Repository) Upsert(ctx context.Context, entries []vector.Entry) error {
	points := make([]*pb.PointStruct, len(entries))
	for i, e := range entries {
		payload := map[string]*pb.Value{
			"content": {Kind: &pb.Value_StringValue{StringValue: e.Content}},
		}
		for k, v := range e.Metadata {
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: e.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: e.Vector}}},
			Payload: payload,
		}
	}

	wait := true
	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (r *Repository) Search(ctx context.Context, vec []float32, k int) ([]vector.Result, error) {
	if k <= 0 {
		return nil, nil
	}

	resp, err := r.points.Search(ctx, &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vec,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	results := make([]vector.Result, len(resp.Result))
	for i, pt := range resp.Result {
		content := ""
		meta := make(map[string]string)
		for key, v := range pt.Payload {
			if key == "content" {
				content = v.GetStringValue()
			} else {
				meta[key] = v.GetStringValue()
			}
		}
		results[i] = vector.Result{
			ID:       pt.Id.GetUuid(),
			Score:    pt.Score,
			Content:  content,
			Metadata: meta,
		}
	}
	return results, nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := r.points.Count(ctx, &pb.CountPoints{
		CollectionName: r.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func (r *Repository) Close() error {
	return r.conn.Close()
}

var _ vector.Repository = (*Repository)(nil)
