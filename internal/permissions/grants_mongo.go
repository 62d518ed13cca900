package permissions

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoGrantStore keeps one document per (identity, resourceId), enforced by a unique index.
type MongoGrantStore struct {
	col *mongo.Collection
}

func NewMongoGrantStore(ctx context.Context, col *mongo.Collection) (*MongoGrantStore, error) {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "resourceId", Value: 1}, {Key: "identity", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, fmt.Errorf("grant index: %w", err)
	}
	return &MongoGrantStore{col: col}, nil
}

func (s *MongoGrantStore) LookupGrant(ctx context.Context, identity, resourceID string) (*Grant, error) {
	var g Grant
	err := s.col.FindOne(ctx, bson.M{"identity": identity, "resourceId": resourceID}).Decode(&g)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup grant: %w", err)
	}
	return &g, nil
}

func (s *MongoGrantStore) PutGrant(ctx context.Context, g *Grant) error {
	filter := bson.M{"identity": g.Identity, "resourceId": g.ResourceID}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.col.ReplaceOne(ctx, filter, g, opts); err != nil {
		return fmt.Errorf("put grant: %w", err)
	}
	return nil
}

func (s *MongoGrantStore) DeleteGrant(ctx context.Context, identity, resourceID string) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"identity": identity, "resourceId": resourceID})
	if err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrGrantNotFound
	}
	return nil
}

func (s *MongoGrantStore) ListGrants(ctx context.Context, resourceID string) ([]*Grant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "identity", Value: 1}})
	cur, err := s.col.Find(ctx, bson.M{"resourceId": resourceID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer cur.Close(ctx)
	out := []*Grant{}
	for cur.Next(ctx) {
		var g Grant
		if err := cur.Decode(&g); err != nil {
			return nil, fmt.Errorf("decode grant: %w", err)
		}
		out = append(out, &g)
	}
	return out, cur.Err()
}
