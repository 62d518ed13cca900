package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/memoryvista/memoryvista/backend/go-services/internal/content"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo stores content items one document per item, history embedded. A single-document
// FindOneAndUpdate guarded by the revision field is the atomic read-modify-write the workflow
// relies on; no multi-document transactions are needed.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(ctx context.Context, col *mongo.Collection) (*MongoRepo, error) {
	idx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "universityId", Value: 1}, {Key: "profileId", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	if _, err := col.Indexes().CreateMany(ctx, idx); err != nil {
		return nil, fmt.Errorf("content indexes: %w", err)
	}
	return &MongoRepo{col: col}, nil
}

func (m *MongoRepo) Create(ctx context.Context, it *content.Item) (string, error) {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	if it.UpdatedAt.IsZero() {
		it.UpdatedAt = it.CreatedAt
	}
	// an empty array (never null) so $push works on the first transition
	if it.History == nil {
		it.History = []content.HistoryEntry{}
	}
	if it.Revision == 0 {
		it.Revision = 1
	}
	if _, err := m.col.InsertOne(ctx, it); err != nil {
		return "", fmt.Errorf("insert content: %w", err)
	}
	return it.ID, nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*content.Item, error) {
	var it content.Item
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&it); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find content: %w", err)
	}
	return &it, nil
}

func (m *MongoRepo) List(ctx context.Context, f Filter) ([]*content.Item, error) {
	q := bson.M{}
	if f.UniversityID != "" {
		q["universityId"] = f.UniversityID
	}
	if f.ProfileID != "" {
		q["profileId"] = f.ProfileID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := m.col.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer cur.Close(ctx)
	out := []*content.Item{}
	for cur.Next(ctx) {
		var it content.Item
		if err := cur.Decode(&it); err != nil {
			return nil, fmt.Errorf("decode content: %w", err)
		}
		out = append(out, &it)
	}
	return out, cur.Err()
}

func (m *MongoRepo) ApplyChange(ctx context.Context, id string, expectedRevision int64, ch content.Change) (*content.Item, error) {
	update := changeUpdate(ch)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var it content.Item
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id, "revision": expectedRevision}, update, opts).Decode(&it)
	if err == nil {
		return &it, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("apply change: %w", err)
	}
	// the guard did not match: either the item is gone or someone else won the race
	n, cerr := m.col.CountDocuments(ctx, bson.M{"_id": id})
	if cerr != nil {
		return nil, fmt.Errorf("apply change: %w", cerr)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrConflict
}

func (m *MongoRepo) Ping(ctx context.Context) error {
	return m.col.Database().Client().Ping(ctx, nil)
}

// changeUpdate builds the update document for ch; it mirrors content.Item.Apply.
func changeUpdate(ch content.Change) bson.M {
	set := bson.M{"updatedBy": ch.UpdatedBy, "updatedAt": ch.UpdatedAt}
	if ch.Status != "" {
		set["status"] = ch.Status
	}
	if ch.Title != nil {
		set["title"] = *ch.Title
	}
	if ch.Body != nil {
		set["body"] = *ch.Body
	}
	update := bson.M{"$set": set, "$inc": bson.M{"revision": 1}}
	if ch.Entry != nil {
		update["$push"] = bson.M{"history": *ch.Entry}
	}
	return update
}
