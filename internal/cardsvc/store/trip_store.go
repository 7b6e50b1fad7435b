package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vblancom/tullave-services/internal/cardsvc/models"
)

const tripCollection = "trips"

// TripStore keeps the short-lived planned-trip history in MongoDB. Records
// expire through the TTL index on expires_at.
type TripStore struct {
	col *mongo.Collection
}

func NewTripStore(db *mongo.Database) *TripStore {
	return &TripStore{col: db.Collection(tripCollection)}
}

// Save appends a planned trip to the history.
func (s *TripStore) Save(ctx context.Context, rec models.TripRecord) error {
	if _, err := s.col.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to save trip record: %w", err)
	}
	return nil
}

// Recent returns the latest planned trips, newest first.
func (s *TripStore) Recent(ctx context.Context, limit int64) ([]models.TripRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.M{"planned_at": -1}).
		SetLimit(limit)

	cursor, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query trip history: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.TripRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode trip history: %w", err)
	}
	return records, nil
}
