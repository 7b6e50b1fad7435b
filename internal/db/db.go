// Package db holds the MongoDB connection used for the planned-trip
// history.
package db

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectToDB opens the Mongo database named in MONGODB_URI.
func ConnectToDB() (*mongo.Database, context.CancelFunc, error) {
	mongoURI := os.Getenv("MONGODB_URI")

	uri, err := url.Parse(mongoURI)
	if err != nil {
		return nil, nil, err
	}

	dbName := strings.TrimPrefix(uri.Path, "/")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		cancel()
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		cancel()
		return nil, nil, err
	}

	return client.Database(dbName), cancel, nil
}

// CreateTTLIndexForCollection lets MongoDB expire documents of a collection
// at their `expires_at` value. Trip history relies on this instead of a
// cleanup job.
func CreateTTLIndexForCollection(db *mongo.Database, collectionName string) {
	collection := db.Collection(collectionName)

	indexModel := mongo.IndexModel{
		Keys:    bson.M{"expires_at": 1},
		Options: options.Index().SetExpireAfterSeconds(0), // expire at the ExpiresAt field itself
	}

	_, err := collection.Indexes().CreateOne(context.TODO(), indexModel)
	if err != nil {
		log.Fatalf("failed to create TTL index on %s: %v", collectionName, err)
	}
}
