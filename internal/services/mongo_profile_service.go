package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medcontrol/backend/internal/models"
)

// MongoProfileService stores profile documents in MongoDB, one collection per
// document collection and the user id as _id.
type MongoProfileService struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoProfileService(ctx context.Context, mongoURI, dbName string) (*MongoProfileService, error) {
	opts := options.Client().ApplyURI(mongoURI)
	if strings.HasPrefix(mongoURI, "mongodb+srv://") {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoProfileService{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

func (s *MongoProfileService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// UpdateDocument sets fields on an existing document.
func (s *MongoProfileService) UpdateDocument(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": key}, bson.M{
		"$set": bson.M(fields),
	})
	if err != nil {
		return fmt.Errorf("mongo update %s/%s: %w", collection, key, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s/%s", ErrProfileNotFound, collection, key)
	}
	return nil
}

// SetDocument upserts the document, stamping createdAt on insert.
func (s *MongoProfileService) SetDocument(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	update := bson.M{"$set": bson.M(fields)}
	// MongoDB forbids the same path in both $set and $setOnInsert.
	if _, ok := fields["createdAt"]; !ok {
		update["$setOnInsert"] = bson.M{"createdAt": time.Now().UTC()}
	}
	_, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo set %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *MongoProfileService) GetProfile(ctx context.Context, uid string) (*models.ProfileDocument, error) {
	var prof models.ProfileDocument
	err := s.db.Collection(models.UsersCollection).FindOne(ctx, bson.M{"_id": uid}).Decode(&prof)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &prof, nil
}
