package services

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/medcontrol/backend/internal/models"
)

// FirestoreProfileService writes profile documents to Cloud Firestore.
type FirestoreProfileService struct {
	client *firestore.Client
}

func NewFirestoreProfileService(client *firestore.Client) *FirestoreProfileService {
	return &FirestoreProfileService{client: client}
}

func (s *FirestoreProfileService) Close() error {
	return s.client.Close()
}

// UpdateDocument updates fields of an existing document; a missing document is
// reported as ErrProfileNotFound rather than created.
func (s *FirestoreProfileService) UpdateDocument(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	_, err := s.client.Collection(collection).Doc(key).Update(ctx, fieldUpdates(fields))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s/%s", ErrProfileNotFound, collection, key)
		}
		return fmt.Errorf("firestore update %s/%s: %w", collection, key, err)
	}
	return nil
}

// SetDocument creates the document or merges fields into it.
func (s *FirestoreProfileService) SetDocument(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	if _, err := s.client.Collection(collection).Doc(key).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("firestore set %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *FirestoreProfileService) GetProfile(ctx context.Context, uid string) (*models.ProfileDocument, error) {
	snap, err := s.client.Collection(models.UsersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	var prof models.ProfileDocument
	if err := snap.DataTo(&prof); err != nil {
		return nil, err
	}
	prof.UserID = snap.Ref.ID
	return &prof, nil
}

// fieldUpdates turns a field map into Firestore updates in a stable order.
func fieldUpdates(fields map[string]interface{}) []firestore.Update {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{Path: k, Value: fields[k]})
	}
	return updates
}
