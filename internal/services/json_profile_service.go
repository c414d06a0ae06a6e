package services

import (
	"context"
	"fmt"
	"time"

	"github.com/medcontrol/backend/internal/models"
	"github.com/medcontrol/backend/internal/storage"
)

type jsonDocuments struct {
	Collections map[string]map[string]map[string]interface{} `json:"collections"`
}

// JSONProfileService keeps profile documents in a single JSON file. It is the
// local stand-in for Firestore.
type JSONProfileService struct {
	store *storage.JSONStore
}

func NewJSONProfileService(dataDir string) (*JSONProfileService, error) {
	store, err := storage.NewJSONStore(dataDir, "documents.json")
	if err != nil {
		return nil, err
	}
	return &JSONProfileService{store: store}, nil
}

// UpdateDocument merges fields into an existing document.
func (s *JSONProfileService) UpdateDocument(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var docs jsonDocuments
	return s.store.Mutate(&docs, func() error {
		doc, ok := docs.Collections[collection][key]
		if !ok {
			return fmt.Errorf("%w: %s/%s", ErrProfileNotFound, collection, key)
		}
		for k, v := range fields {
			doc[k] = v
		}
		return nil
	})
}

// SetDocument creates the document or merges fields into it.
func (s *JSONProfileService) SetDocument(ctx context.Context, collection, key string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var docs jsonDocuments
	return s.store.Mutate(&docs, func() error {
		if docs.Collections == nil {
			docs.Collections = make(map[string]map[string]map[string]interface{})
		}
		col := docs.Collections[collection]
		if col == nil {
			col = make(map[string]map[string]interface{})
			docs.Collections[collection] = col
		}
		doc := col[key]
		if doc == nil {
			doc = map[string]interface{}{"createdAt": time.Now().UTC().Format(time.RFC3339)}
			col[key] = doc
		}
		for k, v := range fields {
			doc[k] = v
		}
		return nil
	})
}

// GetDocument returns a copy of the stored fields.
func (s *JSONProfileService) GetDocument(ctx context.Context, collection, key string) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var docs jsonDocuments
	if err := s.store.Load(&docs); err != nil {
		return nil, err
	}
	doc, ok := docs.Collections[collection][key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrProfileNotFound, collection, key)
	}
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

// GetProfile reads the user's document from the users collection.
func (s *JSONProfileService) GetProfile(ctx context.Context, uid string) (*models.ProfileDocument, error) {
	doc, err := s.GetDocument(ctx, models.UsersCollection, uid)
	if err != nil {
		return nil, err
	}
	prof := &models.ProfileDocument{UserID: uid}
	prof.DisplayName, _ = doc[models.FieldDisplayName].(string)
	prof.Email, _ = doc["email"].(string)
	if raw, ok := doc["createdAt"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			prof.CreatedAt = ts
		}
	}
	return prof, nil
}
