package services

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// AvatarStorage is the profile's handle on the Firebase Storage bucket. Profile
// photos live under avatars/{uid}/.
type AvatarStorage struct {
	bucket *storage.BucketHandle
}

func NewAvatarStorage(bucket *storage.BucketHandle) *AvatarStorage {
	return &AvatarStorage{bucket: bucket}
}

func avatarPrefix(uid string) string { return "avatars/" + uid + "/" }

// DeleteUserAvatars removes every object under the user's avatar prefix and
// returns how many were deleted.
func (a *AvatarStorage) DeleteUserAvatars(ctx context.Context, uid string) (int, error) {
	if a == nil || a.bucket == nil || uid == "" {
		return 0, nil
	}
	deleted := 0
	it := a.bucket.Objects(ctx, &storage.Query{Prefix: avatarPrefix(uid)})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("list avatars: %w", err)
		}
		if err := a.bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return deleted, fmt.Errorf("delete %s: %w", attrs.Name, err)
		}
		deleted++
	}
	return deleted, nil
}
