package models

import "time"

// UsersCollection holds one profile document per Firebase UID.
const UsersCollection = "users"

// FieldDisplayName is the only profile field the screen writes.
const FieldDisplayName = "displayName"

// ProfileDocument is the persisted mirror of the editable profile fields, keyed by user id.
type ProfileDocument struct {
	UserID      string    `json:"user_id" firestore:"-" bson:"_id"`
	DisplayName string    `json:"displayName" firestore:"displayName" bson:"displayName"`
	Email       string    `json:"email,omitempty" firestore:"email,omitempty" bson:"email,omitempty"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt" bson:"createdAt"`
}

// UpdateProfileRequest is the body of PUT /api/profile.
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}
