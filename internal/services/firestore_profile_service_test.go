package services

import (
	"errors"
	"reflect"
	"testing"

	"cloud.google.com/go/firestore"
)

func TestFieldUpdates(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]interface{}
		want   []firestore.Update
	}{
		{
			name:   "empty",
			fields: map[string]interface{}{},
			want:   []firestore.Update{},
		},
		{
			name:   "nil map",
			fields: nil,
			want:   []firestore.Update{},
		},
		{
			name:   "single field",
			fields: map[string]interface{}{"displayName": "Alice"},
			want:   []firestore.Update{{Path: "displayName", Value: "Alice"}},
		},
		{
			name: "sorted by path",
			fields: map[string]interface{}{
				"photoURL":    "https://img/a.png",
				"displayName": "Alice",
				"email":       "alice@x.com",
			},
			want: []firestore.Update{
				{Path: "displayName", Value: "Alice"},
				{Path: "email", Value: "alice@x.com"},
				{Path: "photoURL", Value: "https://img/a.png"},
			},
		},
		{
			name:   "values kept as given",
			fields: map[string]interface{}{"age": 42, "active": true, "nick": nil},
			want: []firestore.Update{
				{Path: "active", Value: true},
				{Path: "age", Value: 42},
				{Path: "nick", Value: nil},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fieldUpdates(tt.fields)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("fieldUpdates() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClassifyVerifyErrorKeepsTransportFailures(t *testing.T) {
	cause := errors.New("fetching public keys: connection refused")
	err := classifyVerifyError(cause)
	if errors.Is(err, ErrInvalidSession) {
		t.Fatalf("transport failure reported as invalid session: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want %v", err, cause)
	}
}
