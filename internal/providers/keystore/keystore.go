package keystore

import (
	"context"
	"errors"
)

// Table is the key table shared by both backends.
const Table = "user_llm_api_keys"

var (
	// ErrNotFound means the user has no stored key.
	ErrNotFound = errors.New("api key not found")
	// ErrEmptyKey means a row exists but carries no usable key.
	ErrEmptyKey = errors.New("stored api key is empty")
)

// Reader looks up a user's key.
type Reader interface {
	APIKey(ctx context.Context, userID string) (string, error)
}

// Writer stores a user's key.
type Writer interface {
	PutAPIKey(ctx context.Context, userID, apiKey string) error
}
