// Package blob stores acquisition images. Bucket is the minimal capability
// every object storage backend provides; ImageStore layers validation,
// naming and public addressing on top of it.
package blob

import (
	"context"
	"errors"
)

// Bucket errors returned by Bucket implementations.
var (
	// ErrObjectNotFound indicates the key does not exist in the bucket.
	ErrObjectNotFound = errors.New("blob: object not found")

	// ErrInvalidKey indicates the key is empty or escapes the bucket.
	ErrInvalidKey = errors.New("blob: invalid key")
)

// Bucket is an object store holding image bytes under string keys.
type Bucket interface {
	// Name identifies the bucket in logs and status reports.
	Name() string

	// PublicBase is the address prefix under which objects are publicly
	// readable. An object's address is PublicBase() + "/" + key.
	PublicBase() string

	// Put writes data at key, replacing any existing object, and makes
	// it publicly readable.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Open returns the object's data and content type.
	// Returns ErrObjectNotFound if the key does not exist.
	Open(ctx context.Context, key string) ([]byte, string, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Returns ErrObjectNotFound if it does not exist.
	Delete(ctx context.Context, key string) error
}
