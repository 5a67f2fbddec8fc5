package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCSBucket stores objects in a Google Cloud Storage bucket (the storage
// behind Firebase Storage). Credentials come from the ambient application
// default credentials (GOOGLE_APPLICATION_CREDENTIALS and friends).
type GCSBucket struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

// NewGCSBucket opens a client for the named bucket. It does not verify the
// bucket exists; the first write or read will.
func NewGCSBucket(ctx context.Context, name string) (*GCSBucket, error) {
	if name == "" {
		return nil, fmt.Errorf("bucket name required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCSBucket{
		client: client,
		bucket: client.Bucket(name),
		name:   name,
	}, nil
}

func (g *GCSBucket) Name() string       { return g.name }
func (g *GCSBucket) PublicBase() string { return gcsPublicHost + "/" + g.name }

func (g *GCSBucket) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrInvalidKey
	}

	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.ACL = []storage.ACLRule{{Entity: storage.AllUsers, Role: storage.RoleReader}}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object %s: %w", key, err)
	}
	return nil
}

func (g *GCSBucket) Open(ctx context.Context, key string) ([]byte, string, error) {
	r, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, "", ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("open object %s: %w", key, err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("read object %s: %w", key, err)
	}
	return data, r.Attrs.ContentType, nil
}

func (g *GCSBucket) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.bucket.Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat object %s: %w", key, err)
	}
	return true, nil
}

func (g *GCSBucket) Delete(ctx context.Context, key string) error {
	if err := g.bucket.Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying client.
func (g *GCSBucket) Close() error {
	return g.client.Close()
}
