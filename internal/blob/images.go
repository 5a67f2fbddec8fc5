package blob

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/docker/go-units"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/curator/internal/domain"
)

// DefaultMaxImageSize is the upload limit when none is configured (5 MiB).
const DefaultMaxImageSize int64 = 5 * units.MiB

// KeyPrefix scopes every image key.
const KeyPrefix = "acquisitions"

// AllowedImageTypes lists the accepted declared content types.
var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/gif"}

// ImageStore validates, names and addresses acquisition images.
// A nil bucket makes every operation report the store as unavailable.
type ImageStore struct {
	bucket  Bucket
	maxSize int64
}

func NewImageStore(bucket Bucket, maxSize int64) *ImageStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxImageSize
	}
	return &ImageStore{
		bucket:  bucket,
		maxSize: maxSize,
	}
}

// Ready reports whether a bucket is configured.
func (s *ImageStore) Ready() bool { return s.bucket != nil }

// Bucket returns the underlying bucket, nil when unconfigured.
func (s *ImageStore) Bucket() Bucket { return s.bucket }

// MaxSize is the largest accepted payload in bytes.
func (s *ImageStore) MaxSize() int64 { return s.maxSize }

// Upload validates the image and writes it under a fresh key scoped by ownerID.
// The returned address is publicly resolvable.
func (s *ImageStore) Upload(ctx context.Context, data []byte, contentType, filename, ownerID string) (string, error) {
	if !isAllowedImageType(contentType) {
		return "", fmt.Errorf("%w: got %q, allowed: %s",
			domain.ErrUnsupportedImage, contentType, strings.Join(AllowedImageTypes, ", "))
	}
	if int64(len(data)) > s.maxSize {
		return "", fmt.Errorf("%w: %s exceeds the %s limit",
			domain.ErrImageTooLarge, units.BytesSize(float64(len(data))), units.BytesSize(float64(s.maxSize)))
	}
	if s.bucket == nil {
		return "", fmt.Errorf("image bucket not configured: %w", domain.ErrUnavailable)
	}

	key := objectKey(ownerID, filename)
	if err := s.bucket.Put(ctx, key, data, normalizeType(contentType)); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUpload, err)
	}

	return s.address(key), nil
}

// Delete removes the image behind address. It never fails: the outcome says
// what happened. Only DeleteDeleted means the blob is confirmed gone.
func (s *ImageStore) Delete(ctx context.Context, address string) (res domain.DeleteResult) {
	res = domain.DeleteResult{Address: address}

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = domain.DeleteFailed
			res.Err = fmt.Errorf("panic during image delete: %v", r)
		}
	}()

	if s.bucket == nil {
		res.Outcome = domain.DeleteUnavailable
		res.Err = domain.ErrUnavailable
		return res
	}

	key, ok := s.KeyFromAddress(address)
	if !ok {
		res.Outcome = domain.DeleteInvalidAddress
		return res
	}

	err := s.bucket.Delete(ctx, key)
	switch {
	case err == nil:
		res.Outcome = domain.DeleteDeleted
	case errors.Is(err, ErrObjectNotFound):
		res.Outcome = domain.DeleteNotFound
	case errors.Is(err, ErrInvalidKey):
		res.Outcome = domain.DeleteInvalidAddress
	default:
		res.Outcome = domain.DeleteFailed
		res.Err = err
	}
	return res
}

// KeyFromAddress extracts the object key from an address produced by Upload.
// It reports false for addresses outside this store's public base.
func (s *ImageStore) KeyFromAddress(address string) (string, bool) {
	if s.bucket == nil || address == "" {
		return "", false
	}
	key, found := strings.CutPrefix(address, s.bucket.PublicBase()+"/")
	if !found || key == "" {
		return "", false
	}
	return key, true
}

func (s *ImageStore) address(key string) string {
	return s.bucket.PublicBase() + "/" + key
}

func objectKey(ownerID, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, `\`, "/"))))
	return fmt.Sprintf("%s/%s/%s%s", KeyPrefix, ownerID, uuid.NewString(), ext)
}

func normalizeType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

func isAllowedImageType(contentType string) bool {
	mediaType := normalizeType(contentType)
	for _, allowed := range AllowedImageTypes {
		if mediaType == allowed {
			return true
		}
	}
	return false
}
