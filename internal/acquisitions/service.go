// Package acquisitions sequences record store and image store calls for each
// acquisition operation and runs best-effort cleanup when a later step fails.
package acquisitions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/curator/internal/domain"
	"github.com/MrSnakeDoc/curator/internal/logger"
)

// RecordStore is the document store capability the service needs.
type RecordStore interface {
	Ready() bool
	Create(ctx context.Context, a *domain.Acquisition) error
	Get(ctx context.Context, id string) (*domain.Acquisition, error)
	List(ctx context.Context) ([]*domain.Acquisition, []string, error)
	Update(ctx context.Context, id string, patch domain.Patch) error
	Delete(ctx context.Context, id string) error
}

// ImageStore is the blob store capability the service needs.
type ImageStore interface {
	Ready() bool
	Upload(ctx context.Context, data []byte, contentType, filename, ownerID string) (string, error)
	Delete(ctx context.Context, address string) domain.DeleteResult
}

// Image is an uploaded file as received from the client.
type Image struct {
	Data        []byte
	ContentType string
	Filename    string
}

// CreateInput carries every field of a new acquisition.
type CreateInput struct {
	Name         string `validate:"required"`
	Description  string
	DateAcquired time.Time `validate:"required"`
	Source       string
	Tags         []string
	Image        *Image
}

// UpdateInput carries the fields a client supplied. Nil means "leave unchanged".
type UpdateInput struct {
	Name         *string `validate:"omitnil,min=1"`
	Description  *string
	DateAcquired *time.Time
	Source       *string
	Tags         *[]string
	Image        *Image
}

// Outcome is the result of an operation together with every cleanup it ran.
// Compensations are reported even when the operation itself failed.
type Outcome struct {
	Acquisition   *domain.Acquisition
	Compensations []domain.CompensationResult
}

// Service orchestrates acquisitions across the record and image stores.
type Service struct {
	records  RecordStore
	images   ImageStore
	logger   logger.Logger
	validate *validator.Validate
	newID    func() string
}

func NewService(records RecordStore, images ImageStore, log logger.Logger) *Service {
	return &Service{
		records:  records,
		images:   images,
		logger:   log.With(logger.String("component", "acquisitions")),
		validate: validator.New(),
		newID:    uuid.NewString,
	}
}

// Ready reports whether both stores are configured.
func (s *Service) Ready() bool {
	return s.records.Ready() && s.images.Ready()
}

func (s *Service) ensureReady() error {
	switch {
	case !s.records.Ready():
		return fmt.Errorf("record store not configured: %w", domain.ErrUnavailable)
	case !s.images.Ready():
		return fmt.Errorf("image store not configured: %w", domain.ErrUnavailable)
	}
	return nil
}

// Create uploads the image, then writes the record. A failed record write
// removes the just-uploaded image.
func (s *Service) Create(ctx context.Context, in CreateInput) (Outcome, error) {
	var out Outcome

	if err := s.ensureReady(); err != nil {
		return out, err
	}
	if in.Image == nil || len(in.Image.Data) == 0 {
		return out, domain.ErrImageMissing
	}
	if err := s.validateInput(in); err != nil {
		return out, err
	}

	id := s.newID()

	imageURL, err := s.images.Upload(ctx, in.Image.Data, in.Image.ContentType, in.Image.Filename, id)
	if err != nil {
		return out, err
	}

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	a := &domain.Acquisition{
		ID:           id,
		Name:         in.Name,
		Description:  in.Description,
		ImageURL:     imageURL,
		DateAcquired: in.DateAcquired.UTC(),
		Source:       in.Source,
		Tags:         tags,
	}

	if err := s.records.Create(ctx, a); err != nil {
		out.Compensations = append(out.Compensations,
			s.compensate(ctx, domain.CompensateOrphanedImage, id, imageURL))
		return out, asStoreErr("failed to save acquisition", err)
	}

	s.logger.Info("acquisition created", logger.String("id", id))
	out.Acquisition = a
	return out, nil
}

// Get fetches one acquisition.
func (s *Service) Get(ctx context.Context, id string) (Outcome, error) {
	if err := s.ensureReady(); err != nil {
		return Outcome{}, err
	}

	a, err := s.records.Get(ctx, id)
	if err != nil {
		return Outcome{}, asStoreErr("failed to fetch acquisition", err)
	}
	return Outcome{Acquisition: a}, nil
}

// List returns every readable acquisition. Records that cannot be decoded are
// skipped and logged rather than failing the whole listing.
func (s *Service) List(ctx context.Context) ([]*domain.Acquisition, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}

	items, skipped, err := s.records.List(ctx)
	if err != nil {
		return nil, asStoreErr("failed to retrieve acquisitions", err)
	}
	if len(skipped) > 0 {
		s.logger.Warn("skipped unreadable acquisitions",
			logger.Int("count", len(skipped)),
			logger.Strings("ids", skipped))
	}
	if items == nil {
		items = []*domain.Acquisition{}
	}
	return items, nil
}

// Update applies only the supplied fields. A new image is uploaded before the
// record is patched; the previous image is removed only after the patch
// succeeds. The returned acquisition is re-read from the store.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Outcome, error) {
	var out Outcome

	if err := s.ensureReady(); err != nil {
		return out, err
	}

	existing, err := s.records.Get(ctx, id)
	if err != nil {
		return out, asStoreErr("failed to fetch acquisition", err)
	}

	patch := domain.Patch{
		Name:         in.Name,
		Description:  in.Description,
		DateAcquired: in.DateAcquired,
		Source:       in.Source,
		Tags:         in.Tags,
	}
	if patch.IsEmpty() && in.Image == nil {
		return out, domain.ErrNothingToUpdate
	}
	if err := s.validateInput(in); err != nil {
		return out, err
	}

	var newImageURL string
	if in.Image != nil {
		newImageURL, err = s.images.Upload(ctx, in.Image.Data, in.Image.ContentType, in.Image.Filename, id)
		if err != nil {
			return out, err
		}
		patch.ImageURL = &newImageURL
	}

	if err := s.records.Update(ctx, id, patch); err != nil {
		if newImageURL != "" {
			out.Compensations = append(out.Compensations,
				s.compensate(ctx, domain.CompensateOrphanedImage, id, newImageURL))
		}
		return out, asStoreErr("failed to update acquisition", err)
	}

	if newImageURL != "" && existing.ImageURL != "" && existing.ImageURL != newImageURL {
		out.Compensations = append(out.Compensations,
			s.compensate(ctx, domain.CompensateSupersededImage, id, existing.ImageURL))
	}

	updated, err := s.records.Get(ctx, id)
	if err != nil {
		return out, asStoreErr("failed to fetch updated acquisition", err)
	}

	s.logger.Info("acquisition updated",
		logger.String("id", id),
		logger.Bool("image_replaced", newImageURL != ""))
	out.Acquisition = updated
	return out, nil
}

// Delete removes the record first and its image afterwards. Image removal
// never changes the result once the record is gone.
func (s *Service) Delete(ctx context.Context, id string) (Outcome, error) {
	var out Outcome

	if err := s.ensureReady(); err != nil {
		return out, err
	}

	existing, err := s.records.Get(ctx, id)
	if err != nil {
		return out, asStoreErr("failed to fetch acquisition", err)
	}

	if err := s.records.Delete(ctx, id); err != nil {
		return out, asStoreErr("failed to delete acquisition", err)
	}

	if existing.ImageURL != "" {
		out.Compensations = append(out.Compensations,
			s.compensate(ctx, domain.CompensateRecordImage, id, existing.ImageURL))
	}

	s.logger.Info("acquisition deleted", logger.String("id", id))
	out.Acquisition = existing
	return out, nil
}

// compensate deletes an image best-effort and logs anything short of a confirmed delete.
func (s *Service) compensate(ctx context.Context, action domain.CompensationAction, id, address string) domain.CompensationResult {
	res := domain.CompensationResult{
		Action:       action,
		DeleteResult: s.images.Delete(ctx, address),
	}

	log := s.logger.With(
		logger.String("id", id),
		logger.String("action", string(action)),
		logger.String("image_url", address),
		logger.String("outcome", string(res.Outcome)))

	switch res.Outcome {
	case domain.DeleteDeleted:
		log.Debug("image cleanup done")
	case domain.DeleteNotFound:
		log.Info("image cleanup skipped, blob already absent")
	default:
		if res.Err != nil {
			log = log.With(logger.Error(res.Err))
		}
		log.Warn("image cleanup failed")
	}

	return res
}

func (s *Service) validateInput(in any) error {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s failed %q check: %w", verrs[0].Field(), verrs[0].Tag(), domain.ErrInvalidInput)
		}
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrInvalidInput)
	}
	return nil
}

// asStoreErr keeps known failure kinds and wraps everything else as a store error.
func asStoreErr(msg string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUnavailable),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrStore):
		return fmt.Errorf("%s: %w", msg, err)
	default:
		return fmt.Errorf("%s: %w: %w", msg, domain.ErrStore, err)
	}
}
