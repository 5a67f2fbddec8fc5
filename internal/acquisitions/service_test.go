package acquisitions

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/curator/internal/blob"
	"github.com/MrSnakeDoc/curator/internal/domain"
	"github.com/MrSnakeDoc/curator/internal/logger"
)

// fakeRecords is an in-memory RecordStore with injectable failures.
type fakeRecords struct {
	mu        sync.Mutex
	items     map[string]domain.Acquisition
	skipped   []string
	createErr error
	updateErr error
	deleteErr error
	listErr   error
	writes    int
	ready     bool
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{items: map[string]domain.Acquisition{}, ready: true}
}

func (f *fakeRecords) Ready() bool { return f.ready }

func (f *fakeRecords) Create(_ context.Context, a *domain.Acquisition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.writes++
	f.items[a.ID] = *a
	return nil
}

func (f *fakeRecords) Get(_ context.Context, id string) (*domain.Acquisition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (f *fakeRecords) List(_ context.Context) ([]*domain.Acquisition, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, nil, f.listErr
	}
	out := make([]*domain.Acquisition, 0, len(f.items))
	for _, a := range f.items {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, f.skipped, nil
}

func (f *fakeRecords) Update(_ context.Context, id string, p domain.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	a, ok := f.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	f.writes++
	f.items[id] = p.Apply(a)
	return nil
}

func (f *fakeRecords) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.items[id]; !ok {
		return domain.ErrNotFound
	}
	f.writes++
	delete(f.items, id)
	return nil
}

// brokenDeleteBucket accepts uploads but fails every delete.
type brokenDeleteBucket struct {
	*blob.MemoryBucket
}

func (b brokenDeleteBucket) Delete(context.Context, string) error {
	return errors.New("storage backend timeout")
}

const publicBase = "https://storage.googleapis.com/test-bucket"

func newTestService(t *testing.T) (*Service, *fakeRecords, *blob.MemoryBucket) {
	t.Helper()
	records := newFakeRecords()
	bucket := blob.NewMemoryBucket("test-bucket", publicBase)
	images := blob.NewImageStore(bucket, 0)
	return NewService(records, images, logger.Nop()), records, bucket
}

func pngImage() *Image {
	return &Image{Data: []byte("\x89PNG fake"), ContentType: "image/png", Filename: "photo.PNG"}
}

func validCreate() CreateInput {
	return CreateInput{
		Name:         "Brass compass",
		Description:  "Pocket compass",
		DateAcquired: time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC),
		Source:       "Estate sale",
		Tags:         []string{"brass"},
		Image:        pngImage(),
	}
}

func keyOf(t *testing.T, address string) string {
	t.Helper()
	key, ok := blob.NewImageStore(blob.NewMemoryBucket("test-bucket", publicBase), 0).KeyFromAddress(address)
	require.True(t, ok, "address %q is not a bucket address", address)
	return key
}

func TestCreateAssignsUniqueIDs(t *testing.T) {
	svc, records, bucket := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)
	second, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	assert.NotEqual(t, first.Acquisition.ID, second.Acquisition.ID)
	assert.Len(t, records.items, 2)
	assert.Equal(t, 2, bucket.Len())
	assert.Empty(t, first.Compensations)

	assert.Contains(t, first.Acquisition.ImageURL, publicBase+"/acquisitions/"+first.Acquisition.ID+"/")
	assert.True(t, strings.HasSuffix(first.Acquisition.ImageURL, ".png"))
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *CreateInput)
		want   error
	}{
		{name: "missing image", mutate: func(in *CreateInput) { in.Image = nil }, want: domain.ErrImageMissing},
		{name: "empty image", mutate: func(in *CreateInput) { in.Image.Data = nil }, want: domain.ErrImageMissing},
		{name: "empty name", mutate: func(in *CreateInput) { in.Name = "" }, want: domain.ErrInvalidInput},
		{name: "zero date", mutate: func(in *CreateInput) { in.DateAcquired = time.Time{} }, want: domain.ErrInvalidInput},
		{name: "text file", mutate: func(in *CreateInput) { in.Image.ContentType = "text/plain" }, want: domain.ErrUnsupportedImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, records, bucket := newTestService(t)
			in := validCreate()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Zero(t, records.writes)
			assert.Zero(t, bucket.Len())
		})
	}
}

func TestCreateCompensatesFailedRecordWrite(t *testing.T) {
	svc, records, bucket := newTestService(t)
	records.createErr = errors.New("connection reset")

	out, err := svc.Create(context.Background(), validCreate())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.Equal(t, 500, domain.MapHTTPStatus(err))

	require.Len(t, out.Compensations, 1)
	comp := out.Compensations[0]
	assert.Equal(t, domain.CompensateOrphanedImage, comp.Action)
	assert.True(t, comp.Deleted())
	assert.Zero(t, bucket.Len(), "uploaded image must be removed")
	assert.Nil(t, out.Acquisition)
}

func TestCreateUploadFailureLeavesNoRecord(t *testing.T) {
	records := newFakeRecords()
	svc := NewService(records, blob.NewImageStore(failingPutBucket{blob.NewMemoryBucket("b", publicBase)}, 0), logger.Nop())

	out, err := svc.Create(context.Background(), validCreate())
	assert.ErrorIs(t, err, domain.ErrUpload)
	assert.Empty(t, out.Compensations)
	assert.Zero(t, records.writes)
}

type failingPutBucket struct {
	*blob.MemoryBucket
}

func (b failingPutBucket) Put(context.Context, string, []byte, string) error {
	return errors.New("quota exceeded")
}

func TestUnavailableStores(t *testing.T) {
	ctx := context.Background()

	t.Run("no record store", func(t *testing.T) {
		records := newFakeRecords()
		records.ready = false
		svc := NewService(records, blob.NewImageStore(blob.NewMemoryBucket("b", publicBase), 0), logger.Nop())

		assert.False(t, svc.Ready())
		_, err := svc.Create(ctx, validCreate())
		assert.ErrorIs(t, err, domain.ErrUnavailable)
		_, err = svc.List(ctx)
		assert.ErrorIs(t, err, domain.ErrUnavailable)
	})

	t.Run("no bucket", func(t *testing.T) {
		svc := NewService(newFakeRecords(), blob.NewImageStore(nil, 0), logger.Nop())

		_, err := svc.Get(ctx, "x")
		assert.ErrorIs(t, err, domain.ErrUnavailable)
		_, err = svc.Delete(ctx, "x")
		assert.ErrorIs(t, err, domain.ErrUnavailable)
		assert.Equal(t, 503, domain.MapHTTPStatus(err))
	})
}

func TestGetAndList(t *testing.T) {
	svc, records, _ := newTestService(t)
	ctx := context.Background()

	items, err := svc.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	created, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.Acquisition.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Acquisition, got.Acquisition)

	records.skipped = []string{"broken"}
	items, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = svc.Get(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	records.listErr = errors.New("i/o timeout")
	_, err = svc.List(ctx)
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestUpdateWithNothingLeavesRecordUnchanged(t *testing.T) {
	svc, records, bucket := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)
	writes := records.writes

	_, err = svc.Update(ctx, created.Acquisition.ID, UpdateInput{})
	assert.ErrorIs(t, err, domain.ErrNothingToUpdate)
	assert.Equal(t, 400, domain.MapHTTPStatus(err))
	assert.Equal(t, writes, records.writes)
	assert.Equal(t, 1, bucket.Len())

	got, err := svc.Get(ctx, created.Acquisition.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Acquisition, got.Acquisition)
}

func TestUpdateRejectsEmptyName(t *testing.T) {
	svc, records, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)
	writes := records.writes

	empty := ""
	_, err = svc.Update(ctx, created.Acquisition.ID, UpdateInput{Name: &empty})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, writes, records.writes)
}

func TestUpdateSparseFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	source := "Flea market"
	tags := []string{}
	out, err := svc.Update(ctx, created.Acquisition.ID, UpdateInput{Source: &source, Tags: &tags})
	require.NoError(t, err)

	want := *created.Acquisition
	want.Source = source
	want.Tags = []string{}
	assert.Equal(t, &want, out.Acquisition)
	assert.Empty(t, out.Compensations)
}

func TestUpdateReplacesImage(t *testing.T) {
	svc, _, bucket := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)
	oldURL := created.Acquisition.ImageURL

	img := &Image{Data: []byte("GIF89a"), ContentType: "image/gif", Filename: "new.gif"}
	out, err := svc.Update(ctx, created.Acquisition.ID, UpdateInput{Image: img})
	require.NoError(t, err)

	newURL := out.Acquisition.ImageURL
	assert.NotEqual(t, oldURL, newURL)
	assert.True(t, strings.HasSuffix(newURL, ".gif"))

	ok, err := bucket.Exists(ctx, keyOf(t, newURL))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = bucket.Exists(ctx, keyOf(t, oldURL))
	require.NoError(t, err)
	assert.False(t, ok, "previous image must be removed")

	require.Len(t, out.Compensations, 1)
	assert.Equal(t, domain.CompensateSupersededImage, out.Compensations[0].Action)
	assert.Equal(t, oldURL, out.Compensations[0].Address)
	assert.True(t, out.Compensations[0].Deleted())
}

func TestUpdateFailureRemovesNewImage(t *testing.T) {
	svc, records, bucket := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)
	records.updateErr = errors.New("READONLY replica")

	out, err := svc.Update(ctx, created.Acquisition.ID, UpdateInput{Image: pngImage()})
	assert.ErrorIs(t, err, domain.ErrStore)

	require.Len(t, out.Compensations, 1)
	assert.Equal(t, domain.CompensateOrphanedImage, out.Compensations[0].Action)
	assert.Equal(t, 1, bucket.Len(), "only the original image remains")

	ok, err := bucket.Exists(ctx, keyOf(t, created.Acquisition.ImageURL))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateUnknownID(t *testing.T) {
	svc, _, bucket := newTestService(t)

	name := "ghost"
	_, err := svc.Update(context.Background(), "missing", UpdateInput{Name: &name, Image: pngImage()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, bucket.Len())
}

func TestDeleteUnknownIDMutatesNothing(t *testing.T) {
	svc, records, bucket := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)
	writes := records.writes

	out, err := svc.Delete(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 404, domain.MapHTTPStatus(err))
	assert.Empty(t, out.Compensations)
	assert.Equal(t, writes, records.writes)
	assert.Equal(t, 1, bucket.Len())
}

func TestDeleteRemovesRecordAndImage(t *testing.T) {
	svc, _, bucket := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	out, err := svc.Delete(ctx, created.Acquisition.ID)
	require.NoError(t, err)
	require.Len(t, out.Compensations, 1)
	assert.Equal(t, domain.CompensateRecordImage, out.Compensations[0].Action)
	assert.True(t, out.Compensations[0].Deleted())
	assert.Zero(t, bucket.Len())

	_, err = svc.Get(ctx, created.Acquisition.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteSucceedsWhenImageDeleteFails(t *testing.T) {
	records := newFakeRecords()
	bucket := brokenDeleteBucket{blob.NewMemoryBucket("test-bucket", publicBase)}
	svc := NewService(records, blob.NewImageStore(bucket, 0), logger.Nop())
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	out, err := svc.Delete(ctx, created.Acquisition.ID)
	require.NoError(t, err)
	require.Len(t, out.Compensations, 1)
	assert.Equal(t, domain.DeleteFailed, out.Compensations[0].Outcome)
	assert.False(t, out.Compensations[0].Deleted())

	_, err = svc.Get(ctx, created.Acquisition.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteWithForeignImageAddress(t *testing.T) {
	svc, records, _ := newTestService(t)
	ctx := context.Background()
	records.items["legacy"] = domain.Acquisition{
		ID:       "legacy",
		Name:     "Old record",
		ImageURL: "https://example.com/elsewhere.png",
		Tags:     []string{},
	}

	out, err := svc.Delete(ctx, "legacy")
	require.NoError(t, err)
	require.Len(t, out.Compensations, 1)
	assert.Equal(t, domain.DeleteInvalidAddress, out.Compensations[0].Outcome)
}
