package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/curator/internal/domain"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), srv
}

func sample(id string) *domain.Acquisition {
	return &domain.Acquisition{
		ID:           id,
		Name:         "Brass compass",
		Description:  "Pocket compass, 1920s",
		ImageURL:     "https://storage.googleapis.com/bucket/acquisitions/" + id + "/img.png",
		DateAcquired: time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC),
		Source:       "Estate sale",
		Tags:         []string{"navigation", "brass"},
	}
}

func TestStoreCreateGet(t *testing.T) {
	store, srv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sample("a1")))

	got, err := store.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, sample("a1"), got)

	assert.Equal(t, "2024-03-09T14:30:00Z", srv.HGet(AcquisitionKey("a1"), "dateAcquired"))
	assert.Equal(t, `["navigation","brass"]`, srv.HGet(AcquisitionKey("a1"), "tags"))
	ok, err := srv.SIsMember(AllAcquisitionsKey(), "a1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreGetNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreEmptyTagsRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	a := sample("a1")
	a.Tags = nil
	require.NoError(t, store.Create(ctx, a))

	got, err := store.Get(ctx, "a1")
	require.NoError(t, err)
	assert.NotNil(t, got.Tags)
	assert.Empty(t, got.Tags)
}

func TestStoreListSkipsMalformed(t *testing.T) {
	store, srv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sample("b")))
	require.NoError(t, store.Create(ctx, sample("a")))

	// missing name
	srv.HSet(AcquisitionKey("c"), "id", "c", "dateAcquired", "2024-01-01T00:00:00Z")
	_, _ = srv.SAdd(AllAcquisitionsKey(), "c")
	// wrong key type
	require.NoError(t, srv.Set(AcquisitionKey("d"), "not a hash"))
	_, _ = srv.SAdd(AllAcquisitionsKey(), "d")
	// dangling index entry
	_, _ = srv.SAdd(AllAcquisitionsKey(), "e")
	// bad tags
	srv.HSet(AcquisitionKey("f"), "id", "f", "name", "x", "dateAcquired", "2024-01-01T00:00:00Z", "tags", "{")
	_, _ = srv.SAdd(AllAcquisitionsKey(), "f")

	items, skipped, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "b", items[1].ID)
	assert.Equal(t, []string{"c", "d", "e", "f"}, skipped)
}

func TestStoreListEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	items, skipped, err := store.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Empty(t, skipped)
}

func TestStoreUpdatePatchesOnlySuppliedFields(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, sample("a1")))

	name := "Silver compass"
	tags := []string{}
	require.NoError(t, store.Update(ctx, "a1", domain.Patch{Name: &name, Tags: &tags}))

	got, err := store.Get(ctx, "a1")
	require.NoError(t, err)

	want := sample("a1")
	want.Name = name
	want.Tags = []string{}
	assert.Equal(t, want, got)
}

func TestStoreUpdateMissingDoesNotResurrect(t *testing.T) {
	store, srv := newTestStore(t)
	ctx := context.Background()

	name := "ghost"
	err := store.Update(ctx, "gone", domain.Patch{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, srv.Exists(AcquisitionKey("gone")))

	err = store.Update(ctx, "gone", domain.Patch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreDelete(t *testing.T) {
	store, srv := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, sample("a1")))

	require.NoError(t, store.Delete(ctx, "a1"))
	assert.False(t, srv.Exists(AcquisitionKey("a1")))
	ok, _ := srv.SIsMember(AllAcquisitionsKey(), "a1")
	assert.False(t, ok)

	_, err := store.Get(ctx, "a1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "a1"), domain.ErrNotFound)
}

func TestStoreUnavailableWithoutClient(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	assert.False(t, store.Ready())
	assert.ErrorIs(t, store.Ping(ctx), domain.ErrUnavailable)
	assert.ErrorIs(t, store.Create(ctx, sample("a")), domain.ErrUnavailable)
	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, _, err = store.List(ctx)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.ErrorIs(t, store.Update(ctx, "a", domain.Patch{}), domain.ErrUnavailable)
	assert.ErrorIs(t, store.Delete(ctx, "a"), domain.ErrUnavailable)
}

func TestStoreTransportErrorsAreStoreErrors(t *testing.T) {
	store, srv := newTestStore(t)
	srv.Close()

	_, err := store.Get(context.Background(), "a")
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrUnavailable)
}
