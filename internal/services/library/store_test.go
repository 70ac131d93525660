package library

import (
	"context"
	"testing"
	"time"

	"github.com/Egham-7/bedtime-stories/internal/models"
	"github.com/Egham-7/bedtime-stories/internal/services/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.New(models.DatabaseConfig{Type: models.SQLite, FilePath: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db.DB)
}

func TestUpsert_MergesNonZeroFields(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.Upsert(ctx, "u1", "daniel", ItemUpdate{Title: "Daniel", Age: "5–8", Minutes: 15, Lang: "ES"})
	require.NoError(t, err)
	assert.Equal(t, models.AgeEarly, created.Age)
	assert.Equal(t, models.LanguageSpanish, created.Lang)

	updated, err := store.Upsert(ctx, "u1", "daniel", ItemUpdate{Image: "/img/daniel.png"})
	require.NoError(t, err)
	assert.Equal(t, "Daniel", updated.Title)
	assert.Equal(t, 15, updated.Minutes)
	assert.Equal(t, "/img/daniel.png", updated.Image)

	_, err = store.Upsert(ctx, "u1", " ", ItemUpdate{})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorTypeValidation, appErr.Type)
}

func TestList_OrdersByLastPlayed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	clock := time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	for _, slug := range []string{"noah", "jonah", "ruth"} {
		_, err := store.Upsert(ctx, "u1", slug, ItemUpdate{Title: slug})
		require.NoError(t, err)
	}
	_, err := store.Upsert(ctx, "u2", "other", ItemUpdate{Title: "other"})
	require.NoError(t, err)

	_, err = store.UpdateProgress(ctx, "u1", "noah", 30)
	require.NoError(t, err)
	clock = clock.Add(time.Minute)
	item, err := store.UpdateProgress(ctx, "u1", "jonah", 90)
	require.NoError(t, err)
	assert.Equal(t, 90, item.ProgressSec)
	require.NotNil(t, item.LastPlayedAt)

	items, err := store.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"jonah", "noah", "ruth"}, []string{items[0].Slug, items[1].Slug, items[2].Slug})
}

func TestPatch_MissingItemIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.SetFavorite(ctx, "u1", "missing", true)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.GetStatusCode())

	_, err = store.UpdateProgress(ctx, "u1", "missing", 5)
	require.ErrorAs(t, err, &appErr)
}

func TestFavoriteAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Upsert(ctx, "u1", "psalm-23", ItemUpdate{Title: "Psalm 23", Favorite: true})
	require.NoError(t, err)

	item, err := store.SetFavorite(ctx, "u1", "psalm-23", false)
	require.NoError(t, err)
	assert.False(t, item.Favorite)

	require.NoError(t, store.Delete(ctx, "u1", "psalm-23"))
	require.NoError(t, store.Delete(ctx, "u1", "psalm-23"))
	items, err := store.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, owned := range [][2]string{{"u1", "a"}, {"u1", "b"}, {"u2", "a"}} {
		_, err := store.Upsert(ctx, owned[0], owned[1], ItemUpdate{Title: "x"})
		require.NoError(t, err)
	}
	require.NoError(t, store.DeleteUser(ctx, "u1"))

	items, err := store.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
	items, err = store.List(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
