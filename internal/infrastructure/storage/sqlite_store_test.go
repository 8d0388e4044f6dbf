package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"FeedWatcher/internal/domain"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func record(id, source, title, label string, unix int64) domain.ContentRecord {
	return domain.ContentRecord{
		ID:         id,
		SourceName: source,
		By:         "alice",
		Time:       time.Unix(unix, 0).UTC(),
		Title:      title,
		URL:        "https://example.test/" + id,
		Text:       "body of " + id,
		Label:      label,
		AISummary:  "Summary for " + title,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := record("Feed-1", "Feed", "First post", "MongoDB", 1700000000)
	rec.Embedding = []float64{0.1, 0.2, 0.3}
	require.NoError(t, store.Upsert(ctx, rec))

	got, found, err := store.Get(ctx, "Feed-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, rec.Title, got.Title)
	require.Equal(t, rec.AISummary, got.AISummary)
	require.Equal(t, rec.Embedding, got.Embedding)
	require.Equal(t, rec.Time, got.Time)
	require.False(t, got.UpdatedAt.IsZero())

	_, found, err = store.Get(ctx, "Feed-404")
	require.NoError(t, err)
	require.False(t, found)
}

func TestStoreUpsertOverwrites(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, record("Feed-1", "Feed", "Old title", "MongoDB", 1700000000)))

	updated := record("Feed-1", "Feed", "New title", "Vector Search", 1700000500)
	updated.AISummary = "A replacement summary"
	require.NoError(t, store.Upsert(ctx, updated))

	got, found, err := store.Get(ctx, "Feed-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "New title", got.Title)
	require.Equal(t, "Vector Search", got.Label)
	require.Equal(t, "A replacement summary", got.AISummary)
	require.Empty(t, got.Embedding)
}

func TestStoreListFiltersAndPages(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, record("HN-1", "Hacker News", "MongoDB sharding woes", "MongoDB", 100)))
	require.NoError(t, store.Upsert(ctx, record("HN-2", "Hacker News", "Unrelated rant", "MongoDB", 200)))
	require.NoError(t, store.Upsert(ctx, record("GH-1", "GitHub Issues", "Vector index bug", "Vector Search", 300)))

	records, total, err := store.List(ctx, ListOptions{SourceNames: []string{"Hacker News"}})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, records, 2)
	// Default sort is item_time descending.
	require.Equal(t, "HN-2", records[0].ID)

	records, total, err = store.List(ctx, ListOptions{Query: "sharding"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "HN-1", records[0].ID)

	// Query also matches summaries.
	records, total, err = store.List(ctx, ListOptions{Query: "Summary for Vector"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "GH-1", records[0].ID)

	records, total, err = store.List(ctx, ListOptions{PerPage: 2, Page: 2, SortBy: "time", SortDesc: false})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, records, 1)
	require.Equal(t, "GH-1", records[0].ID)

	records, total, err = store.List(ctx, ListOptions{Query: "no such text"})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, records)
}

func TestStoreListUnknownSortColumn(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, record("A-1", "A", "one", "L", 1)))

	// An unrecognized sort key falls back to item_time instead of
	// reaching the SQL layer.
	records, total, err := store.List(ctx, ListOptions{SortBy: "id; DROP TABLE content_records"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, records, 1)
}
