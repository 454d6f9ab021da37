package catalog

import (
	"context"
	"testing"
	"time"

	"bookwyrm/internal/models"
	"bookwyrm/internal/util"

	"github.com/stretchr/testify/require"
)

type fakeLibrary struct {
	docs []models.DocumentRecord
}

func (f fakeLibrary) List() ([]models.DocumentRecord, error) { return f.docs, nil }

func (f fakeLibrary) Get(id string) (models.DocumentRecord, bool) {
	for _, d := range f.docs {
		if d.ID == id {
			return d, true
		}
	}
	return models.DocumentRecord{}, false
}

type fakeChunks struct {
	aggs []models.ChunkAggregate
}

func (f fakeChunks) Aggregates(ctx context.Context) ([]models.ChunkAggregate, error) {
	return f.aggs, nil
}

func (f fakeChunks) Names(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(f.aggs))
	for _, a := range f.aggs {
		names = append(names, a.Name)
	}
	return names, nil
}

func doc(id, filename string) models.DocumentRecord {
	return models.DocumentRecord{
		ID:               id,
		OriginalFilename: filename,
		StoredFilename:   filename,
		AddedAt:          time.Now(),
	}
}

func TestListingExactMatchContributesChunkCount(t *testing.T) {
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := NewReconciler(
		fakeLibrary{docs: []models.DocumentRecord{doc("id-1", "book.pdf")}},
		fakeChunks{aggs: []models.ChunkAggregate{{Name: "book.pdf", ChunkCount: 42, LastUpdated: &updated}}},
	)

	entries, err := r.Listing(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 42, entries[0].ChunkCount)
	require.NotNil(t, entries[0].IngestedAt)
	require.Equal(t, updated, *entries[0].IngestedAt)
}

func TestListingExtensionStrippedMatch(t *testing.T) {
	r := NewReconciler(
		fakeLibrary{docs: []models.DocumentRecord{doc("id-1", "book.pdf")}},
		fakeChunks{aggs: []models.ChunkAggregate{{Name: "book", ChunkCount: 7}}},
	)

	entries, err := r.Listing(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1, "matched aggregate must not also appear as legacy")
	require.Equal(t, 7, entries[0].ChunkCount)
}

func TestListingReverseStrippedMatch(t *testing.T) {
	r := NewReconciler(
		fakeLibrary{docs: []models.DocumentRecord{doc("id-1", "book")}},
		fakeChunks{aggs: []models.ChunkAggregate{{Name: "book.pdf", ChunkCount: 3}}},
	)

	entries, err := r.Listing(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 3, entries[0].ChunkCount)
}

func TestListingNoMatchLeavesZeroChunks(t *testing.T) {
	r := NewReconciler(
		fakeLibrary{docs: []models.DocumentRecord{doc("id-1", "unindexed.pdf")}},
		fakeChunks{},
	)

	entries, err := r.Listing(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 0, entries[0].ChunkCount)
	require.Nil(t, entries[0].IngestedAt)
}

func TestListingIngestedAtFallsBackToFirstCreated(t *testing.T) {
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	r := NewReconciler(
		fakeLibrary{docs: []models.DocumentRecord{doc("id-1", "book.pdf")}},
		fakeChunks{aggs: []models.ChunkAggregate{{Name: "book.pdf", ChunkCount: 1, FirstCreated: &created}}},
	)

	entries, err := r.Listing(context.Background())
	require.NoError(t, err)
	require.NotNil(t, entries[0].IngestedAt)
	require.Equal(t, created, *entries[0].IngestedAt)
}

func TestListingUnmatchedAggregateBecomesLegacyEntry(t *testing.T) {
	r := NewReconciler(
		fakeLibrary{docs: []models.DocumentRecord{doc("id-1", "book.pdf")}},
		fakeChunks{aggs: []models.ChunkAggregate{
			{Name: "book.pdf", ChunkCount: 5},
			{Name: "orphan.pdf", ChunkCount: 9},
		}},
	)

	entries, err := r.Listing(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	legacy := entries[1]
	require.Equal(t, "orphan.pdf", legacy.Filename)
	require.Equal(t, 9, legacy.ChunkCount)
	require.Equal(t, DeriveID("orphan.pdf"), legacy.ID)
	require.Nil(t, legacy.ThumbnailURL)
	require.Nil(t, legacy.AddedAt)
}

func TestDeriveIDIsStable(t *testing.T) {
	a := DeriveID("orphan.pdf")
	b := DeriveID("orphan.pdf")
	require.Equal(t, a, b)
	require.NotEqual(t, a, DeriveID("other.pdf"))
	// UUIDv5 of the name in the URL namespace, reproducible across processes.
	require.Equal(t, "f8b72323-0e40-5a08-bd7f-039dfb85a9b2", DeriveID("example"))
}

func TestResolveLibraryFirst(t *testing.T) {
	r := NewReconciler(
		fakeLibrary{docs: []models.DocumentRecord{doc("id-1", "book.pdf")}},
		fakeChunks{aggs: []models.ChunkAggregate{{Name: "legacy.pdf"}}},
	)

	name, err := r.Resolve(context.Background(), "id-1")
	require.NoError(t, err)
	require.Equal(t, "book.pdf", name)
}

func TestResolveLegacyByDerivedID(t *testing.T) {
	r := NewReconciler(
		fakeLibrary{},
		fakeChunks{aggs: []models.ChunkAggregate{{Name: "legacy.pdf"}}},
	)

	name, err := r.Resolve(context.Background(), DeriveID("legacy.pdf"))
	require.NoError(t, err)
	require.Equal(t, "legacy.pdf", name)
}

func TestResolveUnknownIDFails(t *testing.T) {
	r := NewReconciler(fakeLibrary{}, fakeChunks{})

	_, err := r.Resolve(context.Background(), "nope")
	require.ErrorIs(t, err, util.ErrNotFound)
}

func TestListingUsesTitleAsDisplayNameWithFallback(t *testing.T) {
	title := "The Novel"
	withTitle := doc("id-1", "novel.epub")
	withTitle.Title = &title
	r := NewReconciler(
		fakeLibrary{docs: []models.DocumentRecord{withTitle, doc("id-2", "plain.pdf")}},
		fakeChunks{},
	)

	entries, err := r.Listing(context.Background())
	require.NoError(t, err)
	require.Equal(t, "The Novel", entries[0].Filename)
	require.Equal(t, "plain.pdf", entries[1].Filename)
}
