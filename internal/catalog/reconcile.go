// Package catalog merges the document library with the chunk store's
// per-filename aggregates. The two sides share no key: the chunk store knows
// documents only by name, so reconciliation matches filenames and derives
// stable identifiers for chunk-only legacy documents.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"bookwyrm/internal/models"
	"bookwyrm/internal/util"

	"github.com/google/uuid"
)

type LibrarySource interface {
	List() ([]models.DocumentRecord, error)
	Get(id string) (models.DocumentRecord, bool)
}

type ChunkSource interface {
	Aggregates(ctx context.Context) ([]models.ChunkAggregate, error)
	Names(ctx context.Context) ([]string, error)
}

type Reconciler struct {
	library LibrarySource
	chunks  ChunkSource
}

func NewReconciler(library LibrarySource, chunks ChunkSource) *Reconciler {
	return &Reconciler{library: library, chunks: chunks}
}

// DeriveID maps a chunk name to a stable identifier: the UUIDv5 of the name
// in the URL namespace. Legacy chunk-only documents get the same id on every
// request without any persisted state.
func DeriveID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// Listing merges library records with chunk aggregates. Library entries keep
// their order (newest first); aggregates no library record claims are
// appended as legacy entries.
func (r *Reconciler) Listing(ctx context.Context) ([]models.ListingEntry, error) {
	docs, err := r.library.List()
	if err != nil {
		return nil, err
	}
	aggs, err := r.chunks.Aggregates(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]models.ListingEntry, 0, len(docs)+len(aggs))
	for _, doc := range docs {
		entry := entryFromRecord(doc)
		for _, agg := range aggs {
			if matches(agg.Name, doc.OriginalFilename) {
				entry.ChunkCount = agg.ChunkCount
				entry.IngestedAt = agg.IngestedAt()
				break
			}
		}
		entries = append(entries, entry)
	}

	for _, agg := range aggs {
		if claimedByAny(agg.Name, docs) {
			continue
		}
		entries = append(entries, models.ListingEntry{
			ID:               DeriveID(agg.Name),
			Filename:         agg.Name,
			OriginalFilename: agg.Name,
			ChunkCount:       agg.ChunkCount,
			IngestedAt:       agg.IngestedAt(),
		})
	}
	return entries, nil
}

// Resolve maps an identifier back to a document filename: library records by
// id, then legacy chunk names by recomputed derived id.
func (r *Reconciler) Resolve(ctx context.Context, id string) (string, error) {
	if rec, ok := r.library.Get(id); ok {
		return rec.OriginalFilename, nil
	}
	names, err := r.chunks.Names(ctx)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if DeriveID(name) == id {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", util.ErrNotFound, id)
}

// matches applies the fuzzy filename rules in precedence order: exact,
// aggregate name equals the library name without its extension, library name
// equals the aggregate name without its extension.
func matches(aggName, libName string) bool {
	return aggName == libName ||
		aggName == stripExtension(libName) ||
		libName == stripExtension(aggName)
}

func claimedByAny(aggName string, docs []models.DocumentRecord) bool {
	for _, doc := range docs {
		if matches(aggName, doc.OriginalFilename) {
			return true
		}
	}
	return false
}

func stripExtension(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}

func entryFromRecord(doc models.DocumentRecord) models.ListingEntry {
	entry := models.ListingEntry{
		ID:               doc.ID,
		Filename:         doc.DisplayName(),
		OriginalFilename: doc.OriginalFilename,
		Author:           doc.Author,
		PageCount:        doc.PageCount,
		FileSize:         &doc.FileSize,
		FileExtension:    doc.FileExtension,
		AddedAt:          &doc.AddedAt,
	}
	if doc.ThumbnailPath != "" {
		url := "/thumbnails/" + doc.ID + ".jpg"
		entry.ThumbnailURL = &url
	}
	return entry
}
