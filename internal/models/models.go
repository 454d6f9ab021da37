package models

import "time"

// Metadata is the normalized bag of bibliographic fields extracted from a
// document. Every field is optional; nil means the value was not extractable.
type Metadata struct {
	Title            *string `json:"title"`
	Author           *string `json:"author"`
	Subject          *string `json:"subject"`
	Creator          *string `json:"creator"`
	Producer         *string `json:"producer"`
	CreationDate     *string `json:"creation_date"`
	ModificationDate *string `json:"modification_date"`
	PageCount        *int    `json:"page_count"`
	Language         *string `json:"language"`
	Publisher        *string `json:"publisher"`
	ISBN             *string `json:"isbn"`
	Description      *string `json:"description"`
}

// DocumentRecord is the durable unit of library metadata for one uploaded
// file. It is serialized as a flat JSON object under metadata/<id>.json.
type DocumentRecord struct {
	ID               string `json:"id"`
	OriginalFilename string `json:"original_filename"`
	StoredFilename   string `json:"stored_filename"`
	FileExtension    string `json:"file_extension"`
	Metadata
	AddedAt       time.Time `json:"added_at"`
	FileSize      int64     `json:"file_size"`
	ThumbnailPath string    `json:"thumbnail_path,omitempty"`
}

// DisplayName is the title when one was extracted, otherwise the original
// filename.
func (d DocumentRecord) DisplayName() string {
	if d.Title != nil && *d.Title != "" {
		return *d.Title
	}
	return d.OriginalFilename
}

// ChunkAggregate is the chunk store's per-filename summary. The chunk store
// identifies documents only by name; there is no foreign key back to the
// library.
type ChunkAggregate struct {
	Name         string     `json:"name"`
	ChunkCount   int        `json:"chunk_count"`
	FirstCreated *time.Time `json:"first_created,omitempty"`
	LastUpdated  *time.Time `json:"last_updated,omitempty"`
}

// IngestedAt reports the aggregate's latest update, falling back to the
// earliest creation time.
func (a ChunkAggregate) IngestedAt() *time.Time {
	if a.LastUpdated != nil {
		return a.LastUpdated
	}
	return a.FirstCreated
}

// ListingEntry merges one library record with at most one matched chunk
// aggregate. Entries derived from unmatched aggregates (legacy documents that
// predate the library) carry only the filename-derived fields.
type ListingEntry struct {
	ID               string     `json:"id"`
	Filename         string     `json:"filename"`
	OriginalFilename string     `json:"original_filename"`
	Author           *string    `json:"author,omitempty"`
	PageCount        *int       `json:"page_count,omitempty"`
	FileSize         *int64     `json:"file_size,omitempty"`
	FileExtension    string     `json:"file_extension,omitempty"`
	AddedAt          *time.Time `json:"added_at,omitempty"`
	ChunkCount       int        `json:"chunk_count"`
	IngestedAt       *time.Time `json:"ingested_at,omitempty"`
	ThumbnailURL     *string    `json:"thumbnail_url"`
}

// ChunkResult is one retrieved chunk from the vector search.
type ChunkResult struct {
	Name    string  `json:"name"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}
