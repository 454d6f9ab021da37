// Package index feeds stored documents into the chunk store: extract text,
// chunk, embed, upsert. Ingest-time indexing runs synchronously inside the
// request and never drops data; only the bulk reload may recreate the chunk
// table, and only once.
package index

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"bookwyrm/internal/logger"
	"bookwyrm/internal/models"
	"bookwyrm/internal/providers"
	"bookwyrm/internal/util"

	"github.com/dslipak/pdf"
)

type ChunkWriter interface {
	EnsureSchema(ctx context.Context) error
	Recreate(ctx context.Context) error
	InsertChunks(ctx context.Context, name string, chunks []string, vectors [][]float32) error
	DeleteByName(ctx context.Context, name string) error
}

type LibrarySource interface {
	List() ([]models.DocumentRecord, error)
	FilePath(id string) (string, bool)
}

type Indexer struct {
	chunks    ChunkWriter
	embedder  providers.EmbeddingProvider
	chunkSize int
	overlap   int
	dim       int
	log       *logger.Logger
	// extraction is injectable so tests can index without real PDFs
	extract func(path string) (string, error)
}

func NewIndexer(chunks ChunkWriter, embedder providers.EmbeddingProvider, chunkSize, overlap, dim int, log *logger.Logger) *Indexer {
	return &Indexer{
		chunks:    chunks,
		embedder:  embedder,
		chunkSize: chunkSize,
		overlap:   overlap,
		dim:       dim,
		log:       log,
		extract:   extractPDFText,
	}
}

// IndexDocument loads one stored document into the chunk store under name.
// Only PDFs carry extractable text; other formats are stored in the library
// without indexing. The attempt is single-shot: a transient failure must not
// touch the other documents' chunks, so no recreate happens here.
func (ix *Indexer) IndexDocument(ctx context.Context, path, name string) error {
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		ix.log.Info("skipping index for non-pdf document", "name", name)
		return nil
	}
	if err := ix.load(ctx, path, name); err != nil {
		return fmt.Errorf("index %s: %w", name, err)
	}
	return nil
}

// ReindexAll re-processes every library document. Run at startup when
// FORCE_RELOAD is set. If any document fails, the whole load is retried
// exactly once after recreating the chunk table; this is the only place a
// recreate happens, since the bulk reload rebuilds everything anyway.
func (ix *Indexer) ReindexAll(ctx context.Context, lib LibrarySource) error {
	docs, err := lib.List()
	if err != nil {
		return err
	}
	failed := ix.reindexPass(ctx, lib, docs)
	if failed == 0 {
		return nil
	}

	ix.log.Warn("reindex incomplete, recreating chunk table and retrying", "failed", failed)
	if err := ix.chunks.Recreate(ctx); err != nil {
		return fmt.Errorf("recreate chunk table: %w", err)
	}
	if failed = ix.reindexPass(ctx, lib, docs); failed > 0 {
		return fmt.Errorf("reindex: %d of %d documents failed", failed, len(docs))
	}
	return nil
}

func (ix *Indexer) reindexPass(ctx context.Context, lib LibrarySource, docs []models.DocumentRecord) int {
	failed := 0
	for _, doc := range docs {
		path, ok := lib.FilePath(doc.ID)
		if !ok {
			ix.log.Warn("library record has no stored file, skipping reindex", "id", doc.ID)
			continue
		}
		if err := ix.IndexDocument(ctx, path, doc.OriginalFilename); err != nil {
			ix.log.Error("reindex failed", "id", doc.ID, "name", doc.OriginalFilename, "error", err)
			failed++
		}
	}
	return failed
}

func (ix *Indexer) load(ctx context.Context, path, name string) error {
	if err := ix.chunks.EnsureSchema(ctx); err != nil {
		return err
	}

	text, err := ix.extract(path)
	if err != nil {
		return err
	}
	parts := util.ChunkText(text, ix.chunkSize, ix.overlap)
	if len(parts) == 0 {
		return util.ErrNoExtractableText
	}

	vectors, info, err := ix.embedder.Embed(ctx, providers.EmbedRequest{
		Operation: "ingest_embed",
		Inputs:    parts,
		Dimension: ix.dim,
	})
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(parts), err)
	}

	// Re-ingesting replaces the document's previous chunks.
	if err := ix.chunks.DeleteByName(ctx, name); err != nil {
		return err
	}
	if err := ix.chunks.InsertChunks(ctx, name, parts, vectors); err != nil {
		return err
	}
	ix.log.Info("indexed document", "name", name, "chunks", len(parts), "embed_model", info.Model)
	return nil
}

func extractPDFText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf text extraction panic: %v", r)
		}
	}()

	r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var buf bytes.Buffer
	b, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	if _, err := buf.ReadFrom(b); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	if strings.TrimSpace(buf.String()) == "" {
		return "", util.ErrNoExtractableText
	}
	return buf.String(), nil
}
