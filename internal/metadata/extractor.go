// Package metadata extracts bibliographic metadata from stored documents.
// Extraction never fails an ingest: backends are tried in order and total
// failure degrades to an all-null bag.
package metadata

import (
	"fmt"
	"strings"

	"bookwyrm/internal/ebook"
	"bookwyrm/internal/logger"
	"bookwyrm/internal/models"
)

// PDFBackend is one metadata extraction strategy for PDF files.
type PDFBackend interface {
	Name() string
	Extract(path string) (models.Metadata, error)
}

type Extractor struct {
	pdfBackends []PDFBackend
	log         *logger.Logger
}

// NewExtractor builds an extractor with the default backend chain (MuPDF,
// then the PDF Info dictionary reader). Tests pass their own backends.
func NewExtractor(log *logger.Logger, backends ...PDFBackend) *Extractor {
	if len(backends) == 0 {
		backends = []PDFBackend{fitzBackend{}, infoDictBackend{}}
	}
	return &Extractor{pdfBackends: backends, log: log}
}

func (e *Extractor) Extract(path, ext string) models.Metadata {
	switch ext {
	case "pdf":
		return e.extractPDF(path)
	case "epub":
		return e.extractEPUB(path)
	}
	// mobi/azw/azw3 are stored but have no extractor; the record keeps an
	// all-null bag.
	return models.Metadata{}
}

func (e *Extractor) extractPDF(path string) models.Metadata {
	for i, backend := range e.pdfBackends {
		m, err := backend.Extract(path)
		if err == nil {
			return m
		}
		if i < len(e.pdfBackends)-1 {
			e.log.Warn("pdf metadata backend failed, trying next",
				"backend", backend.Name(), "path", path, "error", err)
		} else {
			e.log.Warn("all pdf metadata backends failed",
				"backend", backend.Name(), "path", path, "error", err)
		}
	}
	return models.Metadata{}
}

func (e *Extractor) extractEPUB(path string) models.Metadata {
	b, err := ebook.Open(path)
	if err != nil {
		e.log.Warn("epub metadata extraction failed", "path", path, "error", err)
		return models.Metadata{}
	}
	defer b.Close()

	dc := b.Metadata()
	return models.Metadata{
		Title:       optional(dc.Title),
		Author:      optional(dc.Creator),
		Publisher:   optional(dc.Publisher),
		Language:    optional(dc.Language),
		Description: optional(dc.Description),
		ISBN:        optional(dc.Identifier),
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalInt(n int) *int {
	return &n
}

// recoverExtract converts a backend panic into an error. The low-level PDF
// readers panic on malformed files instead of returning errors.
func recoverExtract(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("pdf backend panic: %v", r)
	}
}
