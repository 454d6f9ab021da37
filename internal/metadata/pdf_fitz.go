package metadata

import (
	"fmt"

	"bookwyrm/internal/models"

	"github.com/gen2brain/go-fitz"
)

// fitzBackend reads PDF metadata through MuPDF.
type fitzBackend struct{}

func (fitzBackend) Name() string { return "mupdf" }

func (fitzBackend) Extract(path string) (m models.Metadata, err error) {
	defer recoverExtract(&err)

	doc, err := fitz.New(path)
	if err != nil {
		return models.Metadata{}, fmt.Errorf("mupdf open: %w", err)
	}
	defer doc.Close()

	info := doc.Metadata()
	m = models.Metadata{
		Title:            optional(info["title"]),
		Author:           optional(info["author"]),
		Subject:          optional(info["subject"]),
		Creator:          optional(info["creator"]),
		Producer:         optional(info["producer"]),
		CreationDate:     optional(info["creationDate"]),
		ModificationDate: optional(info["modDate"]),
		PageCount:        optionalInt(doc.NumPage()),
	}
	return m, nil
}
