// Package thumbnail renders fixed-size preview images from PDF first pages
// and EPUB covers. Generation is best-effort: every failure degrades to "no
// thumbnail" and is only logged.
package thumbnail

import (
	"bytes"
	"errors"
	"image"
	"path/filepath"

	_ "image/gif"
	_ "image/png"

	"bookwyrm/internal/ebook"
	"bookwyrm/internal/logger"
)

const (
	maxWidth    = 300
	maxHeight   = 400
	jpegQuality = 85
	renderDPI   = 200
)

// errNoPages marks a structurally valid PDF with zero pages. It is terminal:
// a fallback rasterizer would only reach the same conclusion.
var errNoPages = errors.New("pdf has no pages")

// Rasterizer renders the first page of a PDF.
type Rasterizer interface {
	Name() string
	RenderFirstPage(path string) (image.Image, error)
}

type Generator struct {
	outDir      string
	rasterizers []Rasterizer
	log         *logger.Logger
}

// NewGenerator writes thumbnails into outDir as <id>.jpg. With no explicit
// rasterizers it uses MuPDF with a poppler fallback.
func NewGenerator(outDir string, log *logger.Logger, rasterizers ...Rasterizer) *Generator {
	if len(rasterizers) == 0 {
		rasterizers = []Rasterizer{fitzRasterizer{}, popplerRasterizer{}}
	}
	return &Generator{outDir: outDir, rasterizers: rasterizers, log: log}
}

// Generate renders the thumbnail for one stored document and reports whether
// a file was written.
func (g *Generator) Generate(path, id, ext string) bool {
	var img image.Image
	switch ext {
	case "pdf":
		img = g.renderPDF(path)
	case "epub":
		img = g.epubCover(path)
	default:
		return false
	}
	if img == nil {
		return false
	}

	out := filepath.Join(g.outDir, id+".jpg")
	if err := saveJPEG(out, fitWithin(img, maxWidth, maxHeight), jpegQuality); err != nil {
		g.log.Warn("write thumbnail failed", "id", id, "error", err)
		return false
	}
	return true
}

func (g *Generator) renderPDF(path string) image.Image {
	for _, r := range g.rasterizers {
		img, err := r.RenderFirstPage(path)
		if err == nil {
			return img
		}
		if errors.Is(err, errNoPages) {
			g.log.Warn("pdf has no pages, skipping thumbnail", "path", path)
			return nil
		}
		g.log.Warn("pdf rasterizer failed", "rasterizer", r.Name(), "path", path, "error", err)
	}
	return nil
}

func (g *Generator) epubCover(path string) image.Image {
	b, err := ebook.Open(path)
	if err != nil {
		g.log.Warn("open epub for thumbnail failed", "path", path, "error", err)
		return nil
	}
	defer b.Close()

	data, ok := b.Cover()
	if !ok {
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		g.log.Warn("decode epub cover failed", "path", path, "error", err)
		return nil
	}
	return img
}
