package thumbnail

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// fitzRasterizer renders PDF pages through MuPDF.
type fitzRasterizer struct{}

func (fitzRasterizer) Name() string { return "mupdf" }

func (fitzRasterizer) RenderFirstPage(path string) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mupdf render panic: %v", r)
		}
	}()

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("mupdf open: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, errNoPages
	}
	img, err = doc.ImageDPI(0, renderDPI)
	if err != nil {
		return nil, fmt.Errorf("mupdf render page 1: %w", err)
	}
	return img, nil
}
