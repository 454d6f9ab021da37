package thumbnail

import (
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// popplerRasterizer shells out to poppler's pdftoppm, the classic fallback
// for PDFs MuPDF refuses to open.
type popplerRasterizer struct{}

func (popplerRasterizer) Name() string { return "pdftoppm" }

func (popplerRasterizer) RenderFirstPage(path string) (image.Image, error) {
	tmp, err := os.MkdirTemp("", "bookwyrm-thumb-")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	prefix := filepath.Join(tmp, "page")
	cmd := exec.Command("pdftoppm",
		"-jpeg",
		"-r", strconv.Itoa(renderDPI),
		"-f", "1", "-l", "1",
		"-singlefile",
		path, prefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, out)
	}

	f, err := os.Open(prefix + ".jpg")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no page: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode pdftoppm output: %w", err)
	}
	return img, nil
}
