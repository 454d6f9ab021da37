package metadata

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"bookwyrm/internal/logger"
	"bookwyrm/internal/models"

	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name string
	meta models.Metadata
	err  error
}

func (f fakeBackend) Name() string { return f.name }

func (f fakeBackend) Extract(path string) (models.Metadata, error) {
	return f.meta, f.err
}

func strptr(s string) *string { return &s }

func TestExtractPDFFallsBackToSecondBackend(t *testing.T) {
	want := models.Metadata{Title: strptr("Recovered")}
	e := NewExtractor(logger.NewNop(),
		fakeBackend{name: "primary", err: errors.New("boom")},
		fakeBackend{name: "secondary", meta: want},
	)

	got := e.Extract("whatever.pdf", "pdf")
	require.Equal(t, want, got)
}

func TestExtractPDFTotalFailureReturnsNullBag(t *testing.T) {
	e := NewExtractor(logger.NewNop(),
		fakeBackend{name: "primary", err: errors.New("boom")},
		fakeBackend{name: "secondary", err: errors.New("also boom")},
	)

	got := e.Extract("whatever.pdf", "pdf")
	require.Equal(t, models.Metadata{}, got)
}

func TestExtractUsesFirstBackendWhenHealthy(t *testing.T) {
	want := models.Metadata{Title: strptr("First")}
	e := NewExtractor(logger.NewNop(),
		fakeBackend{name: "primary", meta: want},
		fakeBackend{name: "secondary", meta: models.Metadata{Title: strptr("Second")}},
	)

	got := e.Extract("whatever.pdf", "pdf")
	require.Equal(t, want, got)
}

func TestExtractEbookFormatsWithoutExtractorReturnNullBag(t *testing.T) {
	e := NewExtractor(logger.NewNop())
	for _, ext := range []string{"mobi", "azw", "azw3"} {
		require.Equal(t, models.Metadata{}, e.Extract("book."+ext, ext))
	}
}

func TestExtractEPUBDublinCore(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>The Novel</dc:title>
    <dc:creator>Jane Writer</dc:creator>
    <dc:language>en</dc:language>
  </metadata>
  <manifest/>
</package>`
	path := writeTestEpub(t, opf)

	e := NewExtractor(logger.NewNop())
	got := e.Extract(path, "epub")
	require.NotNil(t, got.Title)
	require.Equal(t, "The Novel", *got.Title)
	require.NotNil(t, got.Author)
	require.Equal(t, "Jane Writer", *got.Author)
	require.NotNil(t, got.Language)
	require.Equal(t, "en", *got.Language)
	require.Nil(t, got.Publisher)
	require.Nil(t, got.ISBN)
}

func TestExtractCorruptEPUBDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.epub")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	e := NewExtractor(logger.NewNop())
	require.Equal(t, models.Metadata{}, e.Extract(path, "epub"))
}

func writeTestEpub(t *testing.T, opf string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range map[string]string{
		"mimetype": "application/epub+zip",
		"META-INF/container.xml": `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`,
		"content.opf": opf,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(data))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	p := filepath.Join(t.TempDir(), "book.epub")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))
	return p
}
