package ebook

import (
	"archive/zip"
	"bytes"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func writeEpub(t *testing.T, opf string, extras map[string][]byte) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string][]byte{
		"mimetype":               []byte("application/epub+zip"),
		"META-INF/container.xml": []byte(containerXML),
		"OEBPS/content.opf":      []byte(opf),
	}
	for name, data := range extras {
		files[name] = data
	}
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	p := filepath.Join(t.TempDir(), "book.epub")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))
	return p
}

func TestMetadataReadsDublinCore(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>The Novel</dc:title>
    <dc:creator>Jane Writer</dc:creator>
    <dc:publisher>Small Press</dc:publisher>
    <dc:language>en</dc:language>
    <dc:description>A story.</dc:description>
    <dc:identifier>978-0-00-000000-0</dc:identifier>
  </metadata>
  <manifest/>
</package>`
	b, err := Open(writeEpub(t, opf, nil))
	require.NoError(t, err)
	defer b.Close()

	m := b.Metadata()
	require.Equal(t, "The Novel", m.Title)
	require.Equal(t, "Jane Writer", m.Creator)
	require.Equal(t, "Small Press", m.Publisher)
	require.Equal(t, "en", m.Language)
	require.Equal(t, "A story.", m.Description)
	require.Equal(t, "978-0-00-000000-0", m.Identifier)
}

func TestMetadataMissingElementsAreEmpty(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Untracked</dc:title>
  </metadata>
  <manifest/>
</package>`
	b, err := Open(writeEpub(t, opf, nil))
	require.NoError(t, err)
	defer b.Close()

	m := b.Metadata()
	require.Equal(t, "Untracked", m.Title)
	require.Empty(t, m.Creator)
	require.Empty(t, m.Identifier)
}

func TestCoverByProperty(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>x</dc:title></metadata>
  <manifest>
    <item id="art" href="images/front.jpg" media-type="image/jpeg" properties="cover-image"/>
  </manifest>
</package>`
	img := jpegBytes(t, 4, 4)
	b, err := Open(writeEpub(t, opf, map[string][]byte{"OEBPS/images/front.jpg": img}))
	require.NoError(t, err)
	defer b.Close()

	data, ok := b.Cover()
	require.True(t, ok)
	require.Equal(t, img, data)
}

func TestCoverByName(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>x</dc:title></metadata>
  <manifest>
    <item id="page1" href="page1.xhtml" media-type="application/xhtml+xml"/>
    <item id="img1" href="Cover.jpg" media-type="image/jpeg"/>
  </manifest>
</package>`
	img := jpegBytes(t, 4, 4)
	b, err := Open(writeEpub(t, opf, map[string][]byte{"OEBPS/Cover.jpg": img}))
	require.NoError(t, err)
	defer b.Close()

	data, ok := b.Cover()
	require.True(t, ok)
	require.Equal(t, img, data)
}

func TestCoverAbsent(t *testing.T) {
	opf := `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>x</dc:title></metadata>
  <manifest>
    <item id="page1" href="page1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
</package>`
	b, err := Open(writeEpub(t, opf, nil))
	require.NoError(t, err)
	defer b.Close()

	_, ok := b.Cover()
	require.False(t, ok)
}
