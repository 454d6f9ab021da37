// Package ebook reads EPUB containers directly: an EPUB is a zip archive with
// an XML package document, so the format needs no dedicated library.
package ebook

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

// Metadata holds the Dublin Core elements of the package document. Empty
// string means the element is absent.
type Metadata struct {
	Title       string
	Creator     string
	Publisher   string
	Language    string
	Description string
	Identifier  string
}

type Book struct {
	zr    *zip.ReadCloser
	files map[string]*zip.File
	pkg   packageDoc
	// directory of the OPF file; manifest hrefs are relative to it
	opfDir string
}

type containerDoc struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageDoc struct {
	Metadata struct {
		Titles       []string  `xml:"title"`
		Creators     []string  `xml:"creator"`
		Publishers   []string  `xml:"publisher"`
		Languages    []string  `xml:"language"`
		Descriptions []string  `xml:"description"`
		Identifiers  []string  `xml:"identifier"`
		Metas        []metaTag `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Items []manifestItem `xml:"item"`
	} `xml:"manifest"`
}

type metaTag struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type manifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// Open reads the EPUB container at p and parses its package document.
func Open(p string) (*Book, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open epub container: %w", err)
	}
	b := &Book{zr: zr, files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		b.files[f.Name] = f
	}

	var container containerDoc
	if err := b.parseXML("META-INF/container.xml", &container); err != nil {
		zr.Close()
		return nil, err
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		zr.Close()
		return nil, fmt.Errorf("epub container declares no rootfile")
	}
	opfPath := container.Rootfiles[0].FullPath
	if err := b.parseXML(opfPath, &b.pkg); err != nil {
		zr.Close()
		return nil, err
	}
	b.opfDir = path.Dir(opfPath)
	return b, nil
}

func (b *Book) Close() error {
	return b.zr.Close()
}

func (b *Book) Metadata() Metadata {
	m := b.pkg.Metadata
	return Metadata{
		Title:       first(m.Titles),
		Creator:     first(m.Creators),
		Publisher:   first(m.Publishers),
		Language:    first(m.Languages),
		Description: first(m.Descriptions),
		Identifier:  first(m.Identifiers),
	}
}

// Cover returns the raw bytes of the cover image: the manifest item flagged as
// the cover, or the first image item whose id or href contains "cover".
func (b *Book) Cover() ([]byte, bool) {
	coverID := ""
	for _, meta := range b.pkg.Metadata.Metas {
		if strings.EqualFold(meta.Name, "cover") {
			coverID = meta.Content
			break
		}
	}
	for _, item := range b.pkg.Manifest.Items {
		if !b.isCoverItem(item, coverID) {
			continue
		}
		data, err := b.readFile(b.resolve(item.Href))
		if err != nil {
			continue
		}
		return data, true
	}
	return nil, false
}

func (b *Book) isCoverItem(item manifestItem, coverID string) bool {
	if strings.Contains(item.Properties, "cover-image") {
		return true
	}
	if coverID != "" && item.ID == coverID {
		return true
	}
	if !strings.HasPrefix(item.MediaType, "image/") {
		return false
	}
	name := strings.ToLower(item.ID + " " + item.Href)
	return strings.Contains(name, "cover")
}

func (b *Book) resolve(href string) string {
	if b.opfDir == "." || b.opfDir == "" {
		return href
	}
	return path.Join(b.opfDir, href)
}

func (b *Book) parseXML(name string, v any) error {
	data, err := b.readFile(name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func (b *Book) readFile(name string) ([]byte, error) {
	f, ok := b.files[name]
	if !ok {
		return nil, fmt.Errorf("epub entry %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open epub entry %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read epub entry %s: %w", name, err)
	}
	return data, nil
}

func first(v []string) string {
	for _, s := range v {
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return ""
}
