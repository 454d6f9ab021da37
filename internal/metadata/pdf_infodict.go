package metadata

import (
	"fmt"

	"bookwyrm/internal/models"

	"github.com/ledongthuc/pdf"
)

// infoDictBackend reads the PDF trailer's Info dictionary. Pure Go, used when
// MuPDF cannot open the file.
type infoDictBackend struct{}

func (infoDictBackend) Name() string { return "infodict" }

func (infoDictBackend) Extract(path string) (m models.Metadata, err error) {
	defer recoverExtract(&err)

	f, r, err := pdf.Open(path)
	if err != nil {
		return models.Metadata{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	info := r.Trailer().Key("Info")
	if info.Kind() == pdf.Dict {
		m = models.Metadata{
			Title:            infoString(info, "Title"),
			Author:           infoString(info, "Author"),
			Subject:          infoString(info, "Subject"),
			Creator:          infoString(info, "Creator"),
			Producer:         infoString(info, "Producer"),
			CreationDate:     infoString(info, "CreationDate"),
			ModificationDate: infoString(info, "ModDate"),
		}
	}
	m.PageCount = optionalInt(r.NumPage())
	return m, nil
}

func infoString(info pdf.Value, key string) *string {
	v := info.Key(key)
	if v.Kind() != pdf.String {
		return nil
	}
	return optional(v.Text())
}
