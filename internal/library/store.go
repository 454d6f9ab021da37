package library

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"bookwyrm/internal/logger"
	"bookwyrm/internal/models"
	"bookwyrm/internal/util"

	"github.com/google/uuid"
)

var supportedExtensions = map[string]bool{
	"pdf":  true,
	"epub": true,
	"mobi": true,
	"azw":  true,
	"azw3": true,
}

// MetadataExtractor produces a metadata bag for a stored file. Extraction is
// best-effort; implementations log failures and return whatever they got.
type MetadataExtractor interface {
	Extract(path, ext string) models.Metadata
}

// ThumbnailGenerator renders a preview image for a stored file and reports
// whether one was produced.
type ThumbnailGenerator interface {
	Generate(path, id, ext string) bool
}

// Store is the file-system-backed document library. Layout under root:
// documents/<id>/<sanitized filename>, thumbnails/<id>.jpg, metadata/<id>.json.
type Store struct {
	root          string
	documentsDir  string
	thumbnailsDir string
	metadataDir   string
	extractor     MetadataExtractor
	thumbs        ThumbnailGenerator
	log           *logger.Logger
}

func NewStore(root string, extractor MetadataExtractor, thumbs ThumbnailGenerator, log *logger.Logger) (*Store, error) {
	s := &Store{
		root:          root,
		documentsDir:  filepath.Join(root, "documents"),
		thumbnailsDir: filepath.Join(root, "thumbnails"),
		metadataDir:   filepath.Join(root, "metadata"),
		extractor:     extractor,
		thumbs:        thumbs,
		log:           log,
	}
	for _, dir := range []string{s.documentsDir, s.thumbnailsDir, s.metadataDir} {
		if err := util.EnsureDir(dir); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add stores an uploaded file under a fresh identifier, extracts metadata and
// a thumbnail (both best-effort), writes the metadata record, and returns the
// complete record. Unsupported extensions fail before anything touches disk.
func (s *Store) Add(r io.Reader, originalFilename string) (models.DocumentRecord, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(originalFilename)), ".")
	if !supportedExtensions[ext] {
		return models.DocumentRecord{}, fmt.Errorf("%w: .%s", util.ErrUnsupportedFormat, ext)
	}

	id := uuid.NewString()
	docDir := filepath.Join(s.documentsDir, id)
	if err := util.EnsureDir(docDir); err != nil {
		return models.DocumentRecord{}, err
	}

	storedName := SanitizeFilename(originalFilename)
	storedPath := filepath.Join(docDir, storedName)
	size, err := writeFile(storedPath, r)
	if err != nil {
		_ = os.RemoveAll(docDir)
		return models.DocumentRecord{}, fmt.Errorf("store %s: %w", originalFilename, err)
	}

	rec := models.DocumentRecord{
		ID:               id,
		OriginalFilename: originalFilename,
		StoredFilename:   storedName,
		FileExtension:    ext,
		Metadata:         s.extractor.Extract(storedPath, ext),
		AddedAt:          time.Now(),
		FileSize:         size,
	}
	if s.thumbs.Generate(storedPath, id, ext) {
		rec.ThumbnailPath = filepath.Join("thumbnails", id+".jpg")
	}

	if err := s.writeRecord(rec); err != nil {
		_ = os.RemoveAll(docDir)
		_ = os.Remove(filepath.Join(s.thumbnailsDir, id+".jpg"))
		return models.DocumentRecord{}, err
	}
	s.log.Info("added document to library", "id", id, "filename", rec.DisplayName())
	return rec, nil
}

// Get reads the metadata record for id. Missing or corrupt records read as
// absent, not as errors; a torn concurrent write degrades the same way.
func (s *Store) Get(id string) (models.DocumentRecord, bool) {
	b, err := os.ReadFile(filepath.Join(s.metadataDir, id+".json"))
	if err != nil {
		return models.DocumentRecord{}, false
	}
	var rec models.DocumentRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		s.log.Warn("unreadable metadata record", "id", id, "error", err)
		return models.DocumentRecord{}, false
	}
	return rec, true
}

// List scans all metadata records, skipping unreadable ones, newest first.
func (s *Store) List() ([]models.DocumentRecord, error) {
	entries, err := os.ReadDir(s.metadataDir)
	if err != nil {
		return nil, fmt.Errorf("scan library metadata: %w", err)
	}
	out := make([]models.DocumentRecord, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if rec, ok := s.Get(strings.TrimSuffix(e.Name(), ".json")); ok {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AddedAt.After(out[j].AddedAt)
	})
	return out, nil
}

// FilePath returns the stored file's path for id.
func (s *Store) FilePath(id string) (string, bool) {
	rec, ok := s.Get(id)
	if !ok {
		return "", false
	}
	p := filepath.Join(s.documentsDir, id, rec.StoredFilename)
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// ThumbnailPath returns the thumbnail's path for id if one exists.
func (s *Store) ThumbnailPath(id string) (string, bool) {
	p := filepath.Join(s.thumbnailsDir, id+".jpg")
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// ThumbnailsDir is the directory thumbnails are served from.
func (s *Store) ThumbnailsDir() string {
	return s.thumbnailsDir
}

// Remove deletes the document folder, thumbnail, and metadata record
// independently; one failure does not block the others. It reports true when
// every part was deleted or already absent, so removing a removed id is not a
// failure.
func (s *Store) Remove(id string) bool {
	ok := true
	if err := os.RemoveAll(filepath.Join(s.documentsDir, id)); err != nil {
		s.log.Error("remove document folder", "id", id, "error", err)
		ok = false
	}
	if err := os.Remove(filepath.Join(s.thumbnailsDir, id+".jpg")); err != nil && !os.IsNotExist(err) {
		s.log.Error("remove thumbnail", "id", id, "error", err)
		ok = false
	}
	if err := os.Remove(filepath.Join(s.metadataDir, id+".json")); err != nil && !os.IsNotExist(err) {
		s.log.Error("remove metadata record", "id", id, "error", err)
		ok = false
	}
	if ok {
		s.log.Info("removed document from library", "id", id)
	}
	return ok
}

func (s *Store) writeRecord(rec models.DocumentRecord) error {
	f, err := os.Create(filepath.Join(s.metadataDir, rec.ID+".json"))
	if err != nil {
		return fmt.Errorf("create metadata record: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("write metadata record: %w", err)
	}
	return nil
}

func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}
