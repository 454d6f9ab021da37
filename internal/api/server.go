package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"bookwyrm/internal/agent"
	"bookwyrm/internal/config"
	"bookwyrm/internal/logger"
	"bookwyrm/internal/models"
	"bookwyrm/internal/util"
)

const maxUploadBytes = 128 << 20

// generalConversationKey is the reserved chat key for conversations over the
// whole corpus rather than a single document.
const generalConversationKey = "general"

type libraryStore interface {
	Add(r io.Reader, originalFilename string) (models.DocumentRecord, error)
	Get(id string) (models.DocumentRecord, bool)
	FilePath(id string) (string, bool)
	ThumbnailsDir() string
	Remove(id string) bool
}

type documentCatalog interface {
	Listing(ctx context.Context) ([]models.ListingEntry, error)
	Resolve(ctx context.Context, id string) (string, error)
}

type documentIndexer interface {
	IndexDocument(ctx context.Context, path, name string) error
}

type chunkDeleter interface {
	DeleteByName(ctx context.Context, name string) error
}

type Server struct {
	cfg     config.Config
	library libraryStore
	catalog documentCatalog
	indexer documentIndexer
	chunks  chunkDeleter
	agents  *agent.Registry
	log     *logger.Logger
}

func NewServer(cfg config.Config, library libraryStore, catalog documentCatalog, indexer documentIndexer, chunks chunkDeleter, agents *agent.Registry, log *logger.Logger) *Server {
	return &Server{
		cfg:     cfg,
		library: library,
		catalog: catalog,
		indexer: indexer,
		chunks:  chunks,
		agents:  agents,
		log:     log,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/documents", s.handleDocuments)
	mux.HandleFunc("/documents/", s.handleDocumentScoped)
	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/chat/", s.handleChat)
	mux.Handle("/thumbnails/", http.StripPrefix("/thumbnails/", http.FileServer(http.Dir(s.library.ThumbnailsDir()))))
	return withCORS(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, nil)
		return
	}
	entries, err := s.catalog.Listing(r.Context())
	if err != nil {
		s.log.Error("document listing failed", "error", err)
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []models.ListingEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDocumentScoped(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeErr(w, http.StatusNotFound, nil)
		return
	}
	if r.Method != http.MethodDelete {
		writeErr(w, http.StatusMethodNotAllowed, nil)
		return
	}

	name, err := s.catalog.Resolve(r.Context(), id)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	removed := s.library.Remove(id)
	if err := s.chunks.DeleteByName(r.Context(), name); err != nil {
		s.log.Warn("chunk cleanup failed during delete", "id", id, "name", name, "error", err)
	}
	s.agents.Remove(name)
	s.log.Info("deleted document", "id", id, "name", name, "library_removed", removed)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "deleted",
		"document_id": id,
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, nil)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid multipart body: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no file provided"))
		return
	}
	defer file.Close()
	if strings.TrimSpace(header.Filename) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no file provided"))
		return
	}

	doc, err := s.library.Add(file, header.Filename)
	if err != nil {
		if errors.Is(err, util.ErrUnsupportedFormat) {
			writeErr(w, http.StatusBadRequest, err)
			return
		}
		s.log.Error("library add failed", "filename", header.Filename, "error", err)
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	// Indexing is best-effort: the document stays browsable in the library
	// even when text extraction or the chunk store fails.
	message := "Document added to library and indexed."
	if path, ok := s.library.FilePath(doc.ID); ok {
		if err := s.indexer.IndexDocument(r.Context(), path, doc.OriginalFilename); err != nil {
			s.log.Warn("indexing failed for ingested document", "id", doc.ID, "error", err)
			message = "Document added to library; indexing failed and can be retried."
		}
	}

	var thumbnailURL *string
	if doc.ThumbnailPath != "" {
		u := "/thumbnails/" + doc.ID + ".jpg"
		thumbnailURL = &u
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "success",
		"message":     message,
		"document_id": doc.ID,
		"metadata": map[string]any{
			"title":         doc.Title,
			"author":        doc.Author,
			"page_count":    doc.PageCount,
			"file_size":     doc.FileSize,
			"thumbnail_url": thumbnailURL,
		},
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, nil)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/chat/")
	if id == "" || strings.Contains(id, "/") {
		writeErr(w, http.StatusNotFound, nil)
		return
	}

	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("prompt is required"))
		return
	}

	// Conversations are keyed by filename, so reaching a document by catalog
	// id or by its raw chunk-store name continues the same history. The
	// general key chats across the whole corpus with no name filter.
	key, filter := id, id
	switch {
	case looksLikeDocumentID(id):
		name, err := s.catalog.Resolve(r.Context(), id)
		if err != nil {
			if errors.Is(err, util.ErrNotFound) {
				writeErr(w, http.StatusNotFound, err)
				return
			}
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		key, filter = name, name
	case id == generalConversationKey:
		filter = ""
	}

	a := s.agents.GetOrCreate(key, filter)
	answer, err := a.Run(r.Context(), req.Prompt)
	if err != nil {
		s.log.Error("chat failed", "key", key, "error", err)
		writeErr(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"response":        answer,
		"conversation_id": key,
	})
}

func looksLikeDocumentID(id string) bool {
	return len(id) == 36 && strings.Count(id, "-") == 4
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "BW-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "BW-DB-5001",
				Message: "Chunk store schema is not initialized. Restart the service and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "BW-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "BW-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "BW-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "BW-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusMethodNotAllowed:
		code = "BW-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusBadGateway:
		code = "BW-API-5020"
		msg = "Model provider is unavailable. Retry shortly."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "unsupported file type"):
			msg = "Unsupported file type. Accepted: pdf, epub, mobi, azw, azw3."
		case strings.Contains(raw, "no file provided"):
			msg = "No file was provided."
		case strings.Contains(raw, "prompt is required"):
			msg = "A prompt is required."
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(raw, "invalid multipart"):
			msg = "Malformed multipart upload."
		case strings.Contains(raw, "document not found"):
			msg = "Document was not found."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
