package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/kmdx/internal/apperr"
	"github.com/starford/kmdx/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeServiceError maps domain errors onto HTTP statuses. Anything unknown
// is logged and reported as an internal error.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNoFilter), errors.Is(err, apperr.ErrInvalidExtension):
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNoMatches):
		writeError(w, http.StatusNotFound, codeNoMatches, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeError(w, http.StatusConflict, codeConflict, "file already exists")
	case errors.Is(err, apperr.ErrStructure):
		writeError(w, http.StatusUnprocessableEntity, codeStructure, err.Error())
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

// ListFiles handles GET /api/files.
//
//	@Summary		List tagged-markdown documents
//	@Tags			files
//	@Produce		json
//	@Success		200	{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.Files(r.Context())
	if err != nil {
		writeServiceError(w, "list files", err)
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: files})
}

// CreateFile handles POST /api/files.
//
//	@Summary		Create and index a new document
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateFileRequest	true	"Document to create"
//	@Success		201		{object}	CreateFileResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files [post]
func (h *Handler) CreateFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}
	if req.Path == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "path and content are required")
		return
	}
	res, err := h.svc.CreateFile(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		writeServiceError(w, "create file", err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateFileResponse{
		Path:      res.Path,
		Items:     len(res.Items),
		Fragments: len(res.Fragments),
	})
}

// GetFragment handles GET /api/fragments/{name}?path=.
//
//	@Summary		Read a local fragment reference
//	@Tags			files
//	@Produce		json
//	@Param			name	path		string	true	"Fragment name"
//	@Param			path	query		string	true	"Document path"
//	@Success		200		{object}	FragmentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/fragments/{name} [get]
func (h *Handler) GetFragment(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "query parameter 'path' is required")
		return
	}
	f, err := h.svc.Fragment(r.Context(), path, chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, "get fragment", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// SelectItems handles GET /api/items?tags=&path=.
//
//	@Summary		Select items carrying every tag of a filter
//	@Tags			items
//	@Produce		json
//	@Param			tags	query		string	true	"Comma-separated tags"
//	@Param			path	query		string	false	"Restrict to one document"
//	@Success		200		{object}	ItemListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items [get]
func (h *Handler) SelectItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.svc.Select(r.Context(), q.Get("tags"), q.Get("path"))
	if err != nil {
		writeServiceError(w, "select items", err)
		return
	}
	writeJSON(w, http.StatusOK, ItemListResponse{Query: q.Get("tags"), Items: items})
}

// Extract handles GET /api/extract?tags=&path=&format=.
// format=markdown returns the rendered document as text/markdown.
//
//	@Summary		Render the annotated document for a filter
//	@Tags			items
//	@Produce		json
//	@Produce		text/markdown
//	@Param			tags	query		string	true	"Comma-separated tags"
//	@Param			path	query		string	false	"Restrict to one document"
//	@Param			format	query		string	false	"Response format"	Enums(json, markdown)
//	@Success		200		{object}	Extraction
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/extract [get]
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ext, err := h.svc.Extract(r.Context(), q.Get("tags"), q.Get("path"))
	if err != nil {
		writeServiceError(w, "extract", err)
		return
	}
	if q.Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(ext.Document))
		return
	}
	writeJSON(w, http.StatusOK, ext)
}

// IndexedItems handles GET /api/index/items?tags=.
//
//	@Summary		Query the SQLite index by tags
//	@Tags			items
//	@Produce		json
//	@Param			tags	query		string	true	"Comma-separated tags"
//	@Success		200		{object}	IndexedItemsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/index/items [get]
func (h *Handler) IndexedItems(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.IndexedItems(r.Context(), r.URL.Query().Get("tags"))
	if err != nil {
		writeServiceError(w, "indexed items", err)
		return
	}
	writeJSON(w, http.StatusOK, IndexedItemsResponse{Items: rows})
}

// FragmentUsers handles GET /api/index/fragments/{name}/users?path=.
//
//	@Summary		List indexed items referencing a fragment
//	@Tags			items
//	@Produce		json
//	@Param			name	path		string	true	"Fragment name"
//	@Param			path	query		string	true	"Document path"
//	@Success		200		{object}	IndexedItemsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/index/fragments/{name}/users [get]
func (h *Handler) FragmentUsers(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "query parameter 'path' is required")
		return
	}
	rows, err := h.svc.FragmentUsers(r.Context(), path, chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, "fragment users", err)
		return
	}
	writeJSON(w, http.StatusOK, IndexedItemsResponse{Items: rows})
}

// Tags handles GET /api/tags.
//
//	@Summary		List indexed tags with item counts
//	@Tags			items
//	@Produce		json
//	@Success		200	{object}	TagListResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		writeServiceError(w, "tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// Summary handles GET /api/summary?path=.
//
//	@Summary		Aggregate statistics over documents
//	@Tags			files
//	@Produce		json
//	@Param			path	query		string	false	"Restrict to one document"
//	@Success		200		{object}	summary.Summary
//	@Security		BearerAuth
//	@Router			/summary [get]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Summary(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		writeServiceError(w, "summary", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Search handles GET /api/search.
//
//	@Summary		Substring search across indexed items
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "query parameter 'q' is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
