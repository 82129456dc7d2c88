package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/kmdx/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/files", h.ListFiles)
	r.Post("/files", h.CreateFile)
	r.Get("/fragments/{name}", h.GetFragment)

	// Tag queries.
	r.Get("/items", h.SelectItems)
	r.Get("/extract", h.Extract)
	r.Get("/index/items", h.IndexedItems)
	r.Get("/index/fragments/{name}/users", h.FragmentUsers)
	r.Get("/tags", h.Tags)
	r.Get("/summary", h.Summary)

	// Search.
	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
