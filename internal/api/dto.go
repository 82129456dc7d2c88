package api

import (
	"github.com/starford/kmdx/internal/index"
	"github.com/starford/kmdx/internal/models"
	"github.com/starford/kmdx/internal/noteservice"
)

// CreateFileRequest is the request body for creating a document.
type CreateFileRequest struct {
	Path    string `json:"path" example:"@work.k.md" validate:"required"`
	Content string `json:"content" example:"* (todo) write docs" validate:"required"`
}

// ItemDetail is a selected item (aliased from the domain layer).
type ItemDetail = noteservice.ItemDetail

// FragmentDetail is a named fragment (aliased from the domain layer).
type FragmentDetail = noteservice.FragmentDetail

// Extraction is a rendered document (aliased from the domain layer).
type Extraction = noteservice.Extraction

// ItemListResponse wraps selected items.
type ItemListResponse struct {
	Query string       `json:"query" example:"todo,work" validate:"required"`
	Items []ItemDetail `json:"items" validate:"required"`
}

// IndexedItemsResponse wraps items returned by the SQLite index.
type IndexedItemsResponse struct {
	Items []index.ItemRow `json:"items" validate:"required"`
}

// FileListResponse wraps document listings.
type FileListResponse struct {
	Files []models.FileMetadata `json:"files" validate:"required"`
}

// TagListResponse wraps tag counts.
type TagListResponse struct {
	Tags []index.TagCount `json:"tags" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.ItemRow `json:"results" validate:"required"`
}

// CreateFileResponse is returned after a document has been written and indexed.
type CreateFileResponse struct {
	Path      string `json:"path" example:"@work.k.md"`
	Items     int    `json:"items" example:"3"`
	Fragments int    `json:"fragments" example:"1"`
}
