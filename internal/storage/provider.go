// Package storage defines the notes-directory file-system abstraction.
package storage

import "github.com/starford/kmdx/internal/models"

// Provider is the interface for notes-directory file operations.
type Provider interface {
	// List returns metadata for every tagged-markdown file under dir (relative to root).
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
}
