package index

import (
	"time"

	"github.com/starford/kmdx/internal/models"
)

// ItemIndex defines the interface for item indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type ItemIndex interface {
	UpsertResource(res *models.Resource, checksum string, updatedAt time.Time) error
	DeleteFile(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	ItemsByTags(tags []string) ([]ItemRow, error)
	FragmentUsers(path, name string) ([]ItemRow, error)
	Search(query string, limit int) ([]ItemRow, error)
	Tags() ([]TagCount, error)
	Ping() error
	Close() error
}

// Verify *DB satisfies ItemIndex at compile time.
var _ ItemIndex = (*DB)(nil)
