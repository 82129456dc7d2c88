// Package noteservice coordinates storage, parsing and the index for the
// API and MCP layers.
package noteservice

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/kmdx/internal/apperr"
	"github.com/starford/kmdx/internal/filter"
	"github.com/starford/kmdx/internal/index"
	"github.com/starford/kmdx/internal/models"
	"github.com/starford/kmdx/internal/parser"
	"github.com/starford/kmdx/internal/reproduce"
	"github.com/starford/kmdx/internal/storage"
	"github.com/starford/kmdx/internal/summary"
)

// ItemDetail is the representation of a selected item.
type ItemDetail struct {
	Path      string   `json:"path"`
	ID        int      `json:"id"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	Parent    int      `json:"parent"`
	Children  int      `json:"children"`
	Line      int      `json:"line"`
	Fragments []string `json:"fragments"`
}

// FragmentDetail is a fragment with the items that use it.
type FragmentDetail struct {
	Path    string   `json:"path"`
	Name    string   `json:"name"`
	Content string   `json:"content"`
	Users   []string `json:"users"`
}

// Extraction is a rendered document plus the number of items it holds.
type Extraction struct {
	Query    string `json:"query"`
	Items    int    `json:"items"`
	Document string `json:"document"`
}

// Service coordinates storage and index operations.
type Service struct {
	store storage.Provider
	db    index.ItemIndex
}

// NewService creates a new note service.
func NewService(store storage.Provider, db index.ItemIndex) *Service {
	return &Service{store: store, db: db}
}

// Files lists every tagged-markdown file in the notes directory.
func (s *Service) Files(_ context.Context) ([]models.FileMetadata, error) {
	metas, err := s.store.List("")
	if err != nil {
		return nil, err
	}
	return nonNilSlice(metas), nil
}

// Load parses one file.
func (s *Service) Load(_ context.Context, path string) (*models.Resource, error) {
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	return parser.ParseFile(path, data)
}

// LoadAll parses every file, or only path when it is non-empty. The first
// file that fails to parse aborts the load.
func (s *Service) LoadAll(ctx context.Context, path string) ([]*models.Resource, error) {
	if path != "" {
		res, err := s.Load(ctx, path)
		if err != nil {
			return nil, err
		}
		return []*models.Resource{res}, nil
	}
	metas, err := s.store.List("")
	if err != nil {
		return nil, err
	}
	out := make([]*models.Resource, 0, len(metas))
	for _, m := range metas {
		res, err := s.Load(ctx, m.Path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", m.Path, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// Select parses the documents and returns the items matching query.
func (s *Service) Select(ctx context.Context, query, path string) ([]ItemDetail, error) {
	refs, err := s.selectRefs(ctx, query, path)
	if err != nil {
		return nil, err
	}
	out := make([]ItemDetail, 0, len(refs))
	for _, r := range refs {
		out = append(out, itemDetail(r))
	}
	return out, nil
}

// Extract renders the annotated document for the items matching query.
// Zero matches is reported as apperr.ErrNoMatches.
func (s *Service) Extract(ctx context.Context, query, path string) (*Extraction, error) {
	refs, err := s.selectRefs(ctx, query, path)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: `%s`", apperr.ErrNoMatches, query)
	}
	return &Extraction{Query: query, Items: len(refs), Document: reproduce.Render(refs)}, nil
}

// Fragment returns a named fragment of path and the content of its users.
func (s *Service) Fragment(ctx context.Context, path, name string) (*FragmentDetail, error) {
	res, err := s.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	f, ok := res.Fragment(name)
	if !ok {
		return nil, fmt.Errorf("fragment %s in %s: %w", name, path, apperr.ErrNotFound)
	}
	users := make([]string, 0, len(f.Users))
	for _, id := range f.Users {
		users = append(users, res.Item(id).Content)
	}
	return &FragmentDetail{Path: path, Name: f.Name, Content: f.Text(), Users: users}, nil
}

// Summary aggregates statistics over every file, or only path.
func (s *Service) Summary(ctx context.Context, path string) (summary.Summary, error) {
	resources, err := s.LoadAll(ctx, path)
	if err != nil {
		return summary.Summary{}, err
	}
	return summary.Compute(resources), nil
}

// IndexedItems queries the index for items carrying every tag of query.
func (s *Service) IndexedItems(_ context.Context, query string) ([]index.ItemRow, error) {
	tags := filter.ParseQuery(query)
	if len(tags) == 0 {
		return nil, apperr.ErrNoFilter
	}
	return s.db.ItemsByTags(tags)
}

// Tags returns indexed tags with their item counts.
func (s *Service) Tags(_ context.Context) ([]index.TagCount, error) {
	return s.db.Tags()
}

// FragmentUsers returns the indexed items of path that reference fragment
// name, once per reference.
func (s *Service) FragmentUsers(_ context.Context, path, name string) ([]index.ItemRow, error) {
	return s.db.FragmentUsers(path, name)
}

// Search delegates content search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.ItemRow, error) {
	return s.db.Search(query, limit)
}

// CreateFile writes a new document and indexes it. The content must parse.
func (s *Service) CreateFile(_ context.Context, path string, content []byte) (*models.Resource, error) {
	if err := parser.CheckExtension(path); err != nil {
		return nil, err
	}
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	res, err := parser.ParseFile(path, content)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.db.UpsertResource(res, storage.Checksum(content), time.Now()); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) selectRefs(ctx context.Context, query, path string) ([]models.Ref, error) {
	if len(filter.ParseQuery(query)) == 0 {
		return nil, apperr.ErrNoFilter
	}
	resources, err := s.LoadAll(ctx, path)
	if err != nil {
		return nil, err
	}
	return filter.Select(query, resources)
}

func itemDetail(r models.Ref) ItemDetail {
	it := r.Item()
	names := []string{}
	for _, f := range r.Fragments() {
		names = append(names, f.Name)
	}
	return ItemDetail{
		Path:      r.Resource.Path,
		ID:        int(it.ID),
		Content:   it.Content,
		Tags:      nonNilSlice(it.Tags),
		Parent:    int(it.Parent),
		Children:  len(it.Children),
		Line:      it.Line,
		Fragments: names,
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
