// Package models defines the domain types for kmdx.
package models

import "strings"

// ItemID indexes an item inside its Resource.
type ItemID int

// FragmentID indexes a fragment inside its Resource.
type FragmentID int

// NoParent marks a root item.
const NoParent ItemID = -1

// Item is one parsed list line.
type Item struct {
	ID       ItemID       `json:"id"`
	Content  string       `json:"content"`
	Tags     []string     `json:"tags"`
	Children []ItemID     `json:"children,omitempty"`
	Parent   ItemID       `json:"parent"`
	Refs     []FragmentID `json:"refs,omitempty"`
	Line     int          `json:"line"`
}

// HasParent reports whether the item is nested under another item.
func (i *Item) HasParent() bool {
	return i.Parent != NoParent
}

// Fragment is a named block collected from the fragment region.
type Fragment struct {
	ID      FragmentID `json:"id"`
	Name    string     `json:"name"`
	Content string     `json:"-"`
	Users   []ItemID   `json:"users,omitempty"`
}

// Text returns the fragment body with surrounding whitespace removed.
func (f *Fragment) Text() string {
	return strings.TrimSpace(f.Content)
}

// Resource is the result of parsing one document. It owns the item forest
// and the fragment registry; items and fragments refer to each other by id.
type Resource struct {
	Path      string
	Source    string
	Items     []Item
	Fragments []Fragment

	byName map[string]FragmentID
}

// NewResource creates an empty resource for the document at path.
func NewResource(path, source string) *Resource {
	return &Resource{
		Path:   path,
		Source: source,
		byName: make(map[string]FragmentID),
	}
}

// AddItem appends an item and links it under parent when parent is not NoParent.
func (r *Resource) AddItem(content string, tags []string, parent ItemID, line int) ItemID {
	id := ItemID(len(r.Items))
	r.Items = append(r.Items, Item{
		ID:      id,
		Content: content,
		Tags:    tags,
		Parent:  parent,
		Line:    line,
	})
	if parent != NoParent {
		p := &r.Items[parent]
		p.Children = append(p.Children, id)
	}
	return id
}

// Item returns the item with the given id.
func (r *Resource) Item(id ItemID) *Item {
	return &r.Items[id]
}

// Roots returns the ids of items without a parent, in document order.
func (r *Resource) Roots() []ItemID {
	var out []ItemID
	for i := range r.Items {
		if !r.Items[i].HasParent() {
			out = append(out, r.Items[i].ID)
		}
	}
	return out
}

// EnsureFragment registers name if absent and returns its id.
func (r *Resource) EnsureFragment(name string) FragmentID {
	if id, ok := r.byName[name]; ok {
		return id
	}
	id := FragmentID(len(r.Fragments))
	r.Fragments = append(r.Fragments, Fragment{ID: id, Name: name})
	r.byName[name] = id
	return id
}

// Fragment looks up a fragment by name.
func (r *Resource) Fragment(name string) (*Fragment, bool) {
	id, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return &r.Fragments[id], true
}

// FragmentByID returns the fragment with the given id.
func (r *Resource) FragmentByID(id FragmentID) *Fragment {
	return &r.Fragments[id]
}

// Ref identifies an item across resources.
type Ref struct {
	Resource *Resource
	ID       ItemID
}

// Item returns the referenced item.
func (r Ref) Item() *Item {
	return r.Resource.Item(r.ID)
}

// Parent returns a reference to the item's parent, if any.
func (r Ref) Parent() (Ref, bool) {
	it := r.Item()
	if !it.HasParent() {
		return Ref{}, false
	}
	return Ref{Resource: r.Resource, ID: it.Parent}, true
}

// Fragments returns the fragments referenced by the item, with duplicates.
func (r Ref) Fragments() []*Fragment {
	it := r.Item()
	out := make([]*Fragment, 0, len(it.Refs))
	for _, id := range it.Refs {
		out = append(out, r.Resource.FragmentByID(id))
	}
	return out
}
