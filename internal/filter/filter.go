// Package filter selects items by tag intersection.
package filter

import (
	"strings"

	"github.com/starford/kmdx/internal/apperr"
	"github.com/starford/kmdx/internal/models"
)

// ParseQuery splits a comma-separated keyword list into a lowercase tag set.
func ParseQuery(query string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, k := range strings.Split(query, ",") {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Matches reports whether tags contain every keyword.
func Matches(tags, keywords []string) bool {
	have := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		have[t] = struct{}{}
	}
	for _, k := range keywords {
		if _, ok := have[k]; !ok {
			return false
		}
	}
	return true
}

// Select returns every item whose tags are a superset of the query, in
// resource and document order. An empty query yields apperr.ErrNoFilter; a
// query that matches nothing yields an empty slice and no error.
func Select(query string, resources []*models.Resource) ([]models.Ref, error) {
	keywords := ParseQuery(query)
	if len(keywords) == 0 {
		return nil, apperr.ErrNoFilter
	}
	out := []models.Ref{}
	for _, r := range resources {
		for i := range r.Items {
			if Matches(r.Items[i].Tags, keywords) {
				out = append(out, models.Ref{Resource: r, ID: r.Items[i].ID})
			}
		}
	}
	return out, nil
}
