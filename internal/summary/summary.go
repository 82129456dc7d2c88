// Package summary reports aggregate statistics over parsed resources.
package summary

import (
	"fmt"
	"slices"
	"strings"

	"github.com/starford/kmdx/internal/models"
)

// Summary holds counts across a set of resources.
type Summary struct {
	Files      int      `json:"files"`
	Items      int      `json:"items"`
	Fragments  int      `json:"fragments"`
	UniqueTags []string `json:"unique_tags"`
}

// Compute aggregates resources. UniqueTags is sorted.
func Compute(resources []*models.Resource) Summary {
	s := Summary{Files: len(resources), UniqueTags: []string{}}
	seen := make(map[string]struct{})
	for _, r := range resources {
		s.Items += len(r.Items)
		s.Fragments += len(r.Fragments)
		for _, it := range r.Items {
			for _, t := range it.Tags {
				if _, ok := seen[t]; !ok {
					seen[t] = struct{}{}
					s.UniqueTags = append(s.UniqueTags, t)
				}
			}
		}
	}
	slices.Sort(s.UniqueTags)
	return s
}

// Markdown renders the summary as a short report.
func (s Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("# Summary\n\n")
	fmt.Fprintf(&b, "Total Tags (Unique): %d<br/>\n", len(s.UniqueTags))
	fmt.Fprintf(&b, "Total Items: %d<br/>\n", s.Items)
	fmt.Fprintf(&b, "Total Fragments: %d<br/>\n", s.Fragments)
	fmt.Fprintf(&b, "Unique Tags: %s\n", strings.Join(s.UniqueTags, ", "))
	return b.String()
}
