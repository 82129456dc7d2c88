// Package reproduce regenerates an annotated hierarchical document from a
// filtered list of items.
package reproduce

import (
	"fmt"
	"slices"
	"strings"

	"github.com/starford/kmdx/internal/models"
)

// CommonTags returns the tags shared by every selected item. A selection of
// one item has no common tags.
func CommonTags(refs []models.Ref) []string {
	if len(refs) <= 1 {
		return []string{}
	}
	common := []string{}
	seen := make(map[string]struct{})
	for _, r := range refs {
		for _, t := range r.Item().Tags {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				common = append(common, t)
			}
		}
	}
	for _, r := range refs {
		tags := r.Item().Tags
		common = slices.DeleteFunc(common, func(t string) bool {
			return !slices.Contains(tags, t)
		})
	}
	return common
}

// LineNumber locates the first occurrence of content in source and returns
// its 1-based line. Duplicate content always resolves to the first
// occurrence. It returns 0 when content does not occur.
func LineNumber(source, content string) int {
	idx := strings.Index(source, content)
	if idx < 0 {
		return 0
	}
	return strings.Count(source[:idx], "\n") + 1
}

// Render builds the indexed-notes document for refs followed by the
// fragment appendix. Output depth is derived from adjacency in refs, not
// from the depth in the original tree.
func Render(refs []models.Ref) string {
	common := CommonTags(refs)
	selected := make(map[models.Ref]struct{}, len(refs))
	for _, r := range refs {
		selected[r] = struct{}{}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Indexed Notes (%s)\n\n", strings.Join(common, ", "))

	var open []models.Ref
	for _, r := range refs {
		item := r.Item()
		parent, hasParent := r.Parent()
		_, parentSelected := selected[parent]
		tags := displayTags(item.Tags, common, parent, hasParent)

		if !hasParent || !parentSelected {
			open = open[:0]
			b.WriteString("* ")
			if len(tags) > 0 {
				fmt.Fprintf(&b, "(%s) ", strings.Join(tags, ", "))
			}
		} else {
			switch {
			case len(open) == 0:
				open = append(open, parent)
			case parent != open[len(open)-1]:
				if slices.Contains(open, parent) {
					open = open[:len(open)-1]
				} else {
					open = append(open, parent)
				}
			}
			b.WriteString(strings.Repeat("\t", len(open)))
			b.WriteString("* ")
			if len(tags) > 0 {
				fmt.Fprintf(&b, "**(%s)** ", strings.Join(tags, ", "))
			}
		}
		b.WriteString(item.Content)
		b.WriteString(" " + annotation(item, LineNumber(r.Resource.Source, item.Content)))
		b.WriteString("\n")
	}
	b.WriteString("\n\n")

	b.WriteString("# LFR\n\n")
	for _, f := range Fragments(refs) {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", f.Name, f.Text())
	}
	return b.String()
}

// Fragments returns the distinct fragments referenced by refs in first-use
// order.
func Fragments(refs []models.Ref) []*models.Fragment {
	seen := make(map[*models.Fragment]struct{})
	var out []*models.Fragment
	for _, r := range refs {
		for _, f := range r.Fragments() {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// displayTags drops tags already implied by the header or the parent line.
func displayTags(tags, common []string, parent models.Ref, hasParent bool) []string {
	var parentTags []string
	if hasParent {
		parentTags = parent.Item().Tags
	}
	var out []string
	for _, t := range tags {
		if slices.Contains(common, t) || slices.Contains(parentTags, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func annotation(item *models.Item, line int) string {
	child := "Is a child"
	if !item.HasParent() {
		child = "Is not a child"
	}
	return fmt.Sprintf("<!-- %d children; %s - Line Number: %d -->", len(item.Children), child, line)
}
