package parser

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Extension is the double suffix every tagged-markdown document carries.
const Extension = ".k.md"

var (
	nameTagRe = regexp.MustCompile(`(^\(.*?\))|(^\[.*?\])|(\[.*?\]$)`)
	lineTagRe = regexp.MustCompile(`^\(.*?\)`)
)

// TagsFromName extracts a leading (tags) / [tags] or trailing [tags]
// annotation from a file or folder name. It returns the tags and the name
// with the annotation removed.
func TagsFromName(name string) ([]string, string) {
	loc := nameTagRe.FindStringIndex(name)
	if loc == nil {
		return nil, name
	}
	span := name[loc[0]:loc[1]]
	remaining := strings.TrimSpace(name[:loc[0]] + name[loc[1]:])
	return splitTags(span[1 : len(span)-1]), remaining
}

// TagsFromLine extracts a leading (tags) annotation from item content.
//
// A line that consists of the bracket alone keeps the bracket as content,
// and its raw text, parentheses included, is split into tags.
func TagsFromLine(line string) ([]string, string) {
	span := lineTagRe.FindString(line)
	if span == "" {
		return nil, line
	}
	if span == line {
		return splitTags(span), line
	}
	rest := line[len(span):]
	if len(rest) > 0 {
		rest = rest[1:]
	}
	return splitTags(span[1 : len(span)-1]), strings.TrimSpace(rest)
}

// FileTags returns the implicit tag scope of the document at path: the
// annotation tags of its base name plus, unless the remaining name starts
// with '@', the remaining name itself.
func FileTags(path string) []string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, Extension)
	tags, name := TagsFromName(base)
	if name != "" && !strings.HasPrefix(name, "@") {
		tags = append(tags, normalizeTag(name))
	}
	return union(tags)
}

// splitTags splits on commas when present, otherwise on semicolons.
func splitTags(s string) []string {
	sep := ";"
	if strings.Contains(s, ",") {
		sep = ","
	}
	var out []string
	for _, t := range strings.Split(s, sep) {
		t = normalizeTag(t)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// union merges tag lists, keeping first-seen order and dropping duplicates.
func union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, l := range lists {
		for _, t := range l {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
