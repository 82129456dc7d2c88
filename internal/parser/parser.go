// Package parser turns tagged-markdown documents into a forest of tagged
// items and a registry of named fragments.
package parser

import (
	"fmt"
	"strings"

	"github.com/starford/kmdx/internal/apperr"
	"github.com/starford/kmdx/internal/models"
)

// CheckExtension rejects paths that lack the tagged-markdown suffix.
func CheckExtension(path string) error {
	if !strings.HasSuffix(path, Extension) {
		return fmt.Errorf("%w: %s (require ending with `%s`)", apperr.ErrInvalidExtension, path, Extension)
	}
	return nil
}

// ParseFile checks the extension of path and parses data as its content.
func ParseFile(path string, data []byte) (*models.Resource, error) {
	if err := CheckExtension(path); err != nil {
		return nil, err
	}
	return Parse(path, string(data), FileTags(path))
}

// Parse builds a resource from source. fileTags seeds the tag scope of every
// top-level item.
func Parse(path, source string, fileTags []string) (*models.Resource, error) {
	res := models.NewResource(path, source)
	t := newTree(res, union(fileTags))
	c := newCollector(res)
	inFragments := false

	for i, line := range splitLines(source) {
		lineNo := i + 1
		if inFragments {
			c.feed(line)
			continue
		}
		l := Classify(line, t.headerMark)
		switch l.Kind {
		case KindRootItem:
			t.root(l.Text, lineNo)
		case KindChildItem:
			if err := t.child(l.Indent, l.Text, lineNo); err != nil {
				return nil, fmt.Errorf("parser: %w: %v at line %d: `%s`", apperr.ErrStructure, err, lineNo, line)
			}
		case KindFragmentRegion:
			inFragments = true
		case KindHeader:
			t.pushHeader(l.Text)
		case KindIndexHeader, KindIgnored:
		}
	}

	Link(res)
	return res, nil
}

// splitLines splits on newlines, dropping carriage returns and the empty
// remainder after a trailing newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
