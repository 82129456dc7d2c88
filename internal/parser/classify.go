package parser

import (
	"regexp"
	"strings"
)

// Kind is the classification of a raw line.
type Kind int

const (
	KindIgnored Kind = iota
	KindRootItem
	KindChildItem
	KindIndexHeader
	KindFragmentRegion
	KindHeader
)

func (k Kind) String() string {
	switch k {
	case KindRootItem:
		return "root-item"
	case KindChildItem:
		return "child-item"
	case KindIndexHeader:
		return "index-header"
	case KindFragmentRegion:
		return "fragment-region"
	case KindHeader:
		return "header"
	default:
		return "ignored"
	}
}

// Line is a classified line. Indent holds the leading whitespace of child
// items; Text is the line without it (for headers, the title).
type Line struct {
	Kind   Kind
	Indent string
	Text   string
}

var (
	bulletRe = regexp.MustCompile(`^([*+-] |\d+\. )`)
	childRe  = regexp.MustCompile(`^(\s+)([*+-] |\d+\. )`)
)

var (
	indexHeaders    = []string{"# General Indexed Note"}
	fragmentHeaders = []string{"# Local Fragment Reference", "# LFR"}
)

type rule struct {
	kind  Kind
	match func(line, headerMark string) (Line, bool)
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{KindRootItem, func(line, _ string) (Line, bool) {
		if !bulletRe.MatchString(line) {
			return Line{}, false
		}
		return Line{Text: line}, true
	}},
	{KindChildItem, func(line, _ string) (Line, bool) {
		m := childRe.FindStringSubmatch(line)
		if m == nil {
			return Line{}, false
		}
		return Line{Indent: m[1], Text: line[len(m[1]):]}, true
	}},
	{KindIndexHeader, func(line, _ string) (Line, bool) {
		return Line{Text: line}, hasAnyPrefix(line, indexHeaders)
	}},
	{KindFragmentRegion, func(line, _ string) (Line, bool) {
		return Line{Text: line}, hasAnyPrefix(line, fragmentHeaders)
	}},
	{KindHeader, func(line, headerMark string) (Line, bool) {
		if !strings.HasPrefix(line, headerMark) {
			return Line{}, false
		}
		title := ""
		if len(line) > len(headerMark)+1 {
			title = line[len(headerMark)+1:]
		}
		return Line{Text: title}, true
	}},
}

// Classify assigns a kind to a line outside the fragment region. headerMark
// is the header prefix the document currently expects ("#", "##", ...).
func Classify(line, headerMark string) Line {
	for _, r := range rules {
		if l, ok := r.match(line, headerMark); ok {
			l.Kind = r.kind
			return l
		}
	}
	return Line{Kind: KindIgnored, Text: line}
}

// stripBullet removes the leading bullet or number marker.
func stripBullet(s string) string {
	return s[len(bulletRe.FindString(s)):]
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
