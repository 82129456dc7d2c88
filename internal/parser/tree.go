package parser

import (
	"errors"
	"strings"

	"github.com/starford/kmdx/internal/models"
)

var (
	errDangling     = errors.New("dangling sibling")
	errInconsistent = errors.New("inconsistent indentation")
)

// level is one open indentation level: the item children attach to and the
// indentation width its children were opened at.
type level struct {
	parent models.ItemID
	width  int
}

// tree resolves parents and tag scopes for list lines. The scope stack also
// receives header scopes, so it can be deeper than the level stack.
type tree struct {
	res       *models.Resource
	fileScope []string

	scopes     [][]string
	levels     []level
	current    models.ItemID
	indent     string
	headerMark string
}

func newTree(res *models.Resource, fileScope []string) *tree {
	t := &tree{
		res:        res,
		fileScope:  fileScope,
		current:    models.NoParent,
		headerMark: "#",
	}
	t.reset()
	return t
}

func (t *tree) scope() []string {
	return t.scopes[len(t.scopes)-1]
}

func (t *tree) parent() models.ItemID {
	if len(t.levels) == 0 {
		return models.NoParent
	}
	return t.levels[len(t.levels)-1].parent
}

// reset returns to the file scope with no open levels.
func (t *tree) reset() {
	t.scopes = [][]string{t.fileScope}
	t.levels = t.levels[:0]
	t.indent = ""
}

func (t *tree) pushLevel(indent string) {
	tags := t.res.Item(t.current).Tags
	t.levels = append(t.levels, level{parent: t.current, width: len(indent)})
	t.scopes = append(t.scopes, tags)
	t.indent = indent
}

// popLevel closes exactly one level, however far the line dedents. The new
// width must be one that an open level was pushed at.
func (t *tree) popLevel(indent string) error {
	t.levels = t.levels[:len(t.levels)-1]
	if len(t.scopes) > 1 {
		t.scopes = t.scopes[:len(t.scopes)-1]
	}
	if len(t.levels) == 0 || !t.openedAt(len(indent)) {
		return errInconsistent
	}
	t.indent = indent
	return nil
}

func (t *tree) openedAt(width int) bool {
	for _, l := range t.levels {
		if l.width == width {
			return true
		}
	}
	return false
}

// pushHeader nests a header title into the scope. The expected header mark
// only ever lengthens.
func (t *tree) pushHeader(title string) {
	scope := t.scope()
	if title = normalizeTag(title); title != "" {
		scope = union(scope, []string{title})
	}
	t.scopes = append(t.scopes, scope)
	t.headerMark += "#"
}

func (t *tree) root(text string, lineNo int) {
	t.reset()
	t.current = t.addItem(text, models.NoParent, lineNo)
}

func (t *tree) child(indent, text string, lineNo int) error {
	if t.current == models.NoParent {
		return errDangling
	}
	indent = strings.ReplaceAll(indent, "\t", "  ")
	switch {
	case len(indent) > len(t.indent):
		t.pushLevel(indent)
	case len(indent) < len(t.indent):
		if err := t.popLevel(indent); err != nil {
			return err
		}
	}
	t.current = t.addItem(text, t.parent(), lineNo)
	return nil
}

// addItem strips the bullet, extracts inline tags and composes the final tag
// set from the current scope, the inline tags and the parent's tags.
func (t *tree) addItem(text string, parent models.ItemID, lineNo int) models.ItemID {
	tags, content := TagsFromLine(stripBullet(text))
	var parentTags []string
	if parent != models.NoParent {
		parentTags = t.res.Item(parent).Tags
	}
	return t.res.AddItem(content, union(t.scope(), tags, parentTags), parent, lineNo)
}
