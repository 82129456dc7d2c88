package mcpserver

// DialectReference describes the tagged-markdown syntax that LLM consumers
// should follow when creating documents.
const DialectReference = `# kmdx Tagged Markdown Dialect

Documents end with ` + "`.k.md`" + ` and are read top to bottom in one pass.

## File tags

- The base name (without ` + "`.k.md`" + `) is an implicit tag of every item: ` + "`work.k.md`" + ` adds ` + "`work`" + `.
- A leading ` + "`(a,b)`" + ` or ` + "`[a,b]`" + `, or a trailing ` + "`[a,b]`" + `, in the name adds those tags and is stripped from the name.
- A name starting with ` + "`@`" + ` (after stripping) is not itself a tag. Use it for index files.

## Items

- ` + "`* `, `+ `, `- `" + ` or ` + "`1. `" + ` at column 0 starts a root item.
- The same markers after leading whitespace start a child item. Tabs count as two spaces.
- A deeper indent nests under the previous item. An equal indent is a sibling. A shallower
  indent must return to a width that was opened before, otherwise the document is rejected.
- An item may start with inline tags: ` + "`* (todo, urgent) call Bob`" + `. Tags split on commas,
  or on semicolons when there is no comma, and are lowercased.
- Every item carries its file tags, its parent's tags, the header scope at its position and
  its inline tags.

## Headers

- ` + "`# General Indexed Note`" + ` is skipped.
- A header matching the current depth mark (starting with ` + "`#`" + `) adds its title as a tag to
  the scope of the items that follow it until the next root item. Each header lengthens the
  expected mark by one ` + "`#`" + `.

## Fragments

- ` + "`# Local Fragment Reference`" + ` or ` + "`# LFR`" + ` starts the fragment region. It lasts to the end of file.
- ` + "`## name`" + ` inside the region starts a fragment; following lines are its body.
- Inside a fenced code block (three or more backticks) ` + "`## `" + ` lines are body text.
- ` + "`{{name}}`" + ` in item content references a fragment of the same document. Unknown names are ignored.

## Example

` + "```" + `markdown
# General Indexed Note
* (todo) write the release notes {{outline}}
  * (urgent) changelog first
* (done) tag v1.2

# LFR
## outline
1. features
2. fixes
` + "```" + `
`
