package reproduce

import (
	"slices"
	"strings"
	"testing"

	"github.com/starford/kmdx/internal/filter"
	"github.com/starford/kmdx/internal/models"
	"github.com/starford/kmdx/internal/parser"
)

func selectRefs(t *testing.T, src, query string) []models.Ref {
	t.Helper()
	res, err := parser.Parse("test.k.md", src, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	refs, err := filter.Select(query, []*models.Resource{res})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	return refs
}

// itemLines returns the rendered item lines without annotations.
func itemLines(out string) []string {
	var lines []string
	for _, l := range strings.Split(out, "\n") {
		if i := strings.Index(l, " <!--"); i >= 0 {
			lines = append(lines, strings.TrimSpace(l[:i]))
		}
	}
	return lines
}

func TestRender_RoundTrip(t *testing.T) {
	refs := selectRefs(t, "* (a) Hello\n  * (b) World\n", "a")
	want := "# Indexed Notes (a)\n\n" +
		"* Hello <!-- 1 children; Is not a child - Line Number: 1 -->\n" +
		"\t* **(b)** World <!-- 0 children; Is a child - Line Number: 2 -->\n" +
		"\n\n# LFR\n\n"
	if got := Render(refs); got != want {
		t.Errorf("Render mismatch.\n\nExpected:\n%q\n\nGot:\n%q", want, got)
	}
}

func TestRender_FragmentAppendix(t *testing.T) {
	refs := selectRefs(t, "* (n) See {{note1}}\n* (n) Again {{note1}}\n# LFR\n## note1\n\ntext\n\n## unused\nzzz\n", "n")
	out := Render(refs)
	if !strings.Contains(out, "# LFR\n\n## note1\n\ntext\n\n") {
		t.Errorf("appendix missing note1 section:\n%s", out)
	}
	if strings.Count(out, "## note1") != 1 {
		t.Errorf("note1 should appear once:\n%s", out)
	}
	if strings.Contains(out, "## unused") {
		t.Errorf("unreferenced fragment rendered:\n%s", out)
	}
}

func TestRender_SingleItemHasNoCommonTags(t *testing.T) {
	refs := selectRefs(t, "* (n, m) only\n", "n")
	out := Render(refs)
	if !strings.HasPrefix(out, "# Indexed Notes ()\n\n* (n, m) only <!--") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRender_DepthFromAdjacency(t *testing.T) {
	refs := selectRefs(t, "* r\n  * (x) a\n    * b\n    * c\n  * (x) d\n", "x")
	out := Render(refs)
	want := []string{"* a", "\t* b", "\t* c", "* d"}
	var got []string
	for _, l := range strings.Split(out, "\n") {
		if i := strings.Index(l, " <!--"); i >= 0 {
			got = append(got, l[:i])
		}
	}
	if !slices.Equal(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestRender_IndentAndDedent(t *testing.T) {
	refs := selectRefs(t, "* (x) r\n  * a\n    * b\n  * c\n", "x")
	out := Render(refs)
	want := []string{"* r", "\t* a", "\t\t* b", "\t* c"}
	var got []string
	for _, l := range strings.Split(out, "\n") {
		if i := strings.Index(l, " <!--"); i >= 0 {
			got = append(got, l[:i])
		}
	}
	if !slices.Equal(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestRender_ParentTagsHidden(t *testing.T) {
	refs := selectRefs(t, "* (x, p) r\n  * (q) c\n* (x) s\n", "x")
	lines := itemLines(Render(refs))
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[0] != "* (p) r" {
		t.Errorf("root line = %q", lines[0])
	}
	if lines[1] != "* **(q)** c" {
		t.Errorf("child line = %q", lines[1])
	}
}

// Line numbers come from the first occurrence of the content in the source,
// so repeated content resolves to the earlier line.
func TestLineNumber_FirstOccurrenceApproximation(t *testing.T) {
	refs := selectRefs(t, "* (x) dup\n* (x) dup\n", "x")
	out := Render(refs)
	if strings.Count(out, "Line Number: 1 -->") != 2 {
		t.Errorf("expected both items to resolve to line 1:\n%s", out)
	}
}

func TestLineNumber(t *testing.T) {
	src := "first\nsecond\nthird\n"
	if got := LineNumber(src, "third"); got != 3 {
		t.Errorf("LineNumber = %d, want 3", got)
	}
	if got := LineNumber(src, "absent"); got != 0 {
		t.Errorf("LineNumber(absent) = %d, want 0", got)
	}
}

func TestCommonTags(t *testing.T) {
	refs := selectRefs(t, "* (a, b, c) one\n* (b, a) two\n* (a, b, d) three\n", "a")
	if got := CommonTags(refs); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("CommonTags = %v", got)
	}
}
