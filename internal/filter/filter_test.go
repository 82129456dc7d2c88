package filter

import (
	"errors"
	"slices"
	"testing"

	"github.com/starford/kmdx/internal/apperr"
	"github.com/starford/kmdx/internal/models"
	"github.com/starford/kmdx/internal/parser"
)

func parse(t *testing.T, path, src string) *models.Resource {
	t.Helper()
	res, err := parser.Parse(path, src, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return res
}

func contents(refs []models.Ref) []string {
	var out []string
	for _, r := range refs {
		out = append(out, r.Item().Content)
	}
	return out
}

func TestParseQuery(t *testing.T) {
	got := ParseQuery(" A, b ,,a ")
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("ParseQuery = %v", got)
	}
}

func TestSelect_EmptyQuery(t *testing.T) {
	res := parse(t, "a.k.md", "* (a) x\n")
	for _, q := range []string{"", " ", ",,"} {
		refs, err := Select(q, []*models.Resource{res})
		if !errors.Is(err, apperr.ErrNoFilter) {
			t.Errorf("Select(%q) err = %v, want ErrNoFilter", q, err)
		}
		if refs != nil {
			t.Errorf("Select(%q) refs = %v, want nil", q, refs)
		}
	}
}

func TestSelect_NoMatchesIsEmptyNotError(t *testing.T) {
	res := parse(t, "a.k.md", "* (a) x\n")
	refs, err := Select("zzz", []*models.Resource{res})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("refs = %v, want none", contents(refs))
	}
}

func TestSelect_Superset(t *testing.T) {
	res := parse(t, "a.k.md", "* (a, b) both\n* (a) only a\n* (b) only b\n  * (c) child of b\n")
	refs, err := Select("b", []*models.Resource{res})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := contents(refs); !slices.Equal(got, []string{"both", "only b", "child of b"}) {
		t.Errorf("Select(b) = %v", got)
	}

	refs, _ = Select("a,b", []*models.Resource{res})
	if got := contents(refs); !slices.Equal(got, []string{"both"}) {
		t.Errorf("Select(a,b) = %v", got)
	}
}

func TestSelect_OrderIndependent(t *testing.T) {
	res := parse(t, "a.k.md", "* (a, b, c) one\n* (c, a) two\n* (b, a) three\n")
	r1, _ := Select("a, c", []*models.Resource{res})
	r2, _ := Select("C,A", []*models.Resource{res})
	if !slices.Equal(contents(r1), contents(r2)) {
		t.Errorf("results differ: %v vs %v", contents(r1), contents(r2))
	}
	if !slices.Equal(contents(r1), []string{"one", "two"}) {
		t.Errorf("results = %v", contents(r1))
	}
}

func TestSelect_AcrossResources(t *testing.T) {
	r1 := parse(t, "one.k.md", "* (x) first\n")
	r2 := parse(t, "two.k.md", "* (x) second\n* other\n")
	refs, err := Select("x", []*models.Resource{r1, r2})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := contents(refs); !slices.Equal(got, []string{"first", "second"}) {
		t.Errorf("Select = %v", got)
	}
	if refs[1].Resource != r2 {
		t.Error("second match should belong to the second resource")
	}
}
