package noteservice

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/starford/kmdx/internal/apperr"
	"github.com/starford/kmdx/internal/testutil"
)

func testService(t *testing.T, files map[string]string) *Service {
	t.Helper()
	_, store := testutil.TestNotes(t, files)
	return NewService(store, testutil.TestDB(t))
}

func TestSelect_AcrossFiles(t *testing.T) {
	svc := testService(t, map[string]string{
		"home.k.md": "* (todo) fix sink\n",
		"work.k.md": "* (todo) review\n* (done) deploy\n",
	})
	items, err := svc.Select(context.Background(), "todo", "")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	var got []string
	for _, it := range items {
		got = append(got, it.Path+":"+it.Content)
	}
	if want := []string{"home.k.md:fix sink", "work.k.md:review"}; !slices.Equal(got, want) {
		t.Errorf("Select = %v, want %v", got, want)
	}
}

func TestSelect_NoFilter(t *testing.T) {
	svc := testService(t, nil)
	if _, err := svc.Select(context.Background(), " , ", ""); !errors.Is(err, apperr.ErrNoFilter) {
		t.Errorf("err = %v, want ErrNoFilter", err)
	}
}

func TestLoadAll_StructuralErrorAborts(t *testing.T) {
	svc := testService(t, map[string]string{
		"a.k.md": "* ok\n",
		"b.k.md": "  * dangling\n",
	})
	if _, err := svc.LoadAll(context.Background(), ""); !errors.Is(err, apperr.ErrStructure) {
		t.Errorf("err = %v, want ErrStructure", err)
	}
}

func TestExtract_NoMatches(t *testing.T) {
	svc := testService(t, map[string]string{"a.k.md": "* (x) one\n"})
	if _, err := svc.Extract(context.Background(), "y", ""); !errors.Is(err, apperr.ErrNoMatches) {
		t.Errorf("err = %v, want ErrNoMatches", err)
	}
}

func TestFragment(t *testing.T) {
	svc := testService(t, map[string]string{
		"a.k.md": "* see {{n}}\n* and {{n}} {{n}}\n# LFR\n## n\n  body\n",
	})
	f, err := svc.Fragment(context.Background(), "a.k.md", "n")
	if err != nil {
		t.Fatalf("Fragment: %v", err)
	}
	if f.Content != "body" {
		t.Errorf("content = %q", f.Content)
	}
	if want := []string{"see {{n}}", "and {{n}} {{n}}", "and {{n}} {{n}}"}; !slices.Equal(f.Users, want) {
		t.Errorf("users = %v, want %v", f.Users, want)
	}
}

func TestCreateFile_IndexesContent(t *testing.T) {
	svc := testService(t, nil)
	ctx := context.Background()
	if _, err := svc.CreateFile(ctx, "new.k.md", []byte("* (q) hello\n")); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	rows, err := svc.IndexedItems(ctx, "q,new")
	if err != nil {
		t.Fatalf("IndexedItems: %v", err)
	}
	if len(rows) != 1 || rows[0].Content != "hello" {
		t.Errorf("rows = %+v", rows)
	}
	if _, err := svc.CreateFile(ctx, "new.k.md", []byte("* again\n")); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestSummary_SinglePath(t *testing.T) {
	svc := testService(t, map[string]string{
		"a.k.md": "* (x) one\n",
		"b.k.md": "* (y) two\n",
	})
	s, err := svc.Summary(context.Background(), "a.k.md")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.Files != 1 || !slices.Equal(s.UniqueTags, []string{"a", "x"}) {
		t.Errorf("summary = %+v", s)
	}
}
