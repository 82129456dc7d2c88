package parser

import (
	"regexp"

	"github.com/starford/kmdx/internal/models"
)

var fragmentRefRe = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Link connects items to the fragments their content references with
// {{name}} tokens. Every token occurrence adds one link in each direction;
// names without a registered fragment are skipped.
func Link(res *models.Resource) {
	for i := range res.Items {
		item := &res.Items[i]
		for _, name := range References(item.Content) {
			f, ok := res.Fragment(name)
			if !ok {
				continue
			}
			item.Refs = append(item.Refs, f.ID)
			f.Users = append(f.Users, item.ID)
		}
	}
}

// References returns the fragment names referenced by content, in order and
// with duplicates, whether or not they are registered.
func References(content string) []string {
	var out []string
	for _, m := range fragmentRefRe.FindAllStringSubmatch(content, -1) {
		out = append(out, m[1])
	}
	return out
}
