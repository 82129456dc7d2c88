package parser

import (
	"regexp"
	"strings"

	"github.com/starford/kmdx/internal/models"
)

const fragmentPrefix = "## "

var fenceRe = regexp.MustCompile("^(`{3,})")

// collector accumulates fragment bodies once the fragment region started.
type collector struct {
	res       *models.Resource
	current   models.FragmentID
	active    bool
	inFence   bool
	fenceMark string
}

func newCollector(res *models.Resource) *collector {
	return &collector{res: res}
}

// feed consumes one line of the fragment region.
func (c *collector) feed(line string) {
	if !c.inFence && strings.HasPrefix(line, fragmentPrefix) {
		c.current = c.res.EnsureFragment(strings.TrimSpace(line[len(fragmentPrefix):]))
		c.active = true
		return
	}
	if m := fenceRe.FindStringSubmatch(line); m != nil {
		if c.inFence {
			c.inFence = false
			c.fenceMark = ""
		} else {
			c.inFence = true
			c.fenceMark = m[1]
		}
	}
	if c.active {
		f := c.res.FragmentByID(c.current)
		f.Content += line + "\n"
	}
}
