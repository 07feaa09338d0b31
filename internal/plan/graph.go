// Package plan assembles import plans, applies resolutions to them, and gates their commit.
package plan

import (
	"fmt"
	"strings"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
)

// Graph is the container parent graph, indexed by temp id.
type Graph struct {
	parent   map[string]string
	children map[string][]string
	order    []string
}

// Rejection explains why a container cannot be placed in the tree.
type Rejection struct {
	TempID string
	Reason string
}

// NewGraph indexes containers by temp id. Later duplicates of a temp id are ignored.
func NewGraph(containers []model.ImportPlanContainer) *Graph {
	g := &Graph{
		parent:   make(map[string]string, len(containers)),
		children: make(map[string][]string),
		order:    make([]string, 0, len(containers)),
	}
	for _, c := range containers {
		if _, seen := g.parent[c.TempID]; seen {
			continue
		}
		g.parent[c.TempID] = c.ParentTempID
		g.order = append(g.order, c.TempID)
	}
	for _, id := range g.order {
		if p := g.parent[id]; p != "" {
			g.children[p] = append(g.children[p], id)
		}
	}
	return g
}

// Has reports whether the graph contains a container.
func (g *Graph) Has(tempID string) bool {
	_, ok := g.parent[tempID]
	return ok
}

// Levels returns containers grouped by depth: roots first, then their children, and so on.
// Every container in a level depends only on containers in earlier levels.
func (g *Graph) Levels() ([][]string, error) {
	var issues []string
	for _, id := range g.order {
		if p := g.parent[id]; p != "" && !g.Has(p) {
			issues = append(issues, fmt.Sprintf("container %s references unknown parent %s", id, p))
		}
	}
	if len(issues) > 0 {
		return nil, &common.ValidationError{Issues: issues}
	}

	var frontier []string
	for _, id := range g.order {
		if g.parent[id] == "" {
			frontier = append(frontier, id)
		}
	}

	placed := 0
	var levels [][]string
	for len(frontier) > 0 {
		levels = append(levels, frontier)
		placed += len(frontier)

		var next []string
		for _, id := range frontier {
			next = append(next, g.children[id]...)
		}
		frontier = next
	}

	if placed < len(g.order) {
		reached := make(map[string]bool, placed)
		for _, level := range levels {
			for _, id := range level {
				reached[id] = true
			}
		}
		var stuck []string
		for _, id := range g.order {
			if !reached[id] {
				stuck = append(stuck, id)
			}
		}
		return nil, fmt.Errorf("%w: %s", common.ErrGraphCycle, strings.Join(stuck, ", "))
	}

	return levels, nil
}

// Rejections lists every container that cannot be reached from a root, in input order.
// A container is rejected when its parent does not exist, when it sits on a parent cycle,
// or when one of its ancestors was rejected.
func (g *Graph) Rejections() []Rejection {
	reachable := make(map[string]bool, len(g.order))
	var queue []string
	for _, id := range g.order {
		if g.parent[id] == "" {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		reachable[id] = true
		queue = append(queue, g.children[id]...)
	}

	var rejections []Rejection
	for _, id := range g.order {
		if reachable[id] {
			continue
		}
		p := g.parent[id]
		var reason string
		switch {
		case !g.Has(p):
			reason = fmt.Sprintf("parent container %s does not exist", p)
		case g.onCycle(id):
			reason = "container is part of a parent cycle"
		default:
			reason = fmt.Sprintf("ancestor container %s was rejected", p)
		}
		rejections = append(rejections, Rejection{TempID: id, Reason: reason})
	}
	return rejections
}

// Descendants returns every container below tempID, breadth first.
func (g *Graph) Descendants(tempID string) []string {
	var out []string
	seen := map[string]bool{tempID: true}
	queue := append([]string(nil), g.children[tempID]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		queue = append(queue, g.children[id]...)
	}
	return out
}

// onCycle reports whether following parent links from id leads back to id.
func (g *Graph) onCycle(id string) bool {
	current := g.parent[id]
	for steps := 0; current != "" && steps <= len(g.order); steps++ {
		if current == id {
			return true
		}
		current = g.parent[current]
	}
	return false
}
