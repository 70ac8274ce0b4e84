package graph

import (
	"reflect"
	"strings"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/schema"
)

// Step is one member hop of a load request.
type Step struct {
	Member string
	Type   reflect.Type
}

// LoadRequest names a relationship to load, as the chain of members from
// the root.
type LoadRequest struct {
	Steps []Step
}

// String returns the dotted member path. Requests are equal when their
// strings are.
func (r LoadRequest) String() string {
	parts := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		parts[i] = s.Member
	}
	return strings.Join(parts, ".")
}

// ParseRequest resolves a dotted member path against the graph.
func ParseRequest(g *Graph, path string) (LoadRequest, error) {
	var (
		r LoadRequest
		n = g.Root()
	)
	for _, member := range strings.Split(path, ".") {
		c := g.Child(n.Index, member)
		if c == nil {
			return LoadRequest{}, relgraph.Configf(n.Type.Name(), member, "unknown relationship in load request %q", path)
		}
		r.Steps = append(r.Steps, Step{Member: member, Type: c.Type})
		n = c
	}
	return r, nil
}

// Requested reports whether node n is selected by reqs: a nil slice
// selects every node, otherwise n must lie on the path of a request.
func Requested(n *Node, reqs []LoadRequest) bool {
	if reqs == nil || n.IsRoot() {
		return true
	}
	for _, r := range reqs {
		s := r.String()
		if s == n.Path || strings.HasPrefix(s, n.Path+".") {
			return true
		}
	}
	return false
}

// Plan is the classification of the nodes below a start node for one
// query execution.
type Plan struct {
	Start int
	// Joined lists the start node and every requested node merged into the
	// same result set, in preorder.
	Joined []int
	// ParentRefs lists requested parent references below joined nodes.
	ParentRefs []int
	// Eager lists requested EagerLoaded nodes below joined nodes.
	Eager []int
	// Lazy lists LazyLoaded nodes below joined nodes.
	Lazy []int
	// Flat is set when only the start node is loaded.
	Flat bool
}

// NewPlan classifies the nodes below start. With flat set nothing is
// joined or eagerly loaded; lazy members of the start node are still
// listed.
func NewPlan(g *Graph, start int, reqs []LoadRequest, flat bool) *Plan {
	p := &Plan{Start: start, Flat: flat}
	var walk func(int)
	walk = func(i int) {
		p.Joined = append(p.Joined, i)
		for _, ci := range g.Nodes[i].Children {
			c := g.Nodes[ci]
			switch policy := c.Relation.Policy; {
			case policy == schema.LazyLoaded:
				p.Lazy = append(p.Lazy, ci)
			case flat || !Requested(c, reqs):
			case c.ParentRef:
				p.ParentRefs = append(p.ParentRefs, ci)
			case policy == schema.EagerLoaded:
				p.Eager = append(p.Eager, ci)
			case policy.Joined():
				walk(ci)
			}
		}
	}
	walk(start)
	return p
}

// Has reports whether node i is joined.
func (p *Plan) Has(i int) bool {
	for _, j := range p.Joined {
		if j == i {
			return true
		}
	}
	return false
}
