package graph

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/schema"
)

// Node is one entity type reachable from the root through relationship
// members. Nodes live in Graph.Nodes and reference their parent by index.
type Node struct {
	Index     int
	Type      reflect.Type
	Parent    int                            // -1 for the root
	Relation  *schema.RelationshipDescriptor // member of the parent holding this node, nil for the root
	Table     string
	Alias     string // table alias, t<Index>
	Path      string // dotted member path from the root, "" for the root
	TypePath  string // dotted entity type path, e.g. "Order.OrderItem"
	Columns   []*schema.ColumnDescriptor
	Keys      []*schema.ColumnDescriptor // primary key columns
	Relations []*schema.RelationshipDescriptor
	Children  []int
	// ParentRef marks a node whose type already appears among its
	// ancestors. It is not expanded and carries no columns.
	ParentRef bool
}

// IsRoot reports whether n is the graph root.
func (n *Node) IsRoot() bool { return n.Parent < 0 }

// Graph is the arena of nodes, in depth-first preorder.
type Graph struct {
	Nodes []*Node
}

// Root returns the root node.
func (g *Graph) Root() *Node { return g.Nodes[0] }

// Node returns the node at index i.
func (g *Graph) Node(i int) *Node { return g.Nodes[i] }

// Ancestors returns the indices of the strict ancestors of node i, nearest
// first.
func (g *Graph) Ancestors(i int) []int {
	var idx []int
	for p := g.Nodes[i].Parent; p >= 0; p = g.Nodes[p].Parent {
		idx = append(idx, p)
	}
	return idx
}

// Child returns the child of node i stored in member, or nil.
func (g *Graph) Child(i int, member string) *Node {
	for _, c := range g.Nodes[i].Children {
		if g.Nodes[c].Relation.Member == member {
			return g.Nodes[c]
		}
	}
	return nil
}

// Build expands the type graph reachable from root and validates it
// before any query runs.
func Build(root reflect.Type, p schema.Provider) (*Graph, error) {
	for root != nil && root.Kind() == reflect.Pointer {
		root = root.Elem()
	}
	g := &Graph{}
	if err := g.visit(p, root, -1, nil); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) visit(p schema.Provider, t reflect.Type, parent int, rel *schema.RelationshipDescriptor) error {
	n := &Node{
		Index:    len(g.Nodes),
		Type:     t,
		Parent:   parent,
		Relation: rel,
		TypePath: t.Name(),
	}
	n.Alias = "t" + strconv.Itoa(n.Index)
	g.Nodes = append(g.Nodes, n)
	if parent >= 0 {
		pn := g.Nodes[parent]
		pn.Children = append(pn.Children, n.Index)
		n.TypePath = pn.TypePath + "." + t.Name()
		n.Path = rel.Member
		if pn.Path != "" {
			n.Path = pn.Path + "." + rel.Member
		}
		for _, a := range g.Ancestors(n.Index) {
			if g.Nodes[a].Type == t {
				n.ParentRef = true
				return nil
			}
		}
	}
	var err error
	if n.Table, err = p.TableName(t); err != nil {
		return err
	}
	if n.Columns, err = p.Columns(t); err != nil {
		return err
	}
	if n.Relations, err = p.Relationships(t); err != nil {
		return err
	}
	n.Keys = schema.PrimaryKeys(n.Columns)
	for _, r := range n.Relations {
		if err := g.visit(p, r.Target, n.Index, r); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that every node needing identity resolution has a
// primary key: the root, nodes with children and Many children.
func (g *Graph) Validate() error {
	for _, n := range g.Nodes {
		if n.ParentRef || len(n.Keys) > 0 {
			continue
		}
		switch {
		case n.IsRoot():
			return relgraph.Configf(n.Type.Name(), "", "root entity has no primary key")
		case len(n.Children) > 0:
			return relgraph.Configf(n.Type.Name(), "", "entity %s has relationships but no primary key", n.TypePath)
		case n.Relation.Cardinality == schema.Many:
			return relgraph.Configf(n.Type.Name(), n.Relation.Member, "collection entity %s has no primary key", n.TypePath)
		}
	}
	return nil
}

// Field resolves a dotted member path relative to node start, e.g.
// "OrderItems.ProductName", to the node and the column it names. The last
// segment matches a field name, or a column name.
func (g *Graph) Field(start int, path string) (*Node, *schema.ColumnDescriptor, error) {
	n := g.Nodes[start]
	parts := strings.Split(path, ".")
	for _, member := range parts[:len(parts)-1] {
		c := g.Child(n.Index, member)
		if c == nil || c.ParentRef {
			return nil, nil, relgraph.NewCompileError(path, "unknown relationship "+strconv.Quote(member)+" on "+n.Type.Name())
		}
		n = c
	}
	name := parts[len(parts)-1]
	if c := schema.FindColumn(n.Columns, name); c != nil {
		return n, c, nil
	}
	for _, c := range n.Columns {
		if c.Name == name {
			return n, c, nil
		}
	}
	return nil, nil, relgraph.NewCompileError(path, "unknown member "+strconv.Quote(name)+" on "+n.Type.Name())
}

// Equivalent returns i, or for a parent reference the index of the nearest
// ancestor of the same type, whose expansion it stands for.
func (g *Graph) Equivalent(i int) int {
	n := g.Nodes[i]
	if !n.ParentRef {
		return i
	}
	for _, a := range g.Ancestors(i) {
		if g.Nodes[a].Type == n.Type {
			return a
		}
	}
	return i
}
