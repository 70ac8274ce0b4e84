package graph

import (
	"reflect"
	"slices"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/schema"
)

// Materializer turns the rows of one execution into entities. It keeps the
// identity cache of every joined node and the instance each node is
// currently positioned on.
type Materializer struct {
	g       *Graph
	plan    *Plan
	useAlt  bool
	current []reflect.Value
	keys    []GroupingKey
	seen    []map[string]reflect.Value
	init    []bool
	refs    []bool
	roots   reflect.Value
	row     int64
	created func(*Node, reflect.Value) error
}

// NewMaterializer returns a materializer for plan. Seeds, indexed by node,
// hold the instances of the ancestors of the start node so parent
// references below it resolve; it may be nil.
func NewMaterializer(g *Graph, plan *Plan, useAlt bool, seeds []reflect.Value) *Materializer {
	m := &Materializer{
		g:       g,
		plan:    plan,
		useAlt:  useAlt,
		current: make([]reflect.Value, len(g.Nodes)),
		keys:    make([]GroupingKey, len(g.Nodes)),
		seen:    make([]map[string]reflect.Value, len(g.Nodes)),
		init:    make([]bool, len(g.Nodes)),
		refs:    make([]bool, len(g.Nodes)),
		roots:   reflect.MakeSlice(reflect.SliceOf(reflect.PointerTo(g.Nodes[plan.Start].Type)), 0, 0),
	}
	copy(m.current, seeds)
	for _, i := range slices.Concat(plan.Joined, plan.Eager, plan.ParentRefs) {
		m.init[i] = true
	}
	for _, i := range plan.ParentRefs {
		m.refs[i] = true
	}
	return m
}

// OnCreate registers fn to be called for every new entity, after it was
// linked to its parent.
func (m *Materializer) OnCreate(fn func(n *Node, entity reflect.Value) error) {
	m.created = fn
}

// Roots returns the entities of the start node in first-seen order, as a
// []*T.
func (m *Materializer) Roots() reflect.Value { return m.roots }

// Chain returns a copy of the current instances, indexed by node.
func (m *Materializer) Chain() []reflect.Value { return slices.Clone(m.current) }

// Check verifies that the result set carries the key columns of every
// joined node. It needs the column set only and runs before the first
// row is read.
func (m *Materializer) Check(row Row) error {
	for _, i := range m.plan.Joined {
		if err := m.checkKeys(m.g.Nodes[i], row); err != nil {
			return err
		}
	}
	return nil
}

func (m *Materializer) checkKeys(n *Node, row Row) error {
	for _, c := range n.Keys {
		if _, ok := row.Value(c.ReadName(m.useAlt)); !ok {
			return relgraph.Configf(n.Type.Name(), c.Field, "key column %q missing from result set", c.ReadName(m.useAlt))
		}
	}
	return nil
}

// ScanRow computes the grouping key of n for row and reports whether no
// entity with that key was seen at n before. A null key is never new.
//
// A start node without primary key is the One side of a secondary query:
// each row that is not entirely NULL is an entity of its own.
func (m *Materializer) ScanRow(n *Node, row Row) (bool, GroupingKey, error) {
	if err := m.checkKeys(n, row); err != nil {
		return false, nil, err
	}
	var parent GroupingKey
	switch {
	case n.Index != m.plan.Start:
		parent = m.keys[n.Parent]
	case len(n.Keys) == 0:
		parent = GroupingKey{m.row}
	}
	key := KeyOf(n, row, m.useAlt, parent)
	m.keys[n.Index] = key
	if key.IsNull() {
		return false, nil, nil
	}
	_, ok := m.seen[n.Index][key.String()]
	return !ok, key, nil
}

// AddEntity links entity into the graph: appended to the result for the
// start node, appended to the parent's collection for Many and assigned
// for One.
func (m *Materializer) AddEntity(n *Node, entity reflect.Value) error {
	if n.Index == m.plan.Start {
		m.roots = reflect.Append(m.roots, entity)
		return nil
	}
	parent := m.current[n.Parent]
	if !parent.IsValid() {
		return nil
	}
	return n.Relation.Link(parent, entity)
}

// Process consumes one row. Joined nodes are visited depth-first: a null
// key skips the node and its subtree, a new key instantiates and links an
// entity, and a seen key positions the node on the cached entity without
// linking it again.
func (m *Materializer) Process(row Row) error {
	m.row++
	for _, i := range m.plan.Joined {
		n := m.g.Nodes[i]
		if i != m.plan.Start && !m.current[n.Parent].IsValid() {
			m.current[i], m.keys[i] = reflect.Value{}, nil
			continue
		}
		isNew, key, err := m.ScanRow(n, row)
		if err != nil {
			return err
		}
		switch {
		case key.IsNull():
			m.current[i] = reflect.Value{}
		case !isNew:
			m.current[i] = m.seen[i][key.String()]
		default:
			e, err := m.instantiate(n, row)
			if err != nil {
				return err
			}
			if m.seen[i] == nil {
				m.seen[i] = make(map[string]reflect.Value)
			}
			m.seen[i][key.String()] = e
			m.current[i] = e
			if err := m.AddEntity(n, e); err != nil {
				return err
			}
			if err := m.resolveRefs(n, e); err != nil {
				return err
			}
			if m.created != nil {
				if err := m.created(n, e); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (m *Materializer) instantiate(n *Node, row Row) (reflect.Value, error) {
	e := reflect.New(n.Type)
	for _, c := range n.Columns {
		v, ok := row.Value(c.ReadName(m.useAlt))
		if !ok {
			continue
		}
		if err := c.Set(e, v); err != nil {
			return reflect.Value{}, err
		}
	}
	for _, ci := range n.Children {
		if !m.init[ci] {
			continue
		}
		if err := m.g.Nodes[ci].Relation.Init(e); err != nil {
			return reflect.Value{}, err
		}
	}
	return e, nil
}

// resolveRefs assigns One parent references of a new entity to the
// instance of the nearest ancestor of the same type.
func (m *Materializer) resolveRefs(n *Node, e reflect.Value) error {
	for _, ci := range n.Children {
		c := m.g.Nodes[ci]
		if !m.refs[ci] || c.Relation.Cardinality != schema.One {
			continue
		}
		for _, a := range m.g.Ancestors(ci) {
			if m.g.Nodes[a].Type != c.Type {
				continue
			}
			if inst := m.current[a]; inst.IsValid() {
				if err := c.Relation.Link(e, inst); err != nil {
					return err
				}
			}
			break
		}
	}
	return nil
}
