package sqlgraph

import (
	"context"
	"reflect"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/graph"
	"github.com/syssam/relgraph/querylanguage"
	"github.com/syssam/relgraph/schema"
)

// secondary loads the entities of node c related to parent. It runs on a
// fresh engine over the base executor, never on the primary's
// transaction. The result is a []*T of the node's type.
func (e *Engine) secondary(ctx context.Context, spec *QuerySpec, c *graph.Node, parent reflect.Value, chain []reflect.Value) (reflect.Value, error) {
	g := spec.Graph
	rel := c.Relation
	empty := reflect.MakeSlice(reflect.SliceOf(reflect.PointerTo(c.Type)), 0, 0)
	pk := schema.FindColumn(g.Node(c.Parent).Columns, rel.ParentKey)
	if pk == nil {
		return reflect.Value{}, relgraph.Configf(g.Node(c.Parent).Type.Name(), rel.Member, "parent key %q is not a mapped column", rel.ParentKey)
	}
	v := pk.Get(parent)
	if v == nil {
		return empty, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		v = rv.Elem().Interface()
	}
	sub := &QuerySpec{
		Graph:    g,
		Start:    g.Equivalent(c.Index),
		Requests: spec.Requests,
		Flat:     spec.Flat,
		Filter:   querylanguage.EQ(querylanguage.F(rel.ChildKey), querylanguage.V(v)),
		Seeds:    chain,
	}
	e.logger().DebugContext(ctx, "load relationship", "path", c.TypePath, "policy", rel.Policy.String(), "key", v)
	base := &Engine{Exec: e.base(), Base: e.base(), Logger: e.Logger}
	return base.Query(ctx, sub)
}

// prepare installs the loader of the lazy member c of parent.
func (e *Engine) prepare(spec *QuerySpec, c *graph.Node, parent reflect.Value, chain []reflect.Value) {
	d := c.Relation.Deferred(parent)
	if d == nil {
		return
	}
	factory := func() (relgraph.SecondaryContext, error) {
		return &secondaryContext{engine: e, spec: spec, node: c, chain: chain}, nil
	}
	d.Prepare(factory, parent.Interface(), c.TypePath)
}

// secondaryContext runs the query of one lazy relationship.
type secondaryContext struct {
	engine *Engine
	spec   *QuerySpec
	node   *graph.Node
	chain  []reflect.Value
}

// Query implements relgraph.SecondaryContext.
func (s *secondaryContext) Query(ctx context.Context, parent any) (any, error) {
	items, err := s.engine.secondary(ctx, s.spec, s.node, reflect.ValueOf(parent), s.chain)
	if err != nil {
		s.engine.logger().WarnContext(ctx, "lazy relationship load failed", "path", s.node.TypePath, "error", err)
		return nil, err
	}
	return s.node.Relation.Result(items), nil
}

// Close implements relgraph.SecondaryContext. The context borrows pooled
// connections per statement and holds nothing open between them.
func (s *secondaryContext) Close() error { return nil }
