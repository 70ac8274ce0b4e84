// Package graph materializes denormalized result sets into entity graphs.
//
// # Graph Structure
//
// Build expands the relationship members reachable from a root type into
// an arena of nodes in depth-first preorder:
//
//	type Graph struct {
//	    Nodes []*Node // Nodes[0] is the root
//	}
//
// A node whose type already appears among its ancestors is a parent
// reference: it is not expanded, and its One member resolves to the
// nearest ancestor instance of that type.
//
// # Materialization
//
// A Materializer consumes rows. For each row it visits the joined nodes
// depth-first, computes each node's GroupingKey (own primary key values,
// plus the parent key for One relationships) and either instantiates a new
// entity or positions the node on the cached one.
//
//	g, err := graph.Build(reflect.TypeFor[Order](), registry)
//	plan := graph.NewPlan(g, 0, nil, false)
//	m := graph.NewMaterializer(g, plan, true, nil)
//	for rows.Next() {
//	    if err := m.Process(reader); err != nil {
//	        return err
//	    }
//	}
//	orders := m.Roots().Interface().([]*Order)
package graph
