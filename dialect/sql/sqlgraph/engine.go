package sqlgraph

import (
	"context"
	"errors"
	"log/slog"
	"reflect"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect/sql"
	"github.com/syssam/relgraph/graph"
	"github.com/syssam/relgraph/querylanguage"
	"github.com/syssam/relgraph/schema"
)

// QuerySpec describes one query execution over an entity graph.
type QuerySpec struct {
	Graph *graph.Graph
	// Start is the node whose entities are returned; 0 for the root.
	Start int
	// Requests selects the relationships to load. Nil selects all of them,
	// an empty slice none.
	Requests []graph.LoadRequest
	// Flat loads the start node only. Lazy members are still prepared.
	Flat bool

	Table   string
	View    string
	Where   *sql.WhereBuilder
	Sort    *sql.SortBuilder
	Skip    int
	Take    int
	Paged   bool
	Raw     string
	RawArgs []any

	// Filter restricts the start node, ANDed with Where.
	Filter querylanguage.P
	// Seeds hold the instances of the start node's ancestors, indexed by
	// node, for resolving parent references.
	Seeds []reflect.Value
}

// Plan classifies the nodes of the spec.
func (s *QuerySpec) Plan() *graph.Plan {
	return graph.NewPlan(s.Graph, s.Start, s.Requests, s.Flat)
}

// Builder returns the statement builder of the spec.
func (s *QuerySpec) Builder(exec sql.Executor, plan *graph.Plan) *sql.QueryBuilder {
	b := sql.NewQueryBuilder(exec.SQLDialect(), s.Graph, plan).
		Table(s.Table).
		FromView(s.View).
		Where(s.Where).
		OrderBy(s.Sort).
		Filter(s.Filter)
	if s.Paged {
		b.Page(s.Skip, s.Take)
	}
	if s.Raw != "" {
		b.Raw(s.Raw, s.RawArgs...)
	}
	return b
}

// Engine runs query specs and orchestrates relationship loading.
type Engine struct {
	// Exec runs the primary statement, possibly inside a transaction.
	Exec sql.Executor
	// Base runs secondary relationship queries. It defaults to Exec and
	// must not be bound to a transaction.
	Base sql.Executor
	// Logger receives statement and relationship load logs.
	Logger *slog.Logger
}

// NewEngine returns an engine running every statement on exec.
func NewEngine(exec sql.Executor, logger *slog.Logger) *Engine {
	return &Engine{Exec: exec, Base: exec, Logger: logger}
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Engine) base() sql.Executor {
	if e.Base == nil {
		return e.Exec
	}
	return e.Base
}

// Compile returns the statement of spec without executing it.
func (e *Engine) Compile(spec *QuerySpec) (string, []any, error) {
	if err := spec.Graph.Validate(); err != nil {
		return "", nil, err
	}
	return spec.Builder(e.Exec, spec.Plan()).Query()
}

// Query runs spec and returns the materialized entities of the start
// node as a []*T. Requested EagerLoaded relationships are loaded before
// it returns; LazyLoaded members are prepared.
func (e *Engine) Query(ctx context.Context, spec *QuerySpec) (reflect.Value, error) {
	plan := spec.Plan()
	b := spec.Builder(e.Exec, plan)
	query, args, err := b.Query()
	if err != nil {
		return reflect.Value{}, err
	}
	start := spec.Graph.Node(spec.Start)
	e.logger().DebugContext(ctx, "query", "sql", query, "args", args, "type", start.TypePath, "graph", !plan.Flat)

	var (
		m     = graph.NewMaterializer(spec.Graph, plan, b.AltNames(), spec.Seeds)
		loads []*eagerLoad
	)
	children := childIndex(spec.Graph, plan)
	m.OnCreate(func(n *graph.Node, entity reflect.Value) error {
		for _, ci := range children[n.Index] {
			c := spec.Graph.Node(ci)
			if c.Relation.Policy == schema.LazyLoaded {
				e.prepare(spec, c, entity, m.Chain())
				continue
			}
			loads = append(loads, &eagerLoad{node: c, parent: entity, chain: m.Chain()})
		}
		return nil
	})
	if err := e.scan(ctx, query, args, m); err != nil {
		if relgraph.IsConfigError(err) {
			return reflect.Value{}, err
		}
		return reflect.Value{}, relgraph.NewQueryError(start.TypePath, "select", err)
	}
	// Eager relationships run once the primary cursor is closed.
	for _, l := range loads {
		items, err := e.secondary(ctx, spec, l.node, l.parent, l.chain)
		if err != nil {
			return reflect.Value{}, relgraph.NewRelationLoadError(l.node.TypePath, err)
		}
		if err := l.node.Relation.SetResult(l.parent, items); err != nil {
			return reflect.Value{}, relgraph.NewRelationLoadError(l.node.TypePath, err)
		}
	}
	return m.Roots(), nil
}

func (e *Engine) scan(ctx context.Context, query string, args []any, m *graph.Materializer) (rerr error) {
	var rows sql.Rows
	if err := e.Exec.Query(ctx, query, args, &rows); err != nil {
		return err
	}
	defer func() { rerr = sql.CloseRows(&rows, rerr) }()
	r, err := sql.NewRowReader(rows)
	if err != nil {
		return err
	}
	if err := m.Check(r); err != nil {
		return err
	}
	for r.Next() {
		if err := m.Process(r); err != nil {
			return err
		}
	}
	return r.Err()
}

type eagerLoad struct {
	node   *graph.Node
	parent reflect.Value
	chain  []reflect.Value
}

// childIndex lists, per node, its children loaded by secondary queries.
func childIndex(g *graph.Graph, plan *graph.Plan) map[int][]int {
	idx := make(map[int][]int)
	for _, ci := range plan.Eager {
		idx[g.Node(ci).Parent] = append(idx[g.Node(ci).Parent], ci)
	}
	for _, ci := range plan.Lazy {
		idx[g.Node(ci).Parent] = append(idx[g.Node(ci).Parent], ci)
	}
	return idx
}

// Insert writes entity, a pointer to a struct, to table and assigns the
// generated identity to its auto-increment column.
func (e *Engine) Insert(ctx context.Context, table string, columns []*schema.ColumnDescriptor, entity reflect.Value) (rerr error) {
	iq, err := sql.Insert(e.Exec.SQLDialect(), table, columns).Query(entity)
	if err != nil {
		return err
	}
	e.logger().DebugContext(ctx, "insert", "sql", iq.SQL, "args", iq.Args)
	if iq.Identity == nil {
		return WrapConstraintError(e.Exec.Exec(ctx, iq.SQL, iq.Args, nil))
	}
	// The identity statement must run on the connection of the insert.
	conn, release, err := e.Exec.Session(ctx)
	if err != nil {
		return err
	}
	defer func() { rerr = errors.Join(rerr, release()) }()
	query := iq.SQL
	if !iq.Batched {
		if err := conn.Exec(ctx, iq.SQL, iq.Args, nil); err != nil {
			return WrapConstraintError(err)
		}
		query, iq.Args = e.Exec.SQLDialect().IdentityRetrievalText(), []any{}
	}
	id, err := queryScalar(ctx, conn, query, iq.Args)
	if err != nil {
		return WrapConstraintError(err)
	}
	if id == nil {
		return relgraph.NewQueryError(entity.Type().String(), "insert", errors.New("no identity returned"))
	}
	return iq.Identity.Set(entity, id)
}

func queryScalar(ctx context.Context, conn sql.Conn, query string, args []any) (v any, rerr error) {
	var rows sql.Rows
	if err := conn.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer func() { rerr = sql.CloseRows(&rows, rerr) }()
	r, err := sql.NewRowReader(rows)
	if err != nil {
		return nil, err
	}
	if !r.Next() {
		return nil, r.Err()
	}
	return r.Ordinal(0), nil
}
