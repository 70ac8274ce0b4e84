package orm

import (
	"context"
	"reflect"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect/sql"
	"github.com/syssam/relgraph/dialect/sql/sqlgraph"
	"github.com/syssam/relgraph/graph"
	"github.com/syssam/relgraph/querylanguage"
	"github.com/syssam/relgraph/schema"
)

// Query is the builder for querying entities of type T.
//
//	orders, err := orm.From[Order](client).
//		Where(querylanguage.FieldEQ("Status", "open")).
//		OrderByDescending("CreatedAt").
//		Include("Items", "Customer").
//		Page(2, 20).
//		All(ctx)
type Query[T any] struct {
	client   *Client
	where    *sql.WhereBuilder
	sort     *sql.SortBuilder
	skip     int
	take     int
	paged    bool
	graph    bool
	includes []string
	table    string
	view     string
	raw      string
	rawArgs  []any
}

// From returns a query for the entities of type T.
func From[T any](c *Client) *Query[T] {
	return &Query[T]{client: c, where: &sql.WhereBuilder{}, sort: &sql.SortBuilder{}}
}

// Where adds a predicate ANDed with the previous ones.
func (q *Query[T]) Where(p querylanguage.P) *Query[T] {
	q.where.AndWhere(p)
	return q
}

// AndWhere is an alias of Where.
func (q *Query[T]) AndWhere(p querylanguage.P) *Query[T] {
	return q.Where(p)
}

// OrWhere adds a predicate ORed with the previous ones.
func (q *Query[T]) OrWhere(p querylanguage.P) *Query[T] {
	q.where.OrWhere(p)
	return q
}

// OrderBy sorts ascending by field, replacing previous sort keys.
func (q *Query[T]) OrderBy(field string) *Query[T] {
	q.sort.OrderBy(field)
	return q
}

// OrderByDescending sorts descending by field, replacing previous sort
// keys.
func (q *Query[T]) OrderByDescending(field string) *Query[T] {
	q.sort.OrderByDescending(field)
	return q
}

// ThenBy adds an ascending sort key.
func (q *Query[T]) ThenBy(field string) *Query[T] {
	q.sort.ThenBy(field)
	return q
}

// ThenByDescending adds a descending sort key.
func (q *Query[T]) ThenByDescending(field string) *Query[T] {
	q.sort.ThenByDescending(field)
	return q
}

// OrderByRaw sorts by a verbatim key list, e.g. "[Total] DESC".
func (q *Query[T]) OrderByRaw(keys string) *Query[T] {
	q.sort.Raw(keys)
	return q
}

// Page selects page n (1-based) of the given size.
func (q *Query[T]) Page(n, size int) *Query[T] {
	if n < 1 {
		n = 1
	}
	q.skip, q.take, q.paged = (n-1)*size, size, true
	return q
}

// Skip skips the first n roots. It requires Take.
func (q *Query[T]) Skip(n int) *Query[T] {
	q.skip, q.paged = n, true
	return q
}

// Take limits the result to n roots.
func (q *Query[T]) Take(n int) *Query[T] {
	q.take, q.paged = n, true
	return q
}

// Graph loads every relationship reachable from T.
func (q *Query[T]) Graph() *Query[T] {
	q.graph = true
	return q
}

// Include loads the relationships on the given dotted member paths,
// e.g. "Items.Product". It implies Graph.
func (q *Query[T]) Include(paths ...string) *Query[T] {
	q.graph = true
	q.includes = append(q.includes, paths...)
	return q
}

// FromView reads the roots from a view.
func (q *Query[T]) FromView(name string) *Query[T] {
	q.view = name
	return q
}

// Table overrides the table of T.
func (q *Query[T]) Table(name string) *Query[T] {
	q.table = name
	return q
}

// Raw runs the given statement instead of a generated one. It cannot be
// combined with relationships, paging, predicates or sort keys.
func (q *Query[T]) Raw(query string, args ...any) *Query[T] {
	q.raw, q.rawArgs = query, args
	return q
}

func (q *Query[T]) spec() (*sqlgraph.QuerySpec, error) {
	g, err := graph.Build(schema.TypeOf[T](), q.client.registry)
	if err != nil {
		return nil, err
	}
	spec := &sqlgraph.QuerySpec{
		Graph:   g,
		Flat:    !q.graph,
		Table:   q.table,
		View:    q.view,
		Where:   q.where,
		Sort:    q.sort,
		Skip:    q.skip,
		Take:    q.take,
		Paged:   q.paged,
		Raw:     q.raw,
		RawArgs: q.rawArgs,
	}
	if q.paged && q.take <= 0 {
		return nil, relgraph.NewConfigError(g.Root().Type.Name(), "", "skip requires take")
	}
	if len(q.includes) > 0 {
		spec.Requests = make([]graph.LoadRequest, 0, len(q.includes))
		for _, path := range q.includes {
			r, err := graph.ParseRequest(g, path)
			if err != nil {
				return nil, err
			}
			spec.Requests = append(spec.Requests, r)
		}
	}
	return spec, nil
}

// SQL returns the statement the query runs, without executing it.
func (q *Query[T]) SQL() (string, []any, error) {
	spec, err := q.spec()
	if err != nil {
		return "", nil, err
	}
	return q.client.engine().Compile(spec)
}

// All runs the query and returns the root entities.
func (q *Query[T]) All(ctx context.Context) ([]*T, error) {
	spec, err := q.spec()
	if err != nil {
		return nil, err
	}
	roots, err := q.client.engine().Query(ctx, spec)
	if err != nil {
		return nil, err
	}
	return roots.Interface().([]*T), nil
}

// First returns the first root entity, or a NotFoundError.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	all, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, relgraph.NewNotFoundError(typeName[T]())
	}
	return all[0], nil
}

// Only returns the single root entity. It fails with a NotFoundError if
// there is none and a NotSingularError if there are several.
func (q *Query[T]) Only(ctx context.Context) (*T, error) {
	all, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	switch len(all) {
	case 1:
		return all[0], nil
	case 0:
		return nil, relgraph.NewNotFoundError(typeName[T]())
	default:
		return nil, relgraph.NewNotSingularError(typeName[T](), len(all))
	}
}

// Insert writes entity and assigns its generated identity.
func Insert[T any](ctx context.Context, c *Client, entity *T) error {
	t := schema.TypeOf[T]()
	cols, err := c.registry.Columns(t)
	if err != nil {
		return err
	}
	table, err := c.registry.TableName(t)
	if err != nil {
		return err
	}
	if err := c.engine().Insert(ctx, table, cols, reflect.ValueOf(entity)); err != nil {
		if relgraph.IsConstraintError(err) || relgraph.IsConfigError(err) {
			return err
		}
		return relgraph.NewQueryError(t.Name(), "insert", err)
	}
	return nil
}

func typeName[T any]() string {
	return schema.TypeOf[T]().Name()
}
