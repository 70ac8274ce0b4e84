package sql

import (
	"strconv"
	"strings"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/graph"
	"github.com/syssam/relgraph/querylanguage"
	"github.com/syssam/relgraph/schema"
)

// QueryBuilder assembles the SELECT statement of one load plan.
//
// A flat plan selects the start node's columns by name. Otherwise every
// joined node is projected as t<i>.<column> AS <alias> inside a derived
// table q, and predicates and sort keys refer to the aliases. A view
// replaces the start node's table and exposes its columns by alias.
type QueryBuilder struct {
	dialect    dialect.Dialect
	graph      *graph.Graph
	plan       *graph.Plan
	table      string
	view       string
	where      *WhereBuilder
	sort       *SortBuilder
	filter     querylanguage.P
	skip, take int
	paged      bool
	raw        string
	rawArgs    []any
}

// NewQueryBuilder returns a builder for plan over g.
func NewQueryBuilder(d dialect.Dialect, g *graph.Graph, plan *graph.Plan) *QueryBuilder {
	return &QueryBuilder{dialect: d, graph: g, plan: plan}
}

// Table overrides the table of the start node.
func (b *QueryBuilder) Table(name string) *QueryBuilder {
	b.table = name
	return b
}

// FromView reads the start node from a view instead of its table.
func (b *QueryBuilder) FromView(name string) *QueryBuilder {
	b.view = name
	return b
}

// Where sets the predicate clauses.
func (b *QueryBuilder) Where(w *WhereBuilder) *QueryBuilder {
	b.where = w
	return b
}

// OrderBy sets the sort keys.
func (b *QueryBuilder) OrderBy(s *SortBuilder) *QueryBuilder {
	b.sort = s
	return b
}

// Filter adds a predicate ANDed with the Where clauses. It is used to
// restrict secondary relationship queries to one parent.
func (b *QueryBuilder) Filter(p querylanguage.P) *QueryBuilder {
	b.filter = p
	return b
}

// Page limits the result to take roots after skipping skip roots.
func (b *QueryBuilder) Page(skip, take int) *QueryBuilder {
	b.skip, b.take, b.paged = skip, take, true
	return b
}

// Raw replaces the generated statement by query.
func (b *QueryBuilder) Raw(query string, args ...any) *QueryBuilder {
	b.raw, b.rawArgs = query, args
	return b
}

// AltNames reports whether the result set carries the columns under their
// aliases: graph statements and reads from a view.
func (b *QueryBuilder) AltNames() bool { return !b.plan.Flat || b.view != "" }

// Resolver returns the resolver predicates and sort keys of this builder
// are compiled with.
func (b *QueryBuilder) Resolver() Resolver {
	return ResolverFunc(func(path string) (*schema.ColumnDescriptor, string, error) {
		if b.plan.Flat && strings.Contains(path, ".") {
			return nil, "", relgraph.NewCompileError(path, "related members require a graph query")
		}
		n, c, err := b.graph.Field(b.plan.Start, path)
		if err != nil {
			return nil, "", err
		}
		if !b.plan.Has(n.Index) {
			return nil, "", relgraph.NewCompileError(path, "relationship "+strconv.Quote(n.Path)+" is not joined by this query")
		}
		return c, c.ReadName(b.AltNames()), nil
	})
}

// Query returns the statement and its arguments.
func (b *QueryBuilder) Query() (string, []any, error) {
	if b.raw != "" {
		if err := b.checkRaw(); err != nil {
			return "", nil, err
		}
		return b.raw, b.rawArgs, nil
	}
	if b.paged {
		if b.sort.Empty() {
			return "", nil, relgraph.NewConfigError(b.start().Type.Name(), "", "paging requires an explicit sort order")
		}
		if !b.dialect.SupportsWindowPaging() {
			return "", nil, relgraph.Configf(b.start().Type.Name(), "", "dialect %s does not support paging", b.dialect.Name())
		}
		if b.skip < 0 || b.take <= 0 {
			return "", nil, relgraph.Configf(b.start().Type.Name(), "", "invalid page window skip=%d take=%d", b.skip, b.take)
		}
	}
	proj, err := b.projection()
	if err != nil {
		return "", nil, err
	}
	where := b.where.Clone()
	if b.filter != nil {
		where.AndWhere(b.filter)
	}
	params := NewParams(b.dialect)
	c := &ExprCompiler{Dialect: b.dialect, Resolver: b.Resolver(), Params: params}
	var query string
	switch {
	case !b.paged:
		query, err = b.plain(c, proj, where)
	case b.view != "" || len(b.plan.Joined) > 1:
		query, err = b.complexPage(c, proj, where)
	default:
		query, err = b.simplePage(c, proj, where)
	}
	if err != nil {
		return "", nil, err
	}
	return query, params.Args(), nil
}

func (b *QueryBuilder) checkRaw() error {
	var conflict string
	switch {
	case len(b.plan.Joined) > 1:
		conflict = "joined relationships"
	case b.table != "":
		conflict = "a table override"
	case b.view != "":
		conflict = "a view"
	case b.paged:
		conflict = "paging"
	case !b.where.Empty() || b.filter != nil:
		conflict = "predicates"
	case !b.sort.Empty():
		conflict = "sort keys"
	default:
		return nil
	}
	return relgraph.NewConfigError(b.start().Type.Name(), "", "raw SQL cannot be combined with "+conflict)
}

func (b *QueryBuilder) start() *graph.Node { return b.graph.Node(b.plan.Start) }

func (b *QueryBuilder) source() string {
	switch {
	case b.view != "":
		return b.dialect.QuoteToken(b.view)
	case b.table != "":
		return b.dialect.QuoteToken(b.table)
	default:
		return b.dialect.QuoteToken(b.start().Table)
	}
}

// projection renders the statement producing the raw result set, without
// predicates or ordering.
func (b *QueryBuilder) projection() (string, error) {
	if b.plan.Flat {
		if b.view != "" {
			return "SELECT * FROM " + b.source(), nil
		}
		return "SELECT " + b.columns(false) + " FROM " + b.source(), nil
	}
	var (
		cols  []string
		seen  = make(map[string]string)
		joins strings.Builder
	)
	for _, i := range b.plan.Joined {
		n := b.graph.Node(i)
		for _, c := range n.Columns {
			alias := strings.ToLower(c.Alias())
			if owner, ok := seen[alias]; ok {
				return "", relgraph.Configf(n.Type.Name(), c.Field, "column alias %q is already used by %s", c.Alias(), owner)
			}
			seen[alias] = n.Type.Name() + "." + c.Field
			cols = append(cols, n.Alias+"."+b.dialect.QuoteToken(b.sourceName(n, c))+" AS "+b.dialect.QuoteToken(c.Alias()))
		}
		if i == b.plan.Start {
			continue
		}
		on, err := b.joinOn(n)
		if err != nil {
			return "", err
		}
		joins.WriteString(" LEFT JOIN " + b.dialect.QuoteToken(n.Table) + " " + n.Alias + " ON " + on)
	}
	return "SELECT " + strings.Join(cols, ", ") + " FROM " + b.source() + " " + b.start().Alias + joins.String(), nil
}

func (b *QueryBuilder) joinOn(n *graph.Node) (string, error) {
	p := b.graph.Node(n.Parent)
	rel := n.Relation
	pk := schema.FindColumn(p.Columns, rel.ParentKey)
	if pk == nil {
		return "", relgraph.Configf(p.Type.Name(), rel.Member, "parent key %q is not a mapped column", rel.ParentKey)
	}
	ck := schema.FindColumn(n.Columns, rel.ChildKey)
	if ck == nil {
		return "", relgraph.Configf(p.Type.Name(), rel.Member, "child key %q is not a mapped column of %s", rel.ChildKey, n.Type.Name())
	}
	return p.Alias + "." + b.dialect.QuoteToken(b.sourceName(p, pk)) + " = " + n.Alias + "." + b.dialect.QuoteToken(ck.Name), nil
}

// sourceName is the name of c in the relation n is read from.
func (b *QueryBuilder) sourceName(n *graph.Node, c *schema.ColumnDescriptor) string {
	return c.ReadName(b.view != "" && n.Index == b.plan.Start)
}

// columns lists the start node's columns, by name or by alias.
func (b *QueryBuilder) columns(alias bool) string {
	cols := make([]string, 0, len(b.start().Columns))
	for _, c := range b.start().Columns {
		cols = append(cols, b.dialect.QuoteToken(c.ReadName(alias)))
	}
	return strings.Join(cols, ", ")
}

// orderKeys renders the final sort keys of a graph statement: the sort
// keys, followed by the key aliases of the joined nodes not sorted on
// already, so children of one parent arrive in a stable order.
func (b *QueryBuilder) orderKeys(c *ExprCompiler) (string, error) {
	var keys []string
	if !b.sort.Empty() {
		k, err := b.sort.Keys(c)
		if err != nil {
			return "", err
		}
		keys = append(keys, k)
	}
	sorted := make(map[string]bool)
	for _, k := range keys {
		for _, part := range strings.Split(k, ",") {
			sorted[strings.TrimSuffix(strings.TrimSpace(part), " DESC")] = true
		}
	}
	for _, i := range b.plan.Joined {
		for _, col := range b.graph.Node(i).Keys {
			if t := c.Token(col.Alias()); !sorted[t] {
				sorted[t] = true
				keys = append(keys, t)
			}
		}
	}
	return strings.Join(keys, ","), nil
}

func (b *QueryBuilder) plain(c *ExprCompiler, proj string, where *WhereBuilder) (string, error) {
	var q strings.Builder
	if b.plan.Flat {
		q.WriteString(proj)
	} else {
		q.WriteString("SELECT * FROM (" + proj + ") q")
	}
	if !where.Empty() {
		w, err := where.SQL(c)
		if err != nil {
			return "", err
		}
		q.WriteString(" WHERE " + w)
	}
	order, err := b.sort.SQL(c)
	if err != nil {
		return "", err
	}
	if !b.plan.Flat {
		keys, err := b.orderKeys(c)
		if err != nil {
			return "", err
		}
		if order = ""; keys != "" {
			order = "ORDER BY " + keys
		}
	}
	if order != "" {
		q.WriteString(" " + order)
	}
	return q.String(), nil
}

func (b *QueryBuilder) window() string {
	return "BETWEEN " + strconv.Itoa(b.skip+1) + " AND " + strconv.Itoa(b.skip+b.take)
}

func (b *QueryBuilder) simplePage(c *ExprCompiler, proj string, where *WhereBuilder) (string, error) {
	var (
		cols   = b.columns(b.AltNames())
		inner  = cols
		source = b.source()
	)
	if !b.plan.Flat {
		inner, source = "q.*", "("+proj+") q"
	}
	keys, err := b.sort.Keys(c)
	if err != nil {
		return "", err
	}
	var q strings.Builder
	q.WriteString("WITH RowNumCTE AS (SELECT " + inner + ", ROW_NUMBER() OVER (ORDER BY " + keys + ") AS RowNumber FROM " + source)
	if !where.Empty() {
		w, err := where.SQL(c)
		if err != nil {
			return "", err
		}
		q.WriteString(" WHERE " + w)
	}
	q.WriteString(") SELECT " + cols + " FROM RowNumCTE WHERE RowNumber " + b.window() + " ORDER BY RowNumber")
	return q.String(), nil
}

func (b *QueryBuilder) complexPage(c *ExprCompiler, proj string, where *WhereBuilder) (string, error) {
	pks := b.start().Keys
	if len(pks) == 0 {
		return "", relgraph.NewConfigError(b.start().Type.Name(), "", "paging requires a primary key")
	}
	qc := *c
	qc.Qualifier = "q"
	var (
		part = make([]string, len(pks))
		keys = make([]string, len(pks))
		on   = make([]string, len(pks))
	)
	for i, pk := range pks {
		name := b.dialect.QuoteToken(pk.ReadName(b.AltNames()))
		part[i], keys[i], on[i] = "q."+name, name, "q."+name+" = r."+name
	}
	qsort, err := b.sort.Keys(&qc)
	if err != nil {
		return "", err
	}
	final := qsort
	if !b.plan.Flat {
		if final, err = b.orderKeys(&qc); err != nil {
			return "", err
		}
	}
	rsort, err := b.sort.Keys(c)
	if err != nil {
		return "", err
	}
	var q strings.Builder
	q.WriteString("WITH q AS (" + proj + "), RowNumCTE AS (SELECT q.*, ROW_NUMBER() OVER (PARTITION BY " + strings.Join(part, ", ") + " ORDER BY " + qsort + ") AS GroupRow FROM q")
	var w2 string
	if !where.Empty() {
		w, err := where.SQL(&qc)
		if err != nil {
			return "", err
		}
		q.WriteString(" WHERE " + w)
		// Rows of a selected root that fail the predicate are excluded
		// again from the final select; numbering continues.
		if w2, err = where.SQL(&qc); err != nil {
			return "", err
		}
	}
	q.WriteString("), RankCTE AS (SELECT " + strings.Join(keys, ", ") + ", ROW_NUMBER() OVER (ORDER BY " + rsort + ") AS RowNumber FROM RowNumCTE WHERE GroupRow = 1)")
	q.WriteString(" SELECT q.* FROM q INNER JOIN RankCTE r ON " + strings.Join(on, " AND ") + " WHERE r.RowNumber " + b.window())
	if w2 != "" {
		q.WriteString(" AND (" + w2 + ")")
	}
	q.WriteString(" ORDER BY r.RowNumber, " + final)
	return q.String(), nil
}
