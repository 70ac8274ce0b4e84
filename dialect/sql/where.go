package sql

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/querylanguage"
	"github.com/syssam/relgraph/schema"
)

// Resolver maps a member path of a predicate or sort key to the column it
// names and the column name to emit, unquoted.
type Resolver interface {
	Resolve(path string) (*schema.ColumnDescriptor, string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(path string) (*schema.ColumnDescriptor, string, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(path string) (*schema.ColumnDescriptor, string, error) {
	return f(path)
}

// Params collects the positional parameters of one statement.
type Params struct {
	dialect dialect.Dialect
	args    []any
}

// NewParams returns an empty parameter list for d.
func NewParams(d dialect.Dialect) *Params {
	return &Params{dialect: d}
}

// Add appends v and returns its placeholder.
func (p *Params) Add(v any) string {
	p.args = append(p.args, v)
	return p.dialect.Placeholder(len(p.args) - 1)
}

// Args returns the collected parameters.
func (p *Params) Args() []any { return p.args }

// CompiledPredicate is a predicate translated to SQL.
type CompiledPredicate struct {
	SQL  string
	Args []any
}

// Compile translates p into a SQL boolean expression with its own
// parameter list.
func Compile(d dialect.Dialect, r Resolver, p querylanguage.P) (*CompiledPredicate, error) {
	params := NewParams(d)
	c := &ExprCompiler{Dialect: d, Resolver: r, Params: params}
	s, err := c.Predicate(p)
	if err != nil {
		return nil, err
	}
	return &CompiledPredicate{SQL: s, Args: params.Args()}, nil
}

// ExprCompiler translates predicate trees. Parameters are appended to
// Params, so several expressions of one statement number continuously.
type ExprCompiler struct {
	Dialect   dialect.Dialect
	Resolver  Resolver
	Params    *Params
	Qualifier string // optional table qualifier of column tokens
}

var cmpOps = map[querylanguage.Op]string{
	querylanguage.OpEQ:  "=",
	querylanguage.OpNEQ: "<>",
	querylanguage.OpGT:  ">",
	querylanguage.OpGTE: ">=",
	querylanguage.OpLT:  "<",
	querylanguage.OpLTE: "<=",
}

// likePatterns maps the supported string methods to the wildcard
// placement around the bound value.
var likePatterns = map[string][2]bool{
	querylanguage.FuncContains:  {true, true},
	"Contains":                  {true, true},
	querylanguage.FuncHasPrefix: {false, true},
	"StartsWith":                {false, true},
	querylanguage.FuncHasSuffix: {true, false},
	"EndsWith":                  {true, false},
}

// Predicate compiles p.
func (c *ExprCompiler) Predicate(p querylanguage.P) (string, error) {
	switch e := p.(type) {
	case *querylanguage.BinaryExpr:
		switch e.Op {
		case querylanguage.OpAnd, querylanguage.OpOr:
			return c.logical(e.Op, e.X, e.Y)
		case querylanguage.OpIn, querylanguage.OpNotIn:
			return c.in(e)
		}
		return c.compare(e)
	case *querylanguage.NaryExpr:
		if e.Op != querylanguage.OpAnd && e.Op != querylanguage.OpOr {
			return "", relgraph.NewCompileError(e.String(), "unsupported n-ary operator "+e.Op.String())
		}
		return c.logical(e.Op, e.Xs...)
	case *querylanguage.UnaryExpr:
		x, ok := e.X.(querylanguage.P)
		if e.Op != querylanguage.OpNot || !ok {
			return "", relgraph.NewCompileError(e.String(), "unsupported unary operator "+e.Op.String())
		}
		s, err := c.Predicate(x)
		if err != nil {
			return "", err
		}
		return "NOT (" + s + ")", nil
	case *querylanguage.CallExpr:
		return c.call(e)
	case nil:
		return "", relgraph.NewCompileError("", "nil predicate")
	default:
		return "", relgraph.NewCompileError(p.String(), fmt.Sprintf("unsupported expression %T", p))
	}
}

func (c *ExprCompiler) logical(op querylanguage.Op, xs ...querylanguage.Expr) (string, error) {
	sep := " AND "
	if op == querylanguage.OpOr {
		sep = " OR "
	}
	parts := make([]string, len(xs))
	for i, x := range xs {
		p, ok := x.(querylanguage.P)
		if !ok {
			return "", relgraph.NewCompileError(x.String(), "operand is not a predicate")
		}
		s, err := c.Predicate(p)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (c *ExprCompiler) compare(e *querylanguage.BinaryExpr) (string, error) {
	op, ok := cmpOps[e.Op]
	if !ok {
		return "", relgraph.NewCompileError(e.String(), "unsupported operator "+e.Op.String())
	}
	x, y := e.X, e.Y
	xnull, err := isNull(x)
	if err != nil {
		return "", relgraph.NewCompileError(e.String(), err.Error())
	}
	ynull, err := isNull(y)
	if err != nil {
		return "", relgraph.NewCompileError(e.String(), err.Error())
	}
	if xnull {
		x, y, ynull = y, x, xnull
	}
	if ynull {
		if e.Op != querylanguage.OpEQ && e.Op != querylanguage.OpNEQ {
			return "", relgraph.NewCompileError(e.String(), "null can only be compared with == or !=")
		}
		col, _, err := c.operand(x, nil)
		if err != nil {
			return "", err
		}
		if e.Op == querylanguage.OpEQ {
			return col + " IS NULL", nil
		}
		return col + " IS NOT NULL", nil
	}
	// Values bound against a column go through its converter.
	conv := c.column(x)
	if conv == nil {
		conv = c.column(y)
	}
	l, _, err := c.operand(x, conv)
	if err != nil {
		return "", err
	}
	r, _, err := c.operand(y, conv)
	if err != nil {
		return "", err
	}
	return l + " " + op + " " + r, nil
}

func (c *ExprCompiler) in(e *querylanguage.BinaryExpr) (string, error) {
	col, cd, err := c.operand(e.X, nil)
	if err != nil {
		return "", err
	}
	v, ok := e.Y.(*querylanguage.Value)
	if !ok {
		return "", relgraph.NewCompileError(e.String(), "right operand of "+e.Op.String()+" must be a list")
	}
	rv := reflect.ValueOf(v.V)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return "", relgraph.NewCompileError(e.String(), "right operand of "+e.Op.String()+" must be a list")
	}
	if rv.Len() == 0 {
		if e.Op == querylanguage.OpIn {
			return "1 = 0", nil
		}
		return "1 = 1", nil
	}
	ps := make([]string, rv.Len())
	for i := range ps {
		p, err := c.param(rv.Index(i).Interface(), cd)
		if err != nil {
			return "", relgraph.NewCompileError(e.String(), err.Error())
		}
		ps[i] = p
	}
	op := " IN ("
	if e.Op == querylanguage.OpNotIn {
		op = " NOT IN ("
	}
	return col + op + strings.Join(ps, ", ") + ")", nil
}

func (c *ExprCompiler) call(e *querylanguage.CallExpr) (string, error) {
	wild, ok := likePatterns[e.Func]
	if !ok {
		return "", relgraph.NewCompileError(e.String(), "unsupported method "+strconv.Quote(e.Func))
	}
	if len(e.Args) != 2 {
		return "", relgraph.NewCompileError(e.String(), fmt.Sprintf("%s expects 2 arguments, got %d", e.Func, len(e.Args)))
	}
	col, _, err := c.operand(e.Args[0], nil)
	if err != nil {
		return "", err
	}
	p, _, err := c.operand(e.Args[1], nil)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, 3)
	if wild[0] {
		parts = append(parts, "'%'")
	}
	parts = append(parts, p)
	if wild[1] {
		parts = append(parts, "'%'")
	}
	return col + " LIKE " + c.Dialect.Concat(parts...), nil
}

// column returns the descriptor x resolves to, or nil.
func (c *ExprCompiler) column(x querylanguage.Expr) *schema.ColumnDescriptor {
	f, ok := x.(*querylanguage.Field)
	if !ok {
		return nil
	}
	cd, _, err := c.Resolver.Resolve(f.Name)
	if err != nil {
		return nil
	}
	return cd
}

// operand renders a column token or a bound parameter.
func (c *ExprCompiler) operand(x querylanguage.Expr, conv *schema.ColumnDescriptor) (string, *schema.ColumnDescriptor, error) {
	switch x := x.(type) {
	case *querylanguage.Field:
		cd, name, err := c.Resolver.Resolve(x.Name)
		if err != nil {
			return "", nil, err
		}
		return c.Token(name), cd, nil
	case *querylanguage.Value:
		p, err := c.param(x.V, conv)
		if err != nil {
			return "", nil, relgraph.NewCompileError(x.String(), err.Error())
		}
		return p, nil, nil
	case *querylanguage.Capture:
		v, err := x.Eval()
		if err != nil {
			return "", nil, relgraph.NewCompileError(x.String(), err.Error())
		}
		p, err := c.param(v, conv)
		if err != nil {
			return "", nil, relgraph.NewCompileError(x.String(), err.Error())
		}
		return p, nil, nil
	case nil:
		return "", nil, relgraph.NewCompileError("", "missing operand")
	default:
		return "", nil, relgraph.NewCompileError(x.String(), fmt.Sprintf("unsupported operand %T", x))
	}
}

func (c *ExprCompiler) param(v any, conv *schema.ColumnDescriptor) (string, error) {
	if conv != nil {
		cv, err := conv.Param(v)
		if err != nil {
			return "", err
		}
		v = cv
	}
	return c.Params.Add(v), nil
}

// Token quotes a column name, prefixed by the qualifier if any.
func (c *ExprCompiler) Token(name string) string {
	if c.Qualifier != "" {
		return c.Qualifier + "." + c.Dialect.QuoteToken(name)
	}
	return c.Dialect.QuoteToken(name)
}

func isNull(x querylanguage.Expr) (bool, error) {
	switch x := x.(type) {
	case *querylanguage.Value:
		return x == nil || x.V == nil, nil
	case *querylanguage.Capture:
		v, err := x.Eval()
		return v == nil, err
	}
	return false, nil
}

type clause struct {
	or bool
	p  querylanguage.P
}

// WhereBuilder accumulates predicates. Every clause is compiled in
// parentheses and joined to the previous one with AND or OR.
type WhereBuilder struct {
	clauses []clause
}

// Where returns a builder holding p.
func Where(p querylanguage.P) *WhereBuilder {
	return (&WhereBuilder{}).AndWhere(p)
}

// AndWhere appends p with AND.
func (w *WhereBuilder) AndWhere(p querylanguage.P) *WhereBuilder {
	w.clauses = append(w.clauses, clause{p: p})
	return w
}

// OrWhere appends p with OR.
func (w *WhereBuilder) OrWhere(p querylanguage.P) *WhereBuilder {
	w.clauses = append(w.clauses, clause{or: true, p: p})
	return w
}

// Empty reports whether no clause was added.
func (w *WhereBuilder) Empty() bool { return w == nil || len(w.clauses) == 0 }

// Clone returns a copy of w that can be extended independently.
func (w *WhereBuilder) Clone() *WhereBuilder {
	if w == nil {
		return &WhereBuilder{}
	}
	return &WhereBuilder{clauses: append([]clause(nil), w.clauses...)}
}

// SQL compiles the clauses, without the WHERE keyword.
func (w *WhereBuilder) SQL(c *ExprCompiler) (string, error) {
	var b strings.Builder
	for i, cl := range w.clauses {
		s, err := c.Predicate(cl.p)
		if err != nil {
			return "", err
		}
		if i > 0 {
			if cl.or {
				b.WriteString(" OR ")
			} else {
				b.WriteString(" AND ")
			}
		}
		b.WriteString("(" + s + ")")
	}
	return b.String(), nil
}
