package main

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/dialect/sql"
	"github.com/syssam/relgraph/dialect/sql/sqlgraph"
	"github.com/syssam/relgraph/graph"
	"github.com/syssam/relgraph/querylanguage"
	"github.com/syssam/relgraph/schema"
)

type compileOptions struct {
	dialect string
	table   string
	view    string
	columns []string
	keys    []string
	where   []string
	or      []string
	order   []string
	page    int
	size    int
}

func newCompileCommand() *cobra.Command {
	var o compileOptions
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Print the SELECT statement generated for a table",
		Example: `  relgraph compile --dialect sqlserver --table Orders \
    --columns OrderID:int,Customer:string,Total:float64 --key OrderID \
    --where "Customer contains acme" --order -Total --page 2 --size 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			query, args, err := o.compile()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), query)
			for i, a := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "  $%d = %#v\n", i, a)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.dialect, "dialect", dialect.SQLServer, "SQL dialect")
	f.StringVar(&o.table, "table", "", "table name")
	f.StringVar(&o.view, "view", "", "read from a view instead of the table")
	f.StringSliceVar(&o.columns, "columns", nil, "columns as name:type (int, int64, float64, string, bool, time)")
	f.StringSliceVar(&o.keys, "key", nil, "primary key columns")
	f.StringArrayVar(&o.where, "where", nil, `predicate "<column> <op> <value>", ANDed`)
	f.StringArrayVar(&o.or, "or", nil, `predicate "<column> <op> <value>", ORed`)
	f.StringSliceVar(&o.order, "order", nil, "sort columns, prefix with - for descending")
	f.IntVar(&o.page, "page", 0, "page number, 1-based")
	f.IntVar(&o.size, "size", 20, "page size")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("columns")
	return cmd
}

var columnTypes = map[string]reflect.Type{
	"int":     reflect.TypeFor[int](),
	"int64":   reflect.TypeFor[int64](),
	"float64": reflect.TypeFor[float64](),
	"string":  reflect.TypeFor[string](),
	"bool":    reflect.TypeFor[bool](),
	"time":    reflect.TypeFor[time.Time](),
}

// entity builds a struct type with one exported field per column and
// registers it.
func (o *compileOptions) entity() (reflect.Type, *schema.Registry, error) {
	var (
		title  = cases.Title(language.Und, cases.NoLower)
		fields = make([]reflect.StructField, 0, len(o.columns))
		cols   = make([]*schema.ColumnBuilder, 0, len(o.columns))
		keys   = make(map[string]bool, len(o.keys))
	)
	for _, k := range o.keys {
		keys[k] = true
	}
	for _, c := range o.columns {
		name, typ, _ := strings.Cut(c, ":")
		if typ == "" {
			typ = "string"
		}
		t, ok := columnTypes[typ]
		if !ok {
			return nil, nil, fmt.Errorf("column %s: unknown type %q", name, typ)
		}
		field := title.String(strings.NewReplacer("_", "", "-", "").Replace(name))
		fields = append(fields, reflect.StructField{Name: field, Type: t})
		b := schema.Column(field).Name(name)
		if keys[name] {
			b.PrimaryKey()
			delete(keys, name)
		}
		cols = append(cols, b)
	}
	for k := range keys {
		return nil, nil, fmt.Errorf("key %s is not a column", k)
	}
	t := reflect.StructOf(fields)
	reg := schema.NewRegistry()
	reg.Entity(reflect.New(t).Interface()).Table(o.table).Columns(cols...)
	return t, reg, nil
}

func (o *compileOptions) compile() (string, []any, error) {
	d, err := dialect.Get(o.dialect)
	if err != nil {
		return "", nil, err
	}
	t, reg, err := o.entity()
	if err != nil {
		return "", nil, err
	}
	g, err := graph.Build(t, reg)
	if err != nil {
		return "", nil, err
	}
	where := &sql.WhereBuilder{}
	for _, s := range o.where {
		p, err := parsePredicate(s)
		if err != nil {
			return "", nil, err
		}
		where.AndWhere(p)
	}
	for _, s := range o.or {
		p, err := parsePredicate(s)
		if err != nil {
			return "", nil, err
		}
		where.OrWhere(p)
	}
	sort := &sql.SortBuilder{}
	for _, s := range o.order {
		if name, ok := strings.CutPrefix(s, "-"); ok {
			sort.ThenByDescending(name)
		} else {
			sort.ThenBy(s)
		}
	}
	spec := &sqlgraph.QuerySpec{Graph: g, Flat: true, View: o.view, Where: where, Sort: sort}
	if o.page > 0 {
		spec.Paged, spec.Skip, spec.Take = true, (o.page-1)*o.size, o.size
	}
	// Compiling never touches the connection.
	engine := sqlgraph.NewEngine(sql.NewDriver(d, sql.Conn{}), nil)
	return engine.Compile(spec)
}

// parsePredicate parses "<column> <op> <value>". The value "null"
// compares against NULL.
func parsePredicate(s string) (querylanguage.P, error) {
	parts := strings.SplitN(strings.TrimSpace(s), " ", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid predicate %q: expect <column> <op> <value>", s)
	}
	name, op, raw := parts[0], parts[1], strings.TrimSpace(parts[2])
	f := querylanguage.F(name)
	if raw == "null" {
		switch op {
		case "=", "==":
			return querylanguage.FieldNil(name), nil
		case "!=", "<>":
			return querylanguage.FieldNotNil(name), nil
		}
	}
	v := querylanguage.V(literal(raw))
	switch op {
	case "=", "==":
		return querylanguage.EQ(f, v), nil
	case "!=", "<>":
		return querylanguage.NEQ(f, v), nil
	case ">":
		return querylanguage.GT(f, v), nil
	case ">=":
		return querylanguage.GTE(f, v), nil
	case "<":
		return querylanguage.LT(f, v), nil
	case "<=":
		return querylanguage.LTE(f, v), nil
	case "contains":
		return querylanguage.FieldContains(name, raw), nil
	case "prefix":
		return querylanguage.FieldHasPrefix(name, raw), nil
	case "suffix":
		return querylanguage.FieldHasSuffix(name, raw), nil
	case "in":
		vs := strings.Split(raw, ",")
		items := make([]any, len(vs))
		for i, x := range vs {
			items[i] = literal(strings.TrimSpace(x))
		}
		return querylanguage.FieldIn(name, items...), nil
	}
	return nil, errors.New("unknown operator " + strconv.Quote(op))
}

func literal(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return strings.Trim(s, `'"`)
}
