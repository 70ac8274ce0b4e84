package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ql "github.com/syssam/relgraph/querylanguage"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCompileCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "paged",
			args: []string{
				"compile", "--dialect", "sqlserver", "--table", "Orders",
				"--columns", "OrderID:int,Customer:string,Total:float64", "--key", "OrderID",
				"--where", "Customer contains acme", "--order", "-Total", "--page", "2", "--size", "20",
			},
			want: "WITH RowNumCTE AS (SELECT [OrderID], [Customer], [Total], ROW_NUMBER() OVER (ORDER BY [Total] DESC) AS RowNumber " +
				"FROM [Orders] WHERE ([Customer] LIKE '%' + @P0 + '%')) " +
				"SELECT [OrderID], [Customer], [Total] FROM RowNumCTE WHERE RowNumber BETWEEN 21 AND 40 ORDER BY RowNumber\n" +
				"  $0 = \"acme\"\n",
		},
		{
			name: "column_names",
			args: []string{
				"compile", "--dialect", "postgres", "--table", "order_lines",
				"--columns", "order_id:int64,sku,qty:int", "--key", "order_id",
				"--where", "qty >= 2", "--or", "sku in a, b",
			},
			want: `SELECT "order_id", "sku", "qty" FROM "order_lines" WHERE ("qty" >= $1) OR ("sku" IN ($2, $3))` + "\n" +
				"  $0 = 2\n  $1 = \"a\"\n  $2 = \"b\"\n",
		},
		{
			name: "view_null",
			args: []string{
				"compile", "--dialect", "mysql", "--table", "users", "--view", "active_users",
				"--columns", "ID:int,email", "--where", "email != null",
			},
			want: "SELECT * FROM `active_users` WHERE (`email` IS NOT NULL)\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCompileCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"unknown_dialect", []string{"compile", "--dialect", "oracle", "--table", "t", "--columns", "ID:int"}, `unknown dialect "oracle"`},
		{"unknown_type", []string{"compile", "--table", "t", "--columns", "ID:uuid"}, `unknown type "uuid"`},
		{"unknown_key", []string{"compile", "--table", "t", "--columns", "a:int", "--key", "b"}, "key b is not a column"},
		{"no_key", []string{"compile", "--table", "t", "--columns", "a:int"}, "no primary key"},
		{"bad_predicate", []string{"compile", "--table", "t", "--columns", "ID:int", "--where", "ID"}, "expect <column> <op> <value>"},
		{"unknown_column", []string{"compile", "--table", "t", "--columns", "ID:int", "--where", "name = x"}, `unknown member "name"`},
		{"page_without_order", []string{"compile", "--table", "t", "--columns", "ID:int", "--page", "1"}, "explicit sort order"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParsePredicate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want ql.P
	}{
		{"a = 1", ql.EQ(ql.F("a"), ql.V(int64(1)))},
		{"a == 'x y'", ql.EQ(ql.F("a"), ql.V("x y"))},
		{"a <> 1.5", ql.NEQ(ql.F("a"), ql.V(1.5))},
		{"a > true", ql.GT(ql.F("a"), ql.V(true))},
		{"a <= -3", ql.LTE(ql.F("a"), ql.V(int64(-3)))},
		{"a = null", ql.FieldNil("a")},
		{"a prefix ab", ql.FieldHasPrefix("a", "ab")},
		{"a suffix ab", ql.FieldHasSuffix("a", "ab")},
		{"a in 1,2", ql.FieldIn[any]("a", int64(1), int64(2))},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := parsePredicate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	_, err := parsePredicate("a like b")
	assert.ErrorContains(t, err, `unknown operator "like"`)
}

func TestDialectsCommand(t *testing.T) {
	out, err := execute(t, "dialects")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "SELECT SCOPE_IDENTITY()")
	assert.Contains(t, out, "$1")
	assert.Contains(t, out, "CONCAT(a, b)")
}

func TestExecCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "relgraph.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("dialect: sqlite\ndsn: "+filepath.Join(dir, "cli.db")+"\n"), 0o600))

	out, err := execute(t, "exec", "-c", cfg, "CREATE TABLE t (a INTEGER, b TEXT)")
	require.NoError(t, err)
	assert.Contains(t, out, "rows affected")

	out, err = execute(t, "exec", "-c", cfg, "INSERT INTO t (a, b) VALUES (?, ?), (?, NULL)", "1", "x", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "2 rows affected")
	assert.Contains(t, out, "execs=1")

	out, err = execute(t, "exec", "-c", cfg, "SELECT a, b FROM t ORDER BY a")
	require.NoError(t, err)
	assert.Contains(t, out, "1  x")
	assert.Contains(t, out, "2  NULL")
	assert.Contains(t, out, "(2 rows)")
	assert.Contains(t, out, "queries=1")

	_, err = execute(t, "exec", "-c", filepath.Join(dir, "missing.yaml"), "SELECT 1")
	assert.ErrorContains(t, err, "read config")
}
