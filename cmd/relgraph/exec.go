package main

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/dialect/sql"
	"github.com/syssam/relgraph/orm"
)

func newExecCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "exec <statement> [args...]",
		Short: "Run a statement against the configured database",
		Long: `Run a statement against the database described by a YAML
configuration file and print the returned rows and statement statistics.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := orm.LoadConfig(configPath)
			if err != nil {
				return err
			}
			params := make([]any, len(args)-1)
			for i, a := range args[1:] {
				params[i] = literal(a)
			}
			return run(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], params)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "relgraph.yaml", "path to the configuration file")
	return cmd
}

func run(ctx context.Context, out io.Writer, cfg *orm.Config, statement string, args []any) (rerr error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var opts []sql.StatsOption
	if cfg.SlowQuery > 0 {
		opts = append(opts, sql.WithSlowThreshold(cfg.SlowQuery), sql.WithSlowQueryLog(nil))
	}
	drv, err := open(cfg, opts)
	if err != nil {
		return err
	}
	defer func() { rerr = errors.Join(rerr, drv.Close()) }()
	if returnsRows(statement) {
		err = query(ctx, out, drv, statement, args)
	} else {
		var res sql.Result
		if err = drv.Exec(ctx, statement, args, &res); err == nil {
			n, _ := res.RowsAffected()
			fmt.Fprintf(out, "%d rows affected\n", n)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, drv.QueryStats().Stats())
	return nil
}

// open selects the dialect from the driver name unless the configuration
// names a driver of its own.
func open(cfg *orm.Config, opts []sql.StatsOption) (*sql.StatsDriver, error) {
	if cfg.Driver == "" {
		drv, _, err := sql.OpenWithStats(cfg.Dialect, cfg.DSN, opts...)
		return drv, err
	}
	d, err := dialect.Get(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	db, err := stdsql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return sql.NewStatsDriver(sql.OpenDB(d, db), opts...), nil
}

func returnsRows(statement string) bool {
	fields := strings.Fields(statement)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "PRAGMA", "SHOW", "VALUES", "EXPLAIN":
		return true
	}
	return false
}

func query(ctx context.Context, out io.Writer, drv *sql.StatsDriver, statement string, args []any) (rerr error) {
	var rows sql.Rows
	if err := drv.Query(ctx, statement, args, &rows); err != nil {
		return err
	}
	defer func() { rerr = sql.CloseRows(&rows, rerr) }()
	r, err := sql.NewRowReader(rows)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(r.Columns(), "\t"))
	n := 0
	for r.Next() {
		cells := make([]string, len(r.Columns()))
		for i := range cells {
			cells[i] = format(r.Ordinal(i))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
		n++
	}
	if err := r.Err(); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "(%d rows)\n", n)
	return nil
}

func format(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
