// Package dialect provides the database dialect abstraction.
//
// A Dialect describes the SQL text a database expects. The following
// dialects are built in:
//
//   - SQLServer: bracket quoting, @P0 parameters, batched SCOPE_IDENTITY()
//   - Postgres: double-quote quoting (lib/pq), $1 parameters
//   - MySQL: backtick quoting, ? parameters, CONCAT()
//   - SQLite: double-quote quoting, ? parameters
//
// # Driver Interface
//
// The package also defines the Driver interface implemented by
// dialect/sql:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Usage
//
//	d, err := dialect.Get(dialect.Postgres)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	d.QuoteToken("Orders") // "Orders"
//	d.Placeholder(0)       // $1
//
// # Sub-packages
//
//   - dialect/sql: driver, expression compiler and query assembler
//   - dialect/sql/sqlgraph: graph query execution and relationship loading
package dialect
