package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/syssam/relgraph/dialect"
)

// Driver is a dialect.Driver implementation for SQL based databases. It
// carries the dialect describing the SQL text the database expects.
type Driver struct {
	Conn
}

// NewDriver creates a new Driver with the given Conn and dialect.
func NewDriver(d dialect.Dialect, c Conn) *Driver {
	c.dialect = d
	return &Driver{Conn: c}
}

// Open wraps the database/sql.Open method and returns a Driver. The
// driver name selects the dialect, e.g. "sqlite" or "postgres".
func Open(driverName, source string) (*Driver, error) {
	d, err := dialect.Get(driverName)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	return NewDriver(d, Conn{ExecQuerier: db}), nil
}

// OpenDB wraps the given database/sql.DB with a Driver.
func OpenDB(d dialect.Dialect, db *sql.DB) *Driver {
	return NewDriver(d, Conn{ExecQuerier: db})
}

// DB returns the underlying *sql.DB instance.
func (d Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect implements the dialect.Driver method.
func (d Driver) Dialect() string {
	return d.dialect.Name()
}

// Tx starts and returns a transaction.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (*Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: begin transaction: %w", err)
	}
	return &Tx{
		Conn: Conn{ExecQuerier: tx, dialect: d.dialect},
		Tx:   tx,
	}, nil
}

// Session returns a Conn bound to a single pooled connection, used when
// consecutive statements must observe the same session (e.g. reading the
// identity generated by an insert). The returned function releases it.
func (d *Driver) Session(ctx context.Context) (Conn, func() error, error) {
	conn, err := d.DB().Conn(ctx)
	if err != nil {
		return Conn{}, nil, fmt.Errorf("dialect/sql: acquire connection: %w", err)
	}
	return Conn{ExecQuerier: conn, dialect: d.dialect}, conn.Close, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx implements dialect.Tx interface.
type Tx struct {
	Conn
	driver.Tx
}

// Session returns the transaction itself: a transaction is always scoped
// to a single connection.
func (tx *Tx) Session(context.Context) (Conn, func() error, error) {
	return tx.Conn, func() error { return nil }, nil
}

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn implements dialect.ExecQuerier given ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect dialect.Dialect
}

// SQLDialect returns the dialect statements of c are written in.
func (c Conn) SQLDialect() dialect.Dialect {
	return c.dialect
}

// Exec implements the dialect.Exec method.
func (c Conn) Exec(ctx context.Context, query string, args, v any) error {
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	switch v := v.(type) {
	case nil:
		if _, err := c.ExecContext(ctx, query, argv...); err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
	case *sql.Result:
		res, err := c.ExecContext(ctx, query, argv...)
		if err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
		*v = res
	default:
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Result", v)
	}
	return nil
}

// Query implements the dialect.Query method.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	rows, err := c.QueryContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	*vr = Rows{rows}
	return nil
}

var (
	_ dialect.Driver = (*Driver)(nil)
	_ Executor       = (*Driver)(nil)
	_ Executor       = (*Tx)(nil)
)

type (
	// Rows wraps the sql.Rows to avoid locks copy.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)

// ColumnScanner is the interface that wraps the standard
// sql.Rows methods used for scanning database rows.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}

// Sessioner is implemented by drivers that can pin a single connection.
type Sessioner interface {
	Session(ctx context.Context) (Conn, func() error, error)
}

// Executor is the data-access surface the query engine runs on: a driver,
// a transaction, or one of the instrumented wrappers.
type Executor interface {
	dialect.ExecQuerier
	Sessioner
	SQLDialect() dialect.Dialect
}

// CloseRows closes rows and joins the close error with err.
func CloseRows(rows *Rows, err error) error {
	if rows == nil || rows.ColumnScanner == nil {
		return err
	}
	return errors.Join(err, rows.Close())
}
