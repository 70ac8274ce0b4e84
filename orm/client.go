package orm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/dialect/sql"
	"github.com/syssam/relgraph/dialect/sql/sqlgraph"
	"github.com/syssam/relgraph/schema"
)

// Client runs queries for the entities of a registry.
type Client struct {
	driver   *sql.Driver
	registry *schema.Registry
	logger   *slog.Logger

	exec  sql.Executor // primary statements
	base  sql.Executor // secondary relationship queries
	begin func(context.Context) (sql.Executor, dialect.Tx, error)
	stats *sql.StatsDriver

	withStats bool
	slow      time.Duration
	debug     bool
}

// Option configures a Client.
type Option func(*Client) error

// WithLogger sets the logger of statements and relationship loads.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) error {
		if l == nil {
			return errors.New("orm: nil logger")
		}
		c.logger = l
		return nil
	}
}

// WithStats records statement statistics, see Client.Stats.
func WithStats() Option {
	return func(c *Client) error {
		c.withStats = true
		return nil
	}
}

// WithSlowThreshold logs statements slower than d at warn level. It
// enables statistics.
func WithSlowThreshold(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("orm: invalid slow query threshold %s", d)
		}
		c.withStats, c.slow = true, d
		return nil
	}
}

// WithDebug logs every statement at debug level.
func WithDebug() Option {
	return func(c *Client) error {
		c.debug = true
		return nil
	}
}

// NewClient returns a client over drv for the entities of reg.
func NewClient(drv *sql.Driver, reg *schema.Registry, opts ...Option) (*Client, error) {
	if drv == nil || reg == nil {
		return nil, errors.New("orm: driver and registry are required")
	}
	c := &Client{driver: drv, registry: reg, logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	var exec sql.Executor = drv
	c.begin = func(ctx context.Context) (sql.Executor, dialect.Tx, error) {
		tx, err := drv.BeginTx(ctx, nil)
		if err != nil {
			return nil, nil, err
		}
		return tx, tx, nil
	}
	if c.withStats {
		c.stats = sql.NewStatsDriver(drv, sql.WithSlowQueryLog(c.logger))
		if c.slow > 0 {
			c.stats.SetSlowThreshold(c.slow)
		}
		exec = c.stats
		c.begin = func(ctx context.Context) (sql.Executor, dialect.Tx, error) {
			tx, err := c.stats.BeginTx(ctx, nil)
			if err != nil {
				return nil, nil, err
			}
			return tx, tx, nil
		}
	}
	if c.debug {
		exec = sql.NewDebugDriver(exec, c.logger)
	}
	c.exec, c.base = exec, exec
	return c, nil
}

// Registry returns the mapping registry of the client.
func (c *Client) Registry() *schema.Registry { return c.registry }

// Dialect returns the SQL dialect of the client.
func (c *Client) Dialect() dialect.Dialect { return c.exec.SQLDialect() }

// Stats returns the statement statistics, if enabled.
func (c *Client) Stats() (sql.StatsSnapshot, bool) {
	if c.stats == nil {
		return sql.StatsSnapshot{}, false
	}
	return c.stats.QueryStats().Stats(), true
}

// ResetStats zeroes the statement statistics, if enabled.
func (c *Client) ResetStats() {
	if c.stats != nil {
		c.stats.QueryStats().Reset()
	}
}

// Close closes the underlying driver.
func (c *Client) Close() error { return c.driver.Close() }

func (c *Client) engine() *sqlgraph.Engine {
	return &sqlgraph.Engine{Exec: c.exec, Base: c.base, Logger: c.logger}
}

// WithTx runs fn with a client bound to a new transaction. The
// transaction commits if fn returns nil and rolls back otherwise.
// Relationship queries run later by lazy members still use the base
// driver, outside the transaction.
func (c *Client) WithTx(ctx context.Context, fn func(tx *Client) error) error {
	exec, tx, err := c.begin(ctx)
	if err != nil {
		return err
	}
	if c.debug {
		exec = sql.NewDebugDriver(exec, c.logger)
	}
	txc := *c
	txc.exec = exec
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(&txc); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("orm: rolling back transaction: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("orm: committing transaction: %w", err)
	}
	return nil
}
