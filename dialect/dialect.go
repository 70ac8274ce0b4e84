package dialect

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/lib/pq"
)

// Dialect names.
const (
	SQLServer = "sqlserver"
	Postgres  = "postgres"
	MySQL     = "mysql"
	SQLite    = "sqlite"
)

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for relgraph clients.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// Dialect describes the SQL text a database expects: identifier quoting,
// positional parameters, string concatenation and identity retrieval.
type Dialect interface {
	// Name returns the dialect name, e.g. "postgres".
	Name() string
	// QuoteToken quotes an identifier. Dotted names are quoted per part.
	QuoteToken(name string) string
	// Placeholder returns the marker for the n-th (0-based) parameter of a
	// statement.
	Placeholder(n int) string
	// Concat joins SQL string expressions.
	Concat(parts ...string) string
	// IdentityRetrievalText returns the statement that reads the identity
	// generated by the last insert on the same connection.
	IdentityRetrievalText() string
	// SupportsBatchedIdentity reports whether the identity statement can be
	// appended to the insert in a single command.
	SupportsBatchedIdentity() bool
	// SupportsWindowPaging reports whether ROW_NUMBER() OVER (...) is
	// available for paging.
	SupportsWindowPaging() bool
}

type sqlServer struct{}

func (sqlServer) Name() string                  { return SQLServer }
func (sqlServer) QuoteToken(name string) string { return quoteParts(name, "[", "]", "]]") }
func (sqlServer) Placeholder(n int) string      { return "@P" + strconv.Itoa(n) }
func (sqlServer) Concat(parts ...string) string { return strings.Join(parts, " + ") }
func (sqlServer) IdentityRetrievalText() string { return "SELECT SCOPE_IDENTITY()" }
func (sqlServer) SupportsBatchedIdentity() bool { return true }
func (sqlServer) SupportsWindowPaging() bool    { return true }

type postgres struct{}

func (postgres) Name() string { return Postgres }

func (postgres) QuoteToken(name string) string {
	if isQuoted(name, `"`, `"`) {
		return name
	}
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = pq.QuoteIdentifier(parts[i])
	}
	return strings.Join(parts, ".")
}

func (postgres) Placeholder(n int) string      { return "$" + strconv.Itoa(n+1) }
func (postgres) Concat(parts ...string) string { return strings.Join(parts, " || ") }
func (postgres) IdentityRetrievalText() string { return "SELECT LASTVAL()" }
func (postgres) SupportsBatchedIdentity() bool { return false }
func (postgres) SupportsWindowPaging() bool    { return true }

type mysql struct{}

func (mysql) Name() string                  { return MySQL }
func (mysql) QuoteToken(name string) string { return quoteParts(name, "`", "`", "``") }
func (mysql) Placeholder(int) string        { return "?" }
func (mysql) Concat(parts ...string) string { return "CONCAT(" + strings.Join(parts, ", ") + ")" }
func (mysql) IdentityRetrievalText() string { return "SELECT LAST_INSERT_ID()" }
func (mysql) SupportsBatchedIdentity() bool { return false }
func (mysql) SupportsWindowPaging() bool    { return true }

type sqlite struct{}

func (sqlite) Name() string                  { return SQLite }
func (sqlite) QuoteToken(name string) string { return quoteParts(name, `"`, `"`, `""`) }
func (sqlite) Placeholder(int) string        { return "?" }
func (sqlite) Concat(parts ...string) string { return strings.Join(parts, " || ") }
func (sqlite) IdentityRetrievalText() string { return "SELECT last_insert_rowid()" }
func (sqlite) SupportsBatchedIdentity() bool { return false }
func (sqlite) SupportsWindowPaging() bool    { return true }

func quoteParts(name, open, end, escaped string) string {
	if isQuoted(name, open, end) {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = open + strings.ReplaceAll(p, end, escaped) + end
	}
	return strings.Join(parts, ".")
}

func isQuoted(name, open, end string) bool {
	return len(name) > len(open)+len(end) && strings.HasPrefix(name, open) && strings.HasSuffix(name, end)
}

var (
	mu       sync.RWMutex
	dialects = map[string]Dialect{
		SQLServer: sqlServer{},
		Postgres:  postgres{},
		MySQL:     mysql{},
		SQLite:    sqlite{},
	}
	aliases = map[string]string{
		"mssql":   SQLServer,
		"pgx":     Postgres,
		"sqlite3": SQLite,
	}
)

// Register makes a dialect available by name. It replaces any dialect
// previously registered under the same name.
func Register(d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[d.Name()] = d
}

// Get returns the dialect registered under name. Common database/sql
// driver names ("mssql", "pgx", "sqlite3") are accepted as aliases.
func Get(name string) (Dialect, error) {
	mu.RLock()
	defer mu.RUnlock()
	key := strings.ToLower(name)
	if a, ok := aliases[key]; ok {
		key = a
	}
	if d, ok := dialects[key]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("dialect: unknown dialect %q", name)
}

// Names returns the registered dialect names in a stable order: the
// built-in dialects first, then registered ones sorted by name.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	var extra []string
	for n := range dialects {
		switch n {
		case SQLServer, Postgres, MySQL, SQLite:
		default:
			extra = append(extra, n)
		}
	}
	slices.Sort(extra)
	return append([]string{SQLServer, Postgres, MySQL, SQLite}, extra...)
}
