// Package sql provides the database/sql backed data-access layer and the
// SQL compilers of relgraph.
//
// # Drivers
//
// Driver wraps a *sql.DB together with the dialect.Dialect describing the
// SQL text the database expects. StatsDriver and DebugDriver wrap a driver
// with statement statistics and statement logging. Every executor offers
// Session, which pins one pooled connection for statements that must
// observe the same session, such as reading a generated identity.
//
//	drv, err := sql.Open("sqlite", "file:app.db")
//	stats := sql.NewStatsDriver(drv, sql.WithSlowQueryLog(nil))
//
// # Predicates
//
// WhereBuilder and SortBuilder compile querylanguage expressions. Member
// paths are resolved to columns through a Resolver, values become
// positional parameters of the dialect:
//
//	w := sql.Where(querylanguage.FieldEQ("Name", "acme")).
//		OrWhere(querylanguage.FieldNil("Name"))
//	// ([Name] = @P0) OR ([Name] IS NULL)
//
// # Statements
//
// QueryBuilder assembles the SELECT statement of a graph.Plan. A flat plan
// selects the columns of one table. A graph plan projects the columns of
// every joined node under its alias inside a derived table:
//
//	SELECT * FROM (SELECT t0.[OrderID] AS [OrderID], t2.[ItemID] AS [ItemID]
//	FROM [Orders] t0 LEFT JOIN [Items] t2 ON t0.[OrderID] = t2.[OrderID]) q
//	ORDER BY [OrderID],[ItemID]
//
// Paging numbers the roots with ROW_NUMBER() so that a page always holds
// complete roots, whatever the number of joined child rows.
//
// InsertBuilder writes one entity and reads back its identity.
package sql
