package sql

import (
	"reflect"
	"strings"

	"github.com/syssam/relgraph"
	"github.com/syssam/relgraph/dialect"
	"github.com/syssam/relgraph/schema"
)

// InsertBuilder builds the INSERT statement of one entity type. Columns
// marked AutoIncrement are not written; their value is read back with the
// dialect's identity statement.
type InsertBuilder struct {
	dialect dialect.Dialect
	table   string
	columns []*schema.ColumnDescriptor
}

// Insert returns a builder for table with the given mapped columns.
func Insert(d dialect.Dialect, table string, columns []*schema.ColumnDescriptor) *InsertBuilder {
	return &InsertBuilder{dialect: d, table: table, columns: columns}
}

// InsertQuery is an INSERT statement bound to one entity.
type InsertQuery struct {
	SQL  string
	Args []any
	// Identity is the auto-increment column to assign after the insert,
	// or nil.
	Identity *schema.ColumnDescriptor
	// Batched reports whether SQL already ends with the identity
	// statement, so the command returns the identity as a row.
	Batched bool
}

// Identity returns the auto-increment column of the builder, or nil.
func (b *InsertBuilder) Identity() *schema.ColumnDescriptor {
	for _, c := range b.columns {
		if c.AutoIncrement {
			return c
		}
	}
	return nil
}

// Query renders the statement for entity, a pointer to a struct.
func (b *InsertBuilder) Query(entity reflect.Value) (*InsertQuery, error) {
	var (
		names  []string
		params = NewParams(b.dialect)
		marks  []string
	)
	for _, c := range b.columns {
		if c.AutoIncrement {
			continue
		}
		v, err := c.WriteValue(entity)
		if err != nil {
			return nil, relgraph.Configf(entity.Type().String(), c.Field, "convert value: %v", err)
		}
		names = append(names, b.dialect.QuoteToken(c.Name))
		marks = append(marks, params.Add(v))
	}
	var q strings.Builder
	q.WriteString("INSERT INTO " + b.dialect.QuoteToken(b.table))
	switch {
	case len(names) > 0:
		q.WriteString(" (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")")
	case b.dialect.Name() == dialect.MySQL:
		q.WriteString(" () VALUES ()")
	default:
		q.WriteString(" DEFAULT VALUES")
	}
	iq := &InsertQuery{Args: params.Args(), Identity: b.Identity()}
	if iq.Identity != nil && b.dialect.SupportsBatchedIdentity() {
		q.WriteString("; " + b.dialect.IdentityRetrievalText())
		iq.Batched = true
	}
	iq.SQL = q.String()
	return iq, nil
}
