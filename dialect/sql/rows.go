package sql

import (
	"fmt"

	"golang.org/x/text/cases"
)

// RowReader reads the rows of a result set by ordinal or by
// case-insensitive column name.
type RowReader struct {
	rows    ColumnScanner
	columns []string
	index   map[string]int
	values  []any
	fold    cases.Caser
	err     error
}

// NewRowReader prepares a reader over rows. The caller keeps ownership of
// rows and closes it.
func NewRowReader(rows ColumnScanner) (*RowReader, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: read columns: %w", err)
	}
	r := &RowReader{
		fold:    cases.Fold(),
		rows:    rows,
		columns: columns,
		index:   make(map[string]int, len(columns)),
		values:  make([]any, len(columns)),
	}
	for i, c := range columns {
		k := r.fold.String(c)
		// The first of duplicate names wins.
		if _, ok := r.index[k]; !ok {
			r.index[k] = i
		}
	}
	return r, nil
}

// Next advances to the next row and scans it. It returns false at the end
// of the result set or on error; see Err.
func (r *RowReader) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	dest := make([]any, len(r.values))
	for i := range dest {
		dest[i] = &r.values[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		r.err = fmt.Errorf("dialect/sql: scan row: %w", err)
		return false
	}
	return true
}

// Err returns the first scan or iteration error.
func (r *RowReader) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

// Columns returns the column names of the result set.
func (r *RowReader) Columns() []string { return r.columns }

// Ordinal returns the value of the i-th column of the current row.
func (r *RowReader) Ordinal(i int) any { return r.values[i] }

// Value returns the value of the named column of the current row and
// whether the column exists. Names match case-insensitively.
func (r *RowReader) Value(name string) (any, bool) {
	i, ok := r.index[r.fold.String(name)]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}
