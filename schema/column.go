package schema

import (
	"fmt"
	"reflect"
)

// ColumnDescriptor maps one struct field to one column. Descriptors are
// immutable once the registry has built them.
type ColumnDescriptor struct {
	Field         string // Go struct field name
	Name          string // column name
	AltName       string // alias used when the column is read from a graph query
	PrimaryKey    bool
	AutoIncrement bool
	NullableWrite bool // write the zero value as NULL
	Converter     Converter
	Type          reflect.Type // Go field type

	index []int
}

// Alias returns the name the column is projected as in graph queries.
func (c *ColumnDescriptor) Alias() string {
	if c.AltName != "" {
		return c.AltName
	}
	return c.Name
}

// ReadName returns the name to read from a result row.
func (c *ColumnDescriptor) ReadName(useAlt bool) string {
	if useAlt {
		return c.Alias()
	}
	return c.Name
}

// Get returns the member value of entity (a struct or a pointer to one).
// Nil pointers read as nil.
func (c *ColumnDescriptor) Get(entity reflect.Value) any {
	v, ok := indirect(entity)
	if !ok {
		return nil
	}
	f, err := v.FieldByIndexErr(c.index)
	if err != nil {
		return nil
	}
	if f.Kind() == reflect.Pointer && f.IsNil() {
		return nil
	}
	return f.Interface()
}

// Set stores the raw database value v into the member of entity, applying
// the column converter for non-nil values.
func (c *ColumnDescriptor) Set(entity reflect.Value, v any) error {
	s, ok := indirect(entity)
	if !ok {
		return fmt.Errorf("schema: set %s on nil entity", c.Field)
	}
	if v != nil && c.Converter != nil {
		cv, err := c.Converter.FromDB(v)
		if err != nil {
			return fmt.Errorf("schema: convert column %s: %w", c.Name, err)
		}
		v = cv
	}
	if err := assign(s.FieldByIndex(c.index), v); err != nil {
		return fmt.Errorf("schema: column %s into %s.%s: %w", c.Name, s.Type().Name(), c.Field, err)
	}
	return nil
}

// Param returns the value to bind for v as a statement parameter,
// applying the column converter.
func (c *ColumnDescriptor) Param(v any) (any, error) {
	if v == nil || c.Converter == nil {
		return v, nil
	}
	return c.Converter.ToDB(v)
}

// WriteValue returns the parameter written for the member of entity on
// insert. Pointer members are written by value. NullableWrite columns
// write NULL for zero values.
func (c *ColumnDescriptor) WriteValue(entity reflect.Value) (any, error) {
	v := c.Get(entity)
	if v == nil {
		return nil, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		v = rv.Elem().Interface()
	}
	if c.NullableWrite && reflect.ValueOf(v).IsZero() {
		return nil, nil
	}
	return c.Param(v)
}

// ColumnBuilder is the builder for column descriptors.
type ColumnBuilder struct {
	desc *ColumnDescriptor
}

// Column returns a builder mapping the struct field named field. The column
// name defaults to the field name.
//
//	schema.Column("ID").Name("OrderID").PrimaryKey().AutoIncrement()
func Column(field string) *ColumnBuilder {
	return &ColumnBuilder{desc: &ColumnDescriptor{Field: field, Name: field}}
}

// Name sets the column name.
func (b *ColumnBuilder) Name(name string) *ColumnBuilder {
	b.desc.Name = name
	return b
}

// AltName sets the alias used in graph queries.
func (b *ColumnBuilder) AltName(name string) *ColumnBuilder {
	b.desc.AltName = name
	return b
}

// PrimaryKey marks the column as part of the primary key.
func (b *ColumnBuilder) PrimaryKey() *ColumnBuilder {
	b.desc.PrimaryKey = true
	return b
}

// AutoIncrement marks the column as database generated.
func (b *ColumnBuilder) AutoIncrement() *ColumnBuilder {
	b.desc.AutoIncrement = true
	return b
}

// NullableWrite writes zero values of the member as NULL.
func (b *ColumnBuilder) NullableWrite() *ColumnBuilder {
	b.desc.NullableWrite = true
	return b
}

// Converter sets the value converter of the column.
func (b *ColumnBuilder) Converter(c Converter) *ColumnBuilder {
	b.desc.Converter = c
	return b
}

// Descriptor returns the column descriptor.
func (b *ColumnBuilder) Descriptor() *ColumnDescriptor {
	return b.desc
}
