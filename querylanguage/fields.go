package querylanguage

import "time"

// StringField is a typed string member that builds predicates and sort keys.
//
// Usage:
//
//	var Name = querylanguage.StringField("Name")
//	query.Where(Name.HasPrefix("acme"))
type StringField string

// Name returns the member name.
func (f StringField) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f StringField) EQ(v string) P { return FieldEQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f StringField) NEQ(v string) P { return FieldNEQ(string(f), v) }

// In returns a predicate that checks if the field value is in the given list.
func (f StringField) In(vs ...string) P { return FieldIn(string(f), vs...) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f StringField) NotIn(vs ...string) P { return FieldNotIn(string(f), vs...) }

// Contains returns a predicate that checks if the field contains the given substring.
func (f StringField) Contains(v string) P { return FieldContains(string(f), v) }

// HasPrefix returns a predicate that checks if the field starts with the given prefix.
func (f StringField) HasPrefix(v string) P { return FieldHasPrefix(string(f), v) }

// HasSuffix returns a predicate that checks if the field ends with the given suffix.
func (f StringField) HasSuffix(v string) P { return FieldHasSuffix(string(f), v) }

// IsNil returns a predicate that checks if the field is NULL.
func (f StringField) IsNil() P { return FieldNil(string(f)) }

// NotNil returns a predicate that checks if the field is not NULL.
func (f StringField) NotNil() P { return FieldNotNil(string(f)) }

// Asc returns an ascending sort key on the field.
func (f StringField) Asc() Order { return Asc(string(f)) }

// Desc returns a descending sort key on the field.
func (f StringField) Desc() Order { return Desc(string(f)) }

// OrderedField is a typed member over an ordered Go type.
//
//	var Quantity = querylanguage.OrderedField[int]("Quantity")
type OrderedField[T int | int8 | int16 | int32 | int64 | uint | uint8 | uint16 | uint32 | uint64 | float32 | float64] string

// IntField is an int member.
type IntField = OrderedField[int]

// Int64Field is an int64 member.
type Int64Field = OrderedField[int64]

// Float64Field is a float64 member.
type Float64Field = OrderedField[float64]

// Name returns the member name.
func (f OrderedField[T]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f OrderedField[T]) EQ(v T) P { return FieldEQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f OrderedField[T]) NEQ(v T) P { return FieldNEQ(string(f), v) }

// In returns a predicate that checks if the field value is in the given list.
func (f OrderedField[T]) In(vs ...T) P { return FieldIn(string(f), vs...) }

// NotIn returns a predicate that checks if the field value is not in the given list.
func (f OrderedField[T]) NotIn(vs ...T) P { return FieldNotIn(string(f), vs...) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f OrderedField[T]) GT(v T) P { return FieldGT(string(f), v) }

// GTE returns a predicate that checks if the field is greater than or equal to the given value.
func (f OrderedField[T]) GTE(v T) P { return FieldGTE(string(f), v) }

// LT returns a predicate that checks if the field is less than the given value.
func (f OrderedField[T]) LT(v T) P { return FieldLT(string(f), v) }

// LTE returns a predicate that checks if the field is less than or equal to the given value.
func (f OrderedField[T]) LTE(v T) P { return FieldLTE(string(f), v) }

// IsNil returns a predicate that checks if the field is NULL.
func (f OrderedField[T]) IsNil() P { return FieldNil(string(f)) }

// NotNil returns a predicate that checks if the field is not NULL.
func (f OrderedField[T]) NotNil() P { return FieldNotNil(string(f)) }

// Asc returns an ascending sort key on the field.
func (f OrderedField[T]) Asc() Order { return Asc(string(f)) }

// Desc returns a descending sort key on the field.
func (f OrderedField[T]) Desc() Order { return Desc(string(f)) }

// BoolField is a bool member.
type BoolField string

// Name returns the member name.
func (f BoolField) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f BoolField) EQ(v bool) P { return FieldEQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f BoolField) NEQ(v bool) P { return FieldNEQ(string(f), v) }

// IsNil returns a predicate that checks if the field is NULL.
func (f BoolField) IsNil() P { return FieldNil(string(f)) }

// NotNil returns a predicate that checks if the field is not NULL.
func (f BoolField) NotNil() P { return FieldNotNil(string(f)) }

// TimeField is a time.Time member.
type TimeField string

// Name returns the member name.
func (f TimeField) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f TimeField) EQ(v time.Time) P { return FieldEQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f TimeField) NEQ(v time.Time) P { return FieldNEQ(string(f), v) }

// GT returns a predicate that checks if the field is after the given value.
func (f TimeField) GT(v time.Time) P { return FieldGT(string(f), v) }

// GTE returns a predicate that checks if the field is not before the given value.
func (f TimeField) GTE(v time.Time) P { return FieldGTE(string(f), v) }

// LT returns a predicate that checks if the field is before the given value.
func (f TimeField) LT(v time.Time) P { return FieldLT(string(f), v) }

// LTE returns a predicate that checks if the field is not after the given value.
func (f TimeField) LTE(v time.Time) P { return FieldLTE(string(f), v) }

// IsNil returns a predicate that checks if the field is NULL.
func (f TimeField) IsNil() P { return FieldNil(string(f)) }

// NotNil returns a predicate that checks if the field is not NULL.
func (f TimeField) NotNil() P { return FieldNotNil(string(f)) }

// Asc returns an ascending sort key on the field.
func (f TimeField) Asc() Order { return Asc(string(f)) }

// Desc returns a descending sort key on the field.
func (f TimeField) Desc() Order { return Desc(string(f)) }
