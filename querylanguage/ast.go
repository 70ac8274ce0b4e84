// Package querylanguage provides the predicate and sort expression tree
// accepted by the query compiler.
//
//	querylanguage.And(
//		querylanguage.FieldEQ("Name", "widget"),
//		querylanguage.FieldContains("OrderItems.ProductName", "bolt"),
//	)
package querylanguage

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// An Expr represents a node in the expression tree.
type Expr interface {
	fmt.Stringer
	expr()
}

// P represents an expression that returns a boolean value.
type P interface {
	Expr
	Negate() P
}

// An Op represents a predicate operator.
type Op int

// Predicate operators.
const (
	OpAnd   Op = iota // logical and
	OpOr              // logical or
	OpNot             // logical negation
	OpEQ              // ==
	OpNEQ             // !=
	OpGT              // >
	OpGTE             // >=
	OpLT              // <
	OpLTE             // <=
	OpIn              // in
	OpNotIn           // not in
)

var ops = [...]string{
	OpAnd:   "&&",
	OpOr:    "||",
	OpNot:   "!",
	OpEQ:    "==",
	OpNEQ:   "!=",
	OpGT:    ">",
	OpGTE:   ">=",
	OpLT:    "<",
	OpLTE:   "<=",
	OpIn:    "in",
	OpNotIn: "not in",
}

// String returns the textual form of the operator.
func (o Op) String() string {
	if int(o) < len(ops) {
		return ops[o]
	}
	return "Op(" + strconv.Itoa(int(o)) + ")"
}

// Func names of the string methods understood by the compiler. Any other
// name fails compilation.
const (
	FuncContains  = "contains"
	FuncHasPrefix = "has_prefix"
	FuncHasSuffix = "has_suffix"
)

type (
	// UnaryExpr represents a unary expression, e.g. !(x).
	UnaryExpr struct {
		Op Op
		X  Expr
	}

	// BinaryExpr represents a binary expression, e.g. x == y.
	BinaryExpr struct {
		Op   Op
		X, Y Expr
	}

	// NaryExpr represents an n-ary expression, e.g. (x && y && z).
	NaryExpr struct {
		Op Op
		Xs []Expr
	}

	// CallExpr represents a method call on its first argument,
	// e.g. contains(name, "a").
	CallExpr struct {
		Func string
		Args []Expr
	}

	// Field represents a mapped member. Dotted names reach into related
	// entities, e.g. "OrderItems.ProductName".
	Field struct {
		Name string
	}

	// Value represents a literal value. A nil V is the null literal.
	Value struct {
		V any
	}

	// Capture represents a value read from a captured object graph when the
	// expression is compiled. Root may be a pointer; Path is a dotted member
	// path relative to Root and may be empty.
	Capture struct {
		Root any
		Path string
	}
)

// F returns a field expression.
func F(name string) *Field { return &Field{Name: name} }

// V returns a literal value expression.
func V(v any) *Value { return &Value{V: v} }

// Null returns the null literal.
func Null() *Value { return &Value{} }

// Captured returns an expression evaluating path against root at compile
// time.
func Captured(root any, path string) *Capture { return &Capture{Root: root, Path: path} }

// Ref returns an expression reading the variable ptr points to at compile
// time.
func Ref(ptr any) *Capture { return &Capture{Root: ptr} }

// And returns a composed predicate that represents the logical AND predicate.
func And(x, y P, z ...P) P {
	if len(z) == 0 {
		return &BinaryExpr{Op: OpAnd, X: x, Y: y}
	}
	return &NaryExpr{Op: OpAnd, Xs: append([]Expr{x, y}, p2expr(z)...)}
}

// Or returns a composed predicate that represents the logical OR predicate.
func Or(x, y P, z ...P) P {
	if len(z) == 0 {
		return &BinaryExpr{Op: OpOr, X: x, Y: y}
	}
	return &NaryExpr{Op: OpOr, Xs: append([]Expr{x, y}, p2expr(z)...)}
}

// Not returns a predicate that represents the logical NOT of x.
func Not(x P) P {
	return &UnaryExpr{Op: OpNot, X: x}
}

// EQ returns a predicate comparing x and y for equality.
func EQ(x, y Expr) P { return &BinaryExpr{Op: OpEQ, X: x, Y: y} }

// NEQ returns a predicate comparing x and y for inequality.
func NEQ(x, y Expr) P { return &BinaryExpr{Op: OpNEQ, X: x, Y: y} }

// GT returns the x > y predicate.
func GT(x, y Expr) P { return &BinaryExpr{Op: OpGT, X: x, Y: y} }

// GTE returns the x >= y predicate.
func GTE(x, y Expr) P { return &BinaryExpr{Op: OpGTE, X: x, Y: y} }

// LT returns the x < y predicate.
func LT(x, y Expr) P { return &BinaryExpr{Op: OpLT, X: x, Y: y} }

// LTE returns the x <= y predicate.
func LTE(x, y Expr) P { return &BinaryExpr{Op: OpLTE, X: x, Y: y} }

// Call returns a method call predicate. The compiler accepts only
// FuncContains, FuncHasPrefix and FuncHasSuffix and their method aliases.
func Call(fn string, args ...Expr) P { return &CallExpr{Func: fn, Args: args} }

// FieldEQ returns a predicate checking if the field equals v.
func FieldEQ(name string, v any) P { return EQ(F(name), V(v)) }

// FieldNEQ returns a predicate checking if the field does not equal v.
func FieldNEQ(name string, v any) P { return NEQ(F(name), V(v)) }

// FieldGT returns a predicate checking if the field is greater than v.
func FieldGT(name string, v any) P { return GT(F(name), V(v)) }

// FieldGTE returns a predicate checking if the field is greater than or equal to v.
func FieldGTE(name string, v any) P { return GTE(F(name), V(v)) }

// FieldLT returns a predicate checking if the field is less than v.
func FieldLT(name string, v any) P { return LT(F(name), V(v)) }

// FieldLTE returns a predicate checking if the field is less than or equal to v.
func FieldLTE(name string, v any) P { return LTE(F(name), V(v)) }

// FieldNil returns a predicate checking if the field is null.
func FieldNil(name string) P { return EQ(F(name), Null()) }

// FieldNotNil returns a predicate checking if the field is not null.
func FieldNotNil(name string) P { return NEQ(F(name), Null()) }

// FieldIn returns a predicate checking if the field value is one of vs.
func FieldIn[T any](name string, vs ...T) P {
	return &BinaryExpr{Op: OpIn, X: F(name), Y: V(vs)}
}

// FieldNotIn returns a predicate checking if the field value is not one of vs.
func FieldNotIn[T any](name string, vs ...T) P {
	return &BinaryExpr{Op: OpNotIn, X: F(name), Y: V(vs)}
}

// FieldContains returns a predicate checking if the field contains s.
func FieldContains(name, s string) P { return Call(FuncContains, F(name), V(s)) }

// FieldHasPrefix returns a predicate checking if the field starts with s.
func FieldHasPrefix(name, s string) P { return Call(FuncHasPrefix, F(name), V(s)) }

// FieldHasSuffix returns a predicate checking if the field ends with s.
func FieldHasSuffix(name, s string) P { return Call(FuncHasSuffix, F(name), V(s)) }

// Negate negates the predicate.
func (e *BinaryExpr) Negate() P { return Not(e) }

// Negate negates the predicate.
func (e *NaryExpr) Negate() P { return Not(e) }

// Negate negates the predicate.
func (e *UnaryExpr) Negate() P { return Not(e) }

// Negate negates the predicate.
func (e *CallExpr) Negate() P { return Not(e) }

// String implements the fmt.Stringer interface.
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("%s %s %s", e.X, e.Op, e.Y)
}

// String implements the fmt.Stringer interface.
func (e *NaryExpr) String() string {
	var s strings.Builder
	s.WriteByte('(')
	for i, x := range e.Xs {
		if i > 0 {
			s.WriteString(" " + e.Op.String() + " ")
		}
		s.WriteString(x.String())
	}
	s.WriteByte(')')
	return s.String()
}

// String implements the fmt.Stringer interface.
func (e *UnaryExpr) String() string {
	return fmt.Sprintf("%s(%s)", e.Op, e.X)
}

// String implements the fmt.Stringer interface.
func (e *CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", e.Func, strings.Join(args, ", "))
}

// String implements the fmt.Stringer interface.
func (f *Field) String() string { return f.Name }

// String implements the fmt.Stringer interface.
func (v *Value) String() string {
	if v == nil || v.V == nil {
		return "nil"
	}
	buf, err := json.Marshal(v.V)
	if err != nil {
		return fmt.Sprint(v.V)
	}
	return string(buf)
}

// String implements the fmt.Stringer interface.
func (c *Capture) String() string {
	if c.Path == "" {
		return fmt.Sprintf("$(%T)", c.Root)
	}
	return "$." + c.Path
}

// Eval reads the captured value. Nil pointers along the path yield nil.
func (c *Capture) Eval() (any, error) {
	v := reflect.ValueOf(c.Root)
	if c.Path == "" {
		v, ok := indirect(v)
		if !ok {
			return nil, nil
		}
		return v.Interface(), nil
	}
	for _, name := range strings.Split(c.Path, ".") {
		var ok bool
		if v, ok = indirect(v); !ok {
			return nil, nil
		}
		if v.Kind() != reflect.Struct {
			return nil, fmt.Errorf("querylanguage: cannot read %q from %s", name, v.Type())
		}
		sf, ok := v.Type().FieldByName(name)
		if !ok || !sf.IsExported() {
			return nil, fmt.Errorf("querylanguage: %s has no exported member %q", v.Type(), name)
		}
		v = v.FieldByIndex(sf.Index)
	}
	if v, ok := indirect(v); ok {
		return v.Interface(), nil
	}
	return nil, nil
}

func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

func p2expr(ps []P) []Expr {
	expr := make([]Expr, len(ps))
	for i := range ps {
		expr[i] = ps[i]
	}
	return expr
}

func (*Field) expr()      {}
func (*Value) expr()      {}
func (*Capture) expr()    {}
func (*UnaryExpr) expr()  {}
func (*BinaryExpr) expr() {}
func (*NaryExpr) expr()   {}
func (*CallExpr) expr()   {}

// Order is a single sort key.
type Order struct {
	Field string
	Desc  bool
}

// Asc returns an ascending sort key.
func Asc(field string) Order { return Order{Field: field} }

// Desc returns a descending sort key.
func Desc(field string) Order { return Order{Field: field, Desc: true} }

// String implements the fmt.Stringer interface.
func (o Order) String() string {
	if o.Desc {
		return o.Field + " desc"
	}
	return o.Field
}
