package relgraph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the error taxonomy. Typed errors below report
// true for errors.Is against their sentinel.
var (
	// ErrConfig is matched by every *ConfigError.
	ErrConfig = errors.New("relgraph: configuration error")

	// ErrCompile is matched by every *CompileError.
	ErrCompile = errors.New("relgraph: compilation error")

	// ErrRelationLoad is matched by every *RelationLoadError.
	ErrRelationLoad = errors.New("relgraph: relationship load failed")

	// ErrNotFound is returned when a query that expects a result returns none.
	ErrNotFound = errors.New("relgraph: entity not found")

	// ErrNotSingular is returned when a query that expects exactly one result
	// returns zero or multiple results.
	ErrNotSingular = errors.New("relgraph: entity not singular")
)

// ConfigError reports invalid mapping or query configuration. It is always
// raised before any row is scanned or any secondary query runs.
type ConfigError struct {
	Type    string // Entity type name, if known
	Member  string // Field or relationship member, if applicable
	Message string
}

// Error returns the error string.
func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("relgraph: config error")
	if e.Type != "" {
		b.WriteString(" on type ")
		b.WriteString(e.Type)
	}
	if e.Member != "" {
		b.WriteString(" member ")
		b.WriteString(e.Member)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether the target matches ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// NewConfigError returns a new ConfigError.
func NewConfigError(typeName, member, message string) *ConfigError {
	return &ConfigError{Type: typeName, Member: member, Message: message}
}

// Configf returns a ConfigError with a formatted message.
func Configf(typeName, member, format string, args ...any) *ConfigError {
	return &ConfigError{Type: typeName, Member: member, Message: fmt.Sprintf(format, args...)}
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e)
}

// CompileError reports a predicate or sort expression that cannot be
// translated to SQL.
type CompileError struct {
	Expr    string // Rendered expression that failed
	Message string
}

// Error returns the error string.
func (e *CompileError) Error() string {
	if e.Expr != "" {
		return fmt.Sprintf("relgraph: cannot compile %s: %s", e.Expr, e.Message)
	}
	return fmt.Sprintf("relgraph: cannot compile expression: %s", e.Message)
}

// Is reports whether the target matches ErrCompile.
func (e *CompileError) Is(target error) bool {
	return target == ErrCompile
}

// NewCompileError returns a new CompileError.
func NewCompileError(expr, message string) *CompileError {
	return &CompileError{Expr: expr, Message: message}
}

// IsCompileError returns true if the error is a CompileError.
func IsCompileError(err error) bool {
	if err == nil {
		return false
	}
	var e *CompileError
	return errors.As(err, &e)
}

// RelationLoadError wraps any failure that happened while running a
// secondary (eager or lazy) relationship query.
type RelationLoadError struct {
	Path string // Dotted entity-type path of the relationship, e.g. "Order.OrderItem"
	Err  error
}

// Error returns the error string.
func (e *RelationLoadError) Error() string {
	return fmt.Sprintf("relgraph: loading relationship %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *RelationLoadError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches ErrRelationLoad.
func (e *RelationLoadError) Is(target error) bool {
	return target == ErrRelationLoad
}

// NewRelationLoadError wraps err with the relationship path. If err already
// is (or wraps) a RelationLoadError, it is returned unchanged.
func NewRelationLoadError(path string, err error) error {
	if err == nil {
		return nil
	}
	var e *RelationLoadError
	if errors.As(err, &e) {
		return err
	}
	return &RelationLoadError{Path: path, Err: err}
}

// IsRelationLoadError returns true if the error is a RelationLoadError.
func IsRelationLoadError(err error) bool {
	if err == nil {
		return false
	}
	var e *RelationLoadError
	return errors.As(err, &e)
}

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("relgraph: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError represents an error when a query expects a singular result
// but receives zero or multiple results.
type NotSingularError struct {
	label string
	count int
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	return fmt.Sprintf("relgraph: %s not singular (got %d results, expected 1)", e.label, e.count)
}

// Is reports whether the target error matches NotSingularError.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// Count returns the number of results.
func (e *NotSingularError) Count() int {
	return e.count
}

// NewNotSingularError returns a new NotSingularError with the result count.
func NewNotSingularError(label string, count int) *NotSingularError {
	return &NotSingularError{label: label, count: count}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("relgraph: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// QueryError wraps a data-access error with additional context.
type QueryError struct {
	Entity string // Entity type being queried
	Op     string // Operation (e.g., "select", "insert")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("relgraph: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("relgraph: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}
