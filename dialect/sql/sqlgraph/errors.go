package sqlgraph

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/syssam/relgraph"
)

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return relgraph.IsConstraintError(err) ||
		IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err) ||
		IsNotNullConstraintError(err)
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgNotNullViolation    pq.ErrorCode = "23502"
	pgForeignKeyViolation pq.ErrorCode = "23503"
	pgUniqueViolation     pq.ErrorCode = "23505"
	pgCheckViolation      pq.ErrorCode = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlNotNull                uint16 = 1048
	mysqlDuplicateEntry         uint16 = 1062
	mysqlForeignKeyParent       uint16 = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        uint16 = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate uint16 = 3819
)

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool {
	return classify(err, []pq.ErrorCode{pgUniqueViolation}, []uint16{mysqlDuplicateEntry},
		"violates unique constraint", // Postgres (string fallback)
		"UNIQUE constraint failed",   // SQLite
		"Violation of UNIQUE KEY",    // SQL Server
		"Cannot insert duplicate key",
	)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool {
	return classify(err, []pq.ErrorCode{pgForeignKeyViolation}, []uint16{mysqlForeignKeyParent, mysqlForeignKeyChild},
		"violates foreign key constraint", // Postgres
		"FOREIGN KEY constraint failed",   // SQLite
		"conflicted with the FOREIGN KEY", // SQL Server
	)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
func IsCheckConstraintError(err error) bool {
	return classify(err, []pq.ErrorCode{pgCheckViolation}, []uint16{mysqlCheckConstraintViolate},
		"violates check constraint", // Postgres
		"CHECK constraint failed",   // SQLite
		"conflicted with the CHECK", // SQL Server
	)
}

// IsNotNullConstraintError reports if the error resulted from writing NULL
// to a NOT NULL column.
func IsNotNullConstraintError(err error) bool {
	return classify(err, []pq.ErrorCode{pgNotNullViolation}, []uint16{mysqlNotNull},
		"violates not-null constraint", // Postgres
		"NOT NULL constraint failed",   // SQLite
		"Cannot insert the value NULL", // SQL Server
	)
}

// WrapConstraintError returns err as a relgraph.ConstraintError if it is a
// constraint violation, and err unchanged otherwise.
func WrapConstraintError(err error) error {
	if err == nil || relgraph.IsConstraintError(err) || !IsConstraintError(err) {
		return err
	}
	return relgraph.NewConstraintError(err.Error(), err)
}

func classify(err error, pgCodes []pq.ErrorCode, mysqlNumbers []uint16, fallback ...string) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		for _, c := range pgCodes {
			if pqErr.Code == c {
				return true
			}
		}
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		for _, n := range mysqlNumbers {
			if myErr.Number == n {
				return true
			}
		}
		return false
	}
	// Drivers without typed errors, e.g. SQLite and SQL Server.
	return containsAny(err.Error(), fallback...)
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
