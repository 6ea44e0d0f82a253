// Package apperror classifies every failure the API can produce into a
// small fixed taxonomy, so handlers never leak raw store or provider
// error text to clients.
package apperror

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
)

type Kind int

const (
	Unauthorized Kind = iota
	Forbidden
	NotFound
	Conflict
	InvalidArgument
	Internal
)

type Error struct {
	Kind    Kind
	Message string
	// Cause holds the underlying error for logging, it is never
	// written to the client
	Cause error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "error"
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Status() int {
	switch e.Kind {
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case InvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// From pulls the classified error back out of an error chain. Anything
// unclassified counts as Internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: Internal, Message: "", Cause: err}
}

const mysqlDuplicateEntry = 1062

// IsUniqueViolation reports whether err is a unique-constraint failure
// from either supported backend. The store constraints are the source
// of truth for the uniqueness invariants, application-level checks are
// only an early exit, so every insert that can race has to run its
// error through this.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}

	// modernc.org/sqlite reports constraint failures by message only
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Classify maps common store errors onto the taxonomy: no rows becomes
// NotFound, a unique violation becomes Conflict, anything else Internal.
func Classify(err error, notFoundMsg string, conflictMsg string) *Error {
	if errors.Is(err, sql.ErrNoRows) {
		return New(NotFound, notFoundMsg)
	}
	if IsUniqueViolation(err) {
		return New(Conflict, conflictMsg)
	}
	return Wrap(Internal, "", err)
}
