package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type sqlState struct {
	code  ErrorCode
	retry bool
}

// exact SQLSTATEs first, then two character classes
var (
	sqlStates = map[string]sqlState{
		"23502": {ErrorCodeValidation, false},      // not_null_violation
		"23514": {ErrorCodeValidation, false},      // check_violation
		"22001": {ErrorCodeInvalidArgument, false}, // string_data_right_truncation
		"22P02": {ErrorCodeInvalidArgument, false}, // invalid_text_representation
		"40001": {ErrorCodeDB, true},               // serialization_failure
		"40P01": {ErrorCodeDB, true},               // deadlock_detected
		"55P03": {ErrorCodeDB, true},               // lock_not_available
		"25006": {ErrorCodeUnavailable, false},     // read_only_sql_transaction
		"57P01": {ErrorCodeUnavailable, true},      // admin_shutdown
		"57P03": {ErrorCodeUnavailable, true},      // cannot_connect_now
	}
	sqlClasses = map[string]sqlState{
		"08": {ErrorCodeUnavailable, true}, // connection exception
		"53": {ErrorCodeUnavailable, true}, // insufficient resources
	}
)

// retryText matches pgx failures that surface without a SQLSTATE
var retryText = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"canceling statement due to statement timeout",
	"canceling statement due to lock timeout",
	"terminating connection due to administrator command",
}

// SQLState returns the Postgres error code carried by err, or ""
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if stderrs.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func lookupState(state string) (sqlState, bool) {
	if st, ok := sqlStates[state]; ok {
		return st, true
	}
	if len(state) == 5 {
		st, ok := sqlClasses[state[:2]]
		return st, ok
	}
	return sqlState{}, false
}

// DBErrorCode maps a Postgres error to an ErrorCode; ok is false when err carries no SQLSTATE
func DBErrorCode(err error) (ErrorCode, bool) {
	state := SQLState(err)
	if state == "" {
		return ErrorCodeUnknown, false
	}
	if st, ok := lookupState(state); ok {
		return st.code, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps err with the code its SQLSTATE maps to; nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, _ := DBErrorCode(err)
	if code == ErrorCodeUnknown {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}

// FromPostgresf is FromPostgres with a formatted message
func FromPostgresf(err error, format string, a ...any) error {
	return FromPostgres(err, fmt.Sprintf(format, a...))
}

// IsUndefinedTable reports a missing relation (42P01)
func IsUndefinedTable(err error) bool { return SQLState(err) == "42P01" }

// IsRetryable reports whether a database failure is likely to clear on its own
// context cancellation never is
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) {
		return false
	}
	if state := SQLState(err); state != "" {
		st, ok := lookupState(state)
		return ok && st.retry
	}
	msg := strings.ToLower(Root(err).Error())
	for _, s := range retryText {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
