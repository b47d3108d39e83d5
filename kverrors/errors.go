// Package kverrors defines the error taxonomy shared by the kvstore,
// kvasync and sqlsafety packages. Every distinct failure mode described by
// the engine's contract (missing key, closed handle, validation failure,
// decryption failure, underlying-engine failure, type mismatch) is a
// separate, testable category built on top of goliatone/go-errors so a
// single errors.Is/category check works whether the failure surfaced from
// the synchronous core or crossed the async worker boundary.
package kverrors

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// Categories mirror the taxonomy in the engine's design: each is a distinct,
// testable kind of failure.
const (
	CategoryKeyMissing    goerrors.Category = "kv.key_missing"
	CategoryClosed        goerrors.Category = "kv.closed_connection"
	CategoryValidation    goerrors.Category = "kv.validation"
	CategoryDecryption    goerrors.Category = "kv.decryption"
	CategoryEngine        goerrors.Category = "kv.engine"
	CategoryType          goerrors.Category = "kv.type"
	CategoryUnsupported   goerrors.Category = "kv.unsupported_backend"
	CategoryConfiguration goerrors.Category = "kv.configuration"
)

// KeyMissing reports that an indexed read or delete targeted an absent key.
func KeyMissing(key string) error {
	return goerrors.New(fmt.Sprintf("key not found: %q", key), CategoryKeyMissing)
}

// Closed reports an operation attempted on a closed handle. table is empty
// for the parent handle and carries the sub-table name when the operation
// was issued against a child whose parent (or itself) is closed.
func Closed(table string) error {
	if table == "" {
		return goerrors.New("database connection is closed", CategoryClosed)
	}
	return goerrors.New(
		fmt.Sprintf("parent database connection is closed (table: %q)", table),
		CategoryClosed,
	)
}

// Validation reports a hard SQL-safety validation failure: an oversized
// clause, a disallowed/forbidden function call, or a dangerous pattern
// detected in strict mode.
func Validation(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), CategoryValidation)
}

// Decryption reports an authenticated-encryption failure (tag mismatch or
// malformed envelope). The raw row must never be returned alongside it.
func Decryption(cause error) error {
	return goerrors.Wrap(cause, CategoryDecryption, "failed to decrypt value envelope")
}

// Engine wraps an error surfaced by the underlying embedded database engine
// (syntax, constraint, read-only) unchanged, so callers can still unwrap to
// the original driver error via errors.As.
func Engine(cause error) error {
	if cause == nil {
		return nil
	}
	return goerrors.Wrap(cause, CategoryEngine, "database engine error")
}

// TypeMismatch reports that a value could not be serialized/deserialized
// into the requested shape.
func TypeMismatch(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), CategoryType)
}

// UnsupportedBackend reports that a DSN named a backend this engine does
// not implement (e.g. postgres://).
func UnsupportedBackend(backend string) error {
	return goerrors.New(
		fmt.Sprintf("%s backend is not implemented; use a SQLite path or sqlite:// DSN", backend),
		CategoryUnsupported,
	)
}

// Configuration reports an invalid configuration value.
func Configuration(field, reason string) error {
	return goerrors.New(fmt.Sprintf("invalid configuration for %q: %s", field, reason), CategoryConfiguration)
}

func hasCategory(err error, category goerrors.Category) bool {
	return goerrors.IsCategory(err, category)
}

// IsKeyMissing reports whether err is (or wraps) a key-missing failure.
func IsKeyMissing(err error) bool { return hasCategory(err, CategoryKeyMissing) }

// IsClosed reports whether err is (or wraps) a closed-connection failure.
func IsClosed(err error) bool { return hasCategory(err, CategoryClosed) }

// IsValidation reports whether err is (or wraps) a validation failure.
func IsValidation(err error) bool { return hasCategory(err, CategoryValidation) }

// IsDecryption reports whether err is (or wraps) a decryption failure.
func IsDecryption(err error) bool { return hasCategory(err, CategoryDecryption) }

// IsEngine reports whether err is (or wraps) an underlying engine failure.
func IsEngine(err error) bool { return hasCategory(err, CategoryEngine) }

// IsType reports whether err is (or wraps) a type-mismatch failure.
func IsType(err error) bool { return hasCategory(err, CategoryType) }

// IsUnsupportedBackend reports whether err names an unimplemented backend.
func IsUnsupportedBackend(err error) bool { return hasCategory(err, CategoryUnsupported) }

// IsConfiguration reports whether err is (or wraps) an invalid-configuration
// failure.
func IsConfiguration(err error) bool { return hasCategory(err, CategoryConfiguration) }
