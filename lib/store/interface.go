package store

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dIdx/lib/db"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates the index used by the store.
// The name identifies the index (e.g. the shard and replica), implementations
// derive file names and metric labels from it.
type DBFactory func(name string) (db.IndexDB, error)

// IStore is the generic interface for interacting with an ordered key index.
// All write operations return only an error (nil on success),
// while read operations return the requested data along with an error (nil on success).
// Errors are of type *Error.
type IStore interface {
	// Add inserts a key. If the key already exists, an error with code RetCDuplicateKey is returned.
	Add(key uint64) (err error)
	// Delete removes a key. Deleting a key that does not exist is not an error.
	Delete(key uint64) (err error)
	// Has returns whether a key exists in the store.
	Has(key uint64) (ok bool, err error)
	// Len returns the number of keys in the store.
	Len() (n uint64, err error)
	// Range returns up to limit keys in [from, to] in ascending order. A limit <= 0 means no limit.
	Range(from, to uint64, limit int) (keys []uint64, err error)
	// Dump returns the internal structure of the index as a Graphviz digraph.
	Dump() (dot []byte, err error)
	// GetDBInfo returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetDBInfo() (info db.DatabaseInfo, err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("IndexStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new IndexStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// FromDBError converts an error of the db layer into an *Error with a matching code.
func FromDBError(err error) error {
	if err == nil {
		return nil
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr
	}
	switch {
	case errors.Is(err, db.ErrDuplicateKey):
		return NewError(RetCDuplicateKey, err.Error())
	case errors.Is(err, db.ErrTimeout):
		return NewError(RetCTimeout, err.Error())
	case errors.Is(err, db.ErrUnsupported):
		return NewError(RetCUnsupportedOperation, err.Error())
	default:
		return NewError(RetCInternalError, err.Error())
	}
}

// CodeOf returns the return code carried by err.
// A nil error is RetCSuccess, errors not of type *Error are RetCInternalError.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Code
	}
	return RetCInternalError
}

// IsDuplicateKey reports whether err signals an already existing key.
func IsDuplicateKey(err error) bool {
	return CodeOf(err) == RetCDuplicateKey
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCDuplicateKey                        // 4: The key is already in the index.
	RetCTimeout                             // 5: The operation did not complete in time.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCDuplicateKey:
		return "DuplicateKey"
	case RetCTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}
