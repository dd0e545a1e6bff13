package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

var (
	// ErrDuplicateName is returned when a unique name is already taken
	ErrDuplicateName = errors.New("name already exists")
	// ErrNotFound is returned when a referenced tag, contact, relation... does not exist
	ErrNotFound = errors.New("not found")
	// ErrSelfRelation is returned when a relation would link a contact to itself
	ErrSelfRelation = errors.New("relation source and target are the same contact")
	// ErrMergeIntegrity is matched by every failure inside a merge transaction
	ErrMergeIntegrity = errors.New("merge failed")
	// ErrInvalid is returned for rejected input
	ErrInvalid = errors.New("invalid input")
)

// StorageError wraps a failure of the underlying database
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isKnown(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// MergeError reports the merge step that failed. The merge was rolled back.
type MergeError struct {
	Step string
	Err  error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge: %s: %v", e.Step, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

func (e *MergeError) Is(target error) bool {
	return target == ErrMergeIntegrity
}

func isKnown(err error) bool {
	var se *StorageError
	var me *MergeError
	return errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSelfRelation) ||
		errors.Is(err, ErrInvalid) ||
		errors.As(err, &se) ||
		errors.As(err, &me)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalid)
}

// isUniqueViolation recognises UNIQUE and PRIMARY KEY conflicts from either driver
func isUniqueViolation(err error) bool {
	var cgoErr sqlite3.Error
	if errors.As(err, &cgoErr) {
		return cgoErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			cgoErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pureErr *sqlite.Error
	if errors.As(err, &pureErr) {
		return pureErr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE ||
			pureErr.Code() == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
