// Provides common kladov errors definitions.
package kladov_errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidValue         = errors.New("kladov: invalid value")
	ErrInconsistentDatabase = errors.New("kladov: inconsistent database")
	ErrUnknownType          = errors.New("kladov: unknown object type")
	ErrUnknownField         = errors.New("kladov: unknown field")
	ErrUnknownIndex         = errors.New("kladov: unknown index")
	ErrUnknownEncoding      = errors.New("kladov: unknown encoding")
	ErrDuplicateEncoding    = errors.New("kladov: duplicate encoding")
	ErrInvalidSchema        = errors.New("kladov: invalid schema")
	ErrDeletedObject        = errors.New("kladov: object is deleted")
	ErrReferencedObject     = errors.New("kladov: object is referenced")
	ErrUniqueConstraint     = errors.New("kladov: unique constraint violation")
	ErrTxClosed             = errors.New("kladov: transaction is closed")
	ErrClosed               = errors.New("kladov: database is closed")
	ErrFormatVersion        = errors.New("kladov: unsupported format version")
)

type UnknownTypeError struct {
	Name      string
	StorageID uint64
}

func (e *UnknownTypeError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %q", ErrUnknownType, e.Name)
	}
	return fmt.Sprintf("%s #%d", ErrUnknownType, e.StorageID)
}

func (e *UnknownTypeError) Is(target error) bool { return target == ErrUnknownType }

type UnknownFieldError struct {
	Type      string
	Name      string
	StorageID uint64
}

func (e *UnknownFieldError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %q in type %q", ErrUnknownField, e.Name, e.Type)
	}
	if e.Type != "" {
		return fmt.Sprintf("%s #%d in type %q", ErrUnknownField, e.StorageID, e.Type)
	}
	return fmt.Sprintf("%s #%d", ErrUnknownField, e.StorageID)
}

func (e *UnknownFieldError) Is(target error) bool { return target == ErrUnknownField }

type UnknownIndexError struct {
	Name      string
	StorageID uint64
}

func (e *UnknownIndexError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %q", ErrUnknownIndex, e.Name)
	}
	return fmt.Sprintf("%s #%d", ErrUnknownIndex, e.StorageID)
}

func (e *UnknownIndexError) Is(target error) bool { return target == ErrUnknownIndex }

// DeletedObjectError is returned for any access to a missing or deleted object.
type DeletedObjectError struct {
	Object fmt.Stringer
}

func (e *DeletedObjectError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDeletedObject, e.Object)
}

func (e *DeletedObjectError) Is(target error) bool { return target == ErrDeletedObject }

// ReferencedObjectError reports a delete blocked by a referrer whose
// field is configured with the exception delete action.
type ReferencedObjectError struct {
	Object   fmt.Stringer
	Referrer fmt.Stringer
	Field    uint64
}

func (e *ReferencedObjectError) Error() string {
	return fmt.Sprintf("%s: %s is referenced by %s through field #%d",
		ErrReferencedObject, e.Object, e.Referrer, e.Field)
}

func (e *ReferencedObjectError) Is(target error) bool { return target == ErrReferencedObject }

type UniqueConstraintError struct {
	Field    uint64
	Object   fmt.Stringer
	Conflict fmt.Stringer
	Value    string
}

func (e *UniqueConstraintError) Error() string {
	return fmt.Sprintf("%s: field #%d value %s of %s already used by %s",
		ErrUniqueConstraint, e.Field, e.Value, e.Object, e.Conflict)
}

func (e *UniqueConstraintError) Is(target error) bool { return target == ErrUniqueConstraint }
