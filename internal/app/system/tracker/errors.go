package tracker

import (
	"errors"
	"fmt"
)

var (
	// ErrActorUnresolved means the calling identity has no active member record.
	ErrActorUnresolved = errors.New("actor has no member record")
	// ErrTargetNotFound means the target member does not exist or is inactive.
	ErrTargetNotFound = errors.New("target member not found")
	// ErrSlotLocked means the owner has locked the slot. It is a routine
	// negative result, not a fault.
	ErrSlotLocked = errors.New("slot locked by owner")
	// ErrInvalidDate means the date is not a YYYY-MM-DD calendar day.
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")
	// ErrInvalidPrayer means the prayer is not one of the five slots.
	ErrInvalidPrayer = errors.New("unknown prayer")
	// ErrStorageUnavailable matches every *StorageError. Callers may retry
	// with backoff.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// StorageError wraps an infrastructure failure during one step of an operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorageUnavailable, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorageUnavailable) true for any StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorageUnavailable }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
