package ledger

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Business errors surfaced to the command boundary. Handlers turn these
// into user-visible replies; anything else is an internal fault.
var (
	ErrValidation       = errors.New("validation failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrCapacity         = errors.New("rank capacity reached")
	ErrConflict         = errors.New("conflicting operation in progress")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func permissionf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrPermissionDenied}, args...)...)
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

func capacityf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCapacity}, args...)...)
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}

// translate maps storage-level failures onto the business taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", ErrConflict, err)
	default:
		return err
	}
}

// IsBusiness reports whether err belongs to the user-reportable taxonomy.
func IsBusiness(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCapacity) ||
		errors.Is(err, ErrConflict)
}
