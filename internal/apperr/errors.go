package apperr

import (
	"errors"
	"fmt"
)

var (
	// request / input
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")

	// attribution outcomes
	ErrDuplicateUpload = errors.New("upload already recorded")
	ErrWrongChannel    = errors.New("video does not belong to the connected channel")

	// collaborators
	ErrExternalService = errors.New("external service error")
	ErrStorage         = errors.New("storage error")
)

func Validation(format string, args ...any) error {
	return wrap(ErrValidation, format, args...)
}

func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

func WrongChannel(format string, args ...any) error {
	return wrap(ErrWrongChannel, format, args...)
}

// External marks err as a retryable collaborator failure. The original error stays
// reachable through errors.Is / errors.As.
func External(service string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrExternalService, service, err)
}

// Storage marks err as a failure of the source of truth.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Kind returns the taxonomy sentinel err belongs to, or nil for unclassified errors.
func Kind(err error) error {
	for _, k := range []error{
		ErrValidation,
		ErrNotFound,
		ErrDuplicateUpload,
		ErrWrongChannel,
		ErrExternalService,
		ErrStorage,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
