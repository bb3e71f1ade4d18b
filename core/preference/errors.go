package preference

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core"
)

var (
	// errors
	ErrNotFound           = errors.New("saved project not found")
	ErrDuplicateSave      = errors.New("project already saved")
	ErrRanksNotContiguous = errors.New("saved project ranks are not contiguous")

	msgStorage = "something went wrong, please try again later"
)

// ErrorKind classifies every failure of this package. Each public operation fails with exactly one kind.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	// KindValidation: malformed or out-of-range input; the request must be corrected.
	KindValidation
	// KindDuplicate: the project is already saved by this user; informational, not retried.
	KindDuplicate
	// KindNotFound: the saved project does not exist (or is not the caller's); benign race.
	KindNotFound
	// KindStorage: persistence failure; safe to retry after a backoff.
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// KindOf classifies err. Anything that is not a known failure is a storage failure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var vErrs validator.ValidationErrors
	switch {
	case errors.As(err, &vErrs), core.IsValidationError(err):
		return KindValidation
	case errors.Is(err, ErrDuplicateSave):
		return KindDuplicate
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindStorage
	}
}

// Message is the user facing message for err. Storage failures never expose their cause.
func Message(err error) string {
	switch KindOf(err) {
	case KindNone:
		return ""
	case KindValidation:
		var vErr *core.ValidationError
		if errors.As(err, &vErr) {
			return vErr.Error()
		}
		return "invalid input"
	case KindDuplicate:
		return ErrDuplicateSave.Error()
	case KindNotFound:
		return ErrNotFound.Error()
	default:
		return msgStorage
	}
}
