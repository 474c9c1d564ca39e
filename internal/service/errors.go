package service

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/tcg-tournament/internal/bracket"
	"github.com/AdamBeresnev/tcg-tournament/internal/store"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = store.ErrConflict
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

// notFound turns a missing row into ErrNotFound and passes anything else through.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

// engineError reports rule violations from the bracket package as validation
// errors. A corrupt bracket stays as it is so it surfaces as an internal error.
func engineError(err error) error {
	if err == nil || errors.Is(err, bracket.ErrBracketCorrupt) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
