package accounting

import (
	"errors"
	"fmt"

	"github.com/xraph/accounting/id"
	"github.com/xraph/accounting/reference"
	"github.com/xraph/accounting/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrInvalidInput = errors.New("accounting: invalid input")

	// Journal errors
	ErrJournalNotFound      = errors.New("accounting: journal not found")
	ErrJournalAlreadyExists = errors.New("accounting: journal already exists")
	ErrTransactionNotFound  = errors.New("accounting: transaction not found")
	ErrBalanceDivergence    = errors.New("accounting: cached balance diverges from transactions")
	ErrConcurrentUpdate     = errors.New("accounting: journal modified concurrently")

	// Money errors
	ErrCurrencyMismatch = types.ErrCurrencyMismatch
	ErrInvalidAmount    = types.ErrInvalidAmount

	// Reference errors
	ErrReferenceNotFound    = reference.ErrNotFound
	ErrUnknownReferenceType = reference.ErrUnknownType
	ErrNoReferenceSet       = reference.ErrNotSet
)

// ValidationError represents a validation failure with details.
// It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("accounting: validation failed for %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrInvalidInput.
func (e ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// DivergenceError reports a journal whose cached balance disagrees with the
// sum of its transactions. It matches ErrBalanceDivergence with errors.Is.
type DivergenceError struct {
	JournalID  id.JournalID
	Cached     types.Money
	Recomputed types.Money
	// Sequence is the journal sequence both figures were taken at.
	Sequence int64
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("accounting: journal %s balance diverges: cached %s, recomputed %s",
		e.JournalID, e.Cached, e.Recomputed)
}

// Is reports whether target is ErrBalanceDivergence.
func (e *DivergenceError) Is(target error) bool { return target == ErrBalanceDivergence }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJournalNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrReferenceNotFound)
}

// IsConflict returns true if the error reports a write that lost to a
// concurrent one.
func IsConflict(err error) bool {
	return errors.Is(err, ErrJournalAlreadyExists) ||
		errors.Is(err, ErrConcurrentUpdate)
}
