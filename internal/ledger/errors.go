package ledger

import "errors"

var (
	// ErrNotAuthenticated is returned by every mutation when no user is bound
	// to the request context.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotFound means the referenced record does not exist for the user,
	// including soft-deleted transactions.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument marks caller bugs: non-positive amounts, identical
	// transfer accounts, missing identifiers.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPartialFailure means a multi-record mutation could not be confirmed
	// as committed or rolled back.
	ErrPartialFailure = errors.New("partial failure")
	// ErrConflict is returned when a concurrent writer changed an account
	// between read and write.
	ErrConflict    = errors.New("concurrent modification")
	ErrUnknownKind = errors.New("unknown transaction type")
)
