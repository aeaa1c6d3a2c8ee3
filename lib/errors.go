package lib

import "errors"

var (
	// ErrAlreadyOpen is returned when opening an account store twice.
	ErrAlreadyOpen = errors.New("account database already open")
	// ErrNotOpen is returned by any operation requiring an open account store.
	ErrNotOpen = errors.New("account database not open")
	ErrFolderNotFound  = errors.New("folder not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrBadParameters   = errors.New("bad parameters")
	// ErrIncompleteMessage reports a message row that does not carry all
	// the fields the caller requires. SearchMessageID skips such rows
	// instead of returning it.
	ErrIncompleteMessage = errors.New("message does not satisfy required fields")
	ErrDatabaseCorrupt   = errors.New("database corruption detected")
)
