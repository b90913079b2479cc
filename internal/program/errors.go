package program

import (
	"errors"

	"github.com/eldtechnologies/messenger/internal/store"
)

// Error is a rejection of a whole request. Every Error aborts the request
// and rolls back everything it did.
type Error struct {
	Code    int
	Name    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrMessageTooLarge          = &Error{6000, "MessageTooLarge", "message exceeds maximum size of 900 bytes"}
	ErrEmptyMessage             = &Error{6001, "EmptyMessage", "message cannot be empty"}
	ErrInvalidFeeVault          = &Error{6002, "InvalidFeeVault", "fee vault does not match platform configuration"}
	ErrUnauthorized             = &Error{6003, "Unauthorized", "signer is not the controlling identity of this record"}
	ErrAlreadyInitialized       = &Error{6004, "AlreadyInitialized", "platform configuration already initialized"}
	ErrAlreadyRegistered        = &Error{6005, "AlreadyRegistered", "identity already has an encryption registry"}
	ErrNotFound                 = &Error{6006, "NotFound", "record not found"}
	ErrInsufficientFunds        = &Error{6007, "InsufficientFunds", "insufficient funds for transfer"}
	ErrInvalidRecipientWallet   = &Error{6008, "InvalidRecipientWallet", "recipient wallet does not match registry owner"}
	ErrInvalidRecipientRegistry = &Error{6009, "InvalidRecipientRegistry", "recipient registry is not the derived address of recipient"}
	ErrInvalidIdentity          = &Error{6010, "InvalidIdentity", "identity must not be the zero address"}
	ErrInvalidEncryptionKey     = &Error{6011, "InvalidEncryptionKey", "encryption key must not be the zero key"}
)

// AsError extracts the request rejection from err, if any.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// translate maps ledger failures onto request rejections. Errors that are
// not rejections (I/O, cancellation) pass through unchanged.
func translate(err error) error {
	switch {
	case errors.Is(err, store.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, store.ErrAccountNotFound):
		return ErrNotFound
	}
	return err
}
