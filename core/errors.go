package core

import (
	"errors"
	"fmt"
)

// Token verification failures, ordered by the stage that detects them:
// structure, decryption, signature, expiry. They exist for server-side
// logging only; the HTTP boundary re-classifies every one of them into a
// generic authentication failure so the client never learns which stage
// rejected the token.
var (
	// ErrTokenMalformed is returned when a token's envelope structure or
	// encoding is invalid.
	ErrTokenMalformed = errors.New("token is malformed")

	// ErrTokenDecryptionFailed is returned when the outer encrypted envelope
	// cannot be opened.
	ErrTokenDecryptionFailed = errors.New("token decryption failed")

	// ErrTokenSignatureInvalid is returned when the inner signed envelope
	// fails signature verification.
	ErrTokenSignatureInvalid = errors.New("token signature is invalid")

	// ErrTokenExpired is returned when the embedded claim has expired.
	ErrTokenExpired = errors.New("token has expired")
)

// Kind is the closed set of client-visible error classes. The HTTP boundary
// matches it exhaustively; there is no open-ended status-code field to forget.
type Kind int

const (
	// KindAuthentication covers missing or invalid credentials and every
	// session token failure.
	KindAuthentication Kind = iota

	// KindAuthorization covers a resolved identity lacking privilege.
	KindAuthorization

	// KindConflict covers registration against an already-used identity.
	KindConflict

	// KindNotFound covers operations addressing an identity that no longer
	// exists.
	KindNotFound
)

// Error is a classified domain error. Message is safe to show to a client;
// Err holds the internal cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewAuthentication builds a KindAuthentication error.
func NewAuthentication(message string, cause error) *Error {
	return &Error{Kind: KindAuthentication, Message: message, Err: cause}
}

// NewAuthorization builds a KindAuthorization error.
func NewAuthorization(message string, cause error) *Error {
	return &Error{Kind: KindAuthorization, Message: message, Err: cause}
}

// NewConflict builds a KindConflict error.
func NewConflict(message string, cause error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: cause}
}

// NewNotFound builds a KindNotFound error.
func NewNotFound(message string, cause error) *Error {
	return &Error{Kind: KindNotFound, Message: message, Err: cause}
}

// IsKind reports whether err carries a classified error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
