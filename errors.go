package ecwt

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is wrapped by every error returned while building a Factory.
	ErrInvalidConfig = errors.New("ecwt: invalid configuration")

	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("ecwt: validation failed")

	// ErrMalformedToken is returned for any token string that cannot be
	// decoded, decrypted or deserialized. The cause is never exposed.
	ErrMalformedToken = errors.New("ecwt: malformed token")

	// ErrInvalid is matched by every *InvalidError.
	ErrInvalid = errors.New("ecwt: token is invalid")

	// ErrExpired is the reason of an *InvalidError for a token past its TTL.
	ErrExpired = errors.New("ecwt: token is expired")

	// ErrRevoked is the reason of an *InvalidError for a revoked token.
	ErrRevoked = errors.New("ecwt: token is revoked")
)

// ValidationError reports a field value or TTL rejected by Create.
type ValidationError struct {
	Field string
	Value any
}

func (e *ValidationError) Error() string {
	if e.Field == "ttl" {
		return fmt.Sprintf("ecwt: ttl %v must be a non-negative whole number of seconds", e.Value)
	}
	return fmt.Sprintf("ecwt: value %q of field %q is invalid", fmt.Sprint(e.Value), e.Field)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// InvalidError is returned by Verify for a well-formed token that must not be
// accepted. Token is fully decoded so callers can still inspect it, for
// example to log the subject of a replayed token.
type InvalidError struct {
	Token  *Token
	Reason error // ErrExpired or ErrRevoked
}

func (e *InvalidError) Error() string {
	if e.Reason == nil {
		return ErrInvalid.Error()
	}
	return e.Reason.Error()
}

// Unwrap returns the reason, so errors.Is(err, ErrExpired) works.
func (e *InvalidError) Unwrap() error {
	return e.Reason
}

// Is reports whether target is ErrInvalid.
func (e *InvalidError) Is(target error) bool {
	return target == ErrInvalid
}

func newExpiredError(token *Token) error {
	return &InvalidError{Token: token, Reason: ErrExpired}
}

func newRevokedError(token *Token) error {
	return &InvalidError{Token: token, Reason: ErrRevoked}
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
