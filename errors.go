package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside the HTTP status.
const (
	TextCodeInvalidCreds     = "INVALID_CREDENTIALS"
	TextCodeDuplicateEmail   = "DUPLICATE_EMAIL"
	TextCodeTokenExpired     = "TOKEN_EXPIRED"
	TextCodeTokenMalformed   = "TOKEN_MALFORMED"
	TextCodeIdentityNotFound = "IDENTITY_NOT_FOUND"
	TextCodeForbidden        = "FORBIDDEN"
)

// ErrIdentityNotFound is returned when a token subject no longer maps to an
// active user record. It always surfaces as an authentication failure, never
// as a server fault.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the single credentials error for login.
// Unknown email and wrong password both map here so responses cannot be used
// to enumerate registered addresses.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrDuplicateEmail is returned when registration hits an active account with
// the same email. Retries after a cancelled registration should treat it as a
// success-equivalent outcome.
var ErrDuplicateEmail = errors.New("an account with that email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeConflict)

// ErrTokenExpired is returned when token validation fails on the exp claim.
var ErrTokenExpired = errors.New("authentication token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers structural corruption and signature mismatch.
var ErrTokenMalformed = errors.New("authentication token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned by the role guard for authenticated principals
// whose role is outside the allowed set.
var ErrForbidden = errors.New("insufficient role for this resource", errors.CategoryAuth).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrNoEmptyString rejects empty passwords before they reach bcrypt.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation)

// ErrMissingSigningKey is the single fatal startup condition: the process
// must not come up without a JWT signing secret.
var ErrMissingSigningKey = errors.New("signing key is required", errors.CategoryValidation)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
