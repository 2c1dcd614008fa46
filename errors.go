package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodePasswordMismatch   = "PASSWORD_CONFIRMATION_MISMATCH"
	TextCodeEmailExists        = "EMAIL_ALREADY_REGISTERED"
	TextCodeDuplicateGrant     = "ROLE_ALREADY_GRANTED"
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
	TextCodeRoleNotFound       = "ROLE_NOT_FOUND"
	TextCodeInvalidRefresh     = "INVALID_REFRESH_TOKEN"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeSessionNotFound    = "SESSION_NOT_FOUND"
	TextCodeInsufficientRole   = "INSUFFICIENT_ROLE"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeMalformedHash      = "MALFORMED_PASSWORD_HASH"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrRoleNotFound is returned when a role grant names an unknown role.
var ErrRoleNotFound = errors.New("role not found", errors.CategoryNotFound).
	WithTextCode(TextCodeRoleNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidCredentials is returned for unknown email and for a failed
// password check alike. The message is deliberately uniform so callers
// cannot enumerate accounts.
var ErrInvalidCredentials = errors.New("Invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the hasher-level mismatch; the
// registry normalizes it into ErrInvalidCredentials before it leaves
// the core.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrPasswordConfirmation is returned when password and confirmation differ.
var ErrPasswordConfirmation = errors.New("Passwords do not match", errors.CategoryValidation).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(errors.CodeBadRequest)

// ErrEmailTaken is returned when registering an email that already has a
// user row. Registering over an existing federated account is a hard
// conflict, not a link merge.
var ErrEmailTaken = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailExists).
	WithCode(errors.CodeBadRequest)

// ErrDuplicateRoleGrant is returned when granting a role the user
// already holds. A duplicate grant is rejected, never a no-op.
var ErrDuplicateRoleGrant = errors.New("role already granted", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateGrant).
	WithCode(errors.CodeBadRequest)

// ErrInvalidRefreshToken covers every refresh failure: decode error,
// expiry, unknown subject, stored-value mismatch. Deliberately
// indistinguishable to the caller.
var ErrInvalidRefreshToken = errors.New("Invalid token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidRefresh).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired signals an expired but otherwise well formed token.
// The boundary may use this signal to attempt one refresh-and-retry.
var ErrTokenExpired = errors.New("Access token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed signals a token with a bad signature or shape. No
// remediation hint is carried.
var ErrTokenMalformed = errors.New("invalid authentication token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToFindSession is the error when a request has no bearer token
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrInsufficientRole is returned when an authenticated caller lacks
// every role a route requires.
var ErrInsufficientRole = errors.New("insufficient role", errors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientRole).
	WithCode(errors.CodeForbidden)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrMalformedHash is returned when a stored password blob cannot be parsed
var ErrMalformedHash = errors.New("malformed password hash", errors.CategoryValidation).
	WithTextCode(TextCodeMalformedHash).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
