package portal

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	textCodeNoCredential      = "NO_CREDENTIAL"
	textCodeCredentialInvalid = "CREDENTIAL_INVALID"
	textCodeUnusableClaims    = "UNUSABLE_CLAIMS"
	textCodeNoRegistration    = "NO_REGISTRATION_DRAFT"
	textCodeHandoffFailed     = "REGISTRATION_HANDOFF_FAILED"
	textCodeTokenExpired      = "TOKEN_EXPIRED"
	textCodeTokenMalformed    = "TOKEN_MALFORMED"
)

// ErrNoCredential is returned when an operation needs a stored credential and none exists.
var ErrNoCredential = errors.New("no stored credential", errors.CategoryAuth).
	WithTextCode(textCodeNoCredential).
	WithCode(errors.CodeUnauthorized)

// ErrCredentialInvalid marks a credential the remote API rejected with 401.
var ErrCredentialInvalid = errors.New("credential rejected by the API", errors.CategoryAuth).
	WithTextCode(textCodeCredentialInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrUnusableClaims is returned when a decoded token payload carries none of the mapped fields.
var ErrUnusableClaims = errors.New("token claims carry no usable identity", errors.CategoryAuth).
	WithTextCode(textCodeUnusableClaims).
	WithCode(errors.CodeUnauthorized)

// ErrNoRegistration is returned by the hand-off path when no registration draft is stored.
var ErrNoRegistration = errors.New("no registration draft found", errors.CategoryOperation).
	WithTextCode(textCodeNoRegistration).
	WithCode(errors.CodeBadRequest)

// ErrHandoffFailed marks a registration hand-off that fell back to manual login.
var ErrHandoffFailed = errors.New("registration hand-off failed", errors.CategoryAuth).
	WithTextCode(textCodeHandoffFailed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for credentials past their expiration claim.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for credentials we cannot decode.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
