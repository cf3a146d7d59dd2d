package portal

import (
	stderrors "errors"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/goliatone/go-errors"
	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator verifies a raw credential and returns its claims. Session
// prefers verified claims over the unverified payload decode when one is
// configured.
type TokenValidator interface {
	Validate(token string) (jwt.MapClaims, error)
}

// TokenValidatorFunc adapts a function to the TokenValidator interface.
type TokenValidatorFunc func(token string) (jwt.MapClaims, error)

func (f TokenValidatorFunc) Validate(token string) (jwt.MapClaims, error) {
	return f(token)
}

// MultiTokenValidator tries each validator in order. A malformed result moves
// on to the next validator; any other verdict is final.
type MultiTokenValidator struct {
	validators []TokenValidator
}

func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	list := make([]TokenValidator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			list = append(list, v)
		}
	}
	return &MultiTokenValidator{validators: list}
}

func (m *MultiTokenValidator) Validate(token string) (jwt.MapClaims, error) {
	var lastErr error

	for _, validator := range m.validators {
		claims, err := validator.Validate(token)
		if err == nil {
			return claims, nil
		}

		lastErr = err

		if !IsMalformedError(err) {
			return nil, err
		}
	}

	if lastErr == nil {
		lastErr = ErrTokenMalformed
	}

	return nil, lastErr
}

// HMACValidator verifies tokens signed with a shared secret.
type HMACValidator struct {
	key []byte
}

func NewHMACValidator(key []byte) *HMACValidator {
	return &HMACValidator{key: key}
}

func (v *HMACValidator) Validate(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method", errors.CategoryAuth).
				WithMetadata(map[string]any{"alg": t.Header["alg"]})
		}
		return v.key, nil
	})

	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if stderrors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrTokenMalformed
		}
		return nil, errors.Wrap(err, errors.CategoryAuth, "token validation failed")
	}

	if !parsed.Valid {
		return nil, ErrCredentialInvalid
	}

	return claims, nil
}

// JWKSValidator verifies tokens against a remote JWKS endpoint.
type JWKSValidator struct {
	jwks *keyfunc.JWKS
}

// NewJWKSValidator fetches the key set and keeps it refreshed in the
// background until Close is called.
func NewJWKSValidator(jwksURL string) (*JWKSValidator, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to fetch JWKS").
			WithMetadata(map[string]any{"url": jwksURL})
	}

	return &JWKSValidator{jwks: jwks}, nil
}

func (v *JWKSValidator) Validate(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, v.jwks.Keyfunc)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if stderrors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrTokenMalformed
		}
		return nil, errors.Wrap(err, errors.CategoryAuth, "token validation failed")
	}

	if !parsed.Valid {
		return nil, ErrCredentialInvalid
	}

	return claims, nil
}

func (v *JWKSValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
