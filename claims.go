package portal

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
)

// ClaimAliases lists, per logical identity field, the claim names checked in
// order. The first claim present wins.
type ClaimAliases struct {
	ID    []string
	Email []string
	Name  []string
	Roles []string
}

// DefaultClaimAliases covers the token shapes the clinic API and the common
// identity providers emit. Name falls back to the resolved email when no
// display name claim is present.
func DefaultClaimAliases() ClaimAliases {
	return ClaimAliases{
		ID:    []string{"sub", "id", "userId", "uid"},
		Email: []string{"email", "upn", "preferred_username"},
		Name:  []string{"name", "fullname", "preferred_username", "email"},
		Roles: []string{"roles", "role", "authorities"},
	}
}

// DecodePayloadSegment decodes the claims segment of a JWT without verifying
// the signature. Only use the result for degraded display purposes.
func DecodePayloadSegment(token string) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrTokenMalformed
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "failed to decode token payload").
			WithTextCode(textCodeTokenMalformed)
	}

	claims := map[string]any{}
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "token payload is not valid JSON").
			WithTextCode(textCodeTokenMalformed)
	}

	return claims, nil
}

// UserFromClaims maps a claims set into a degraded User using the alias
// lists. Returns nil when no usable identity field is present.
func UserFromClaims(claims map[string]any, aliases ClaimAliases) *User {
	user := &User{
		ID:    firstClaimString(claims, aliases.ID),
		Email: firstClaimString(claims, aliases.Email),
	}
	user.Name = firstClaimString(claims, aliases.Name)
	user.Roles = firstClaimRoles(claims, aliases.Roles)

	if user.ID == "" && user.Email == "" && user.Name == "" {
		return nil
	}

	return user
}

// UserFromToken decodes the token payload and maps it into a degraded User.
func UserFromToken(token string, aliases ClaimAliases) (*User, error) {
	claims, err := DecodePayloadSegment(token)
	if err != nil {
		return nil, err
	}

	user := UserFromClaims(claims, aliases)
	if user == nil {
		return nil, ErrUnusableClaims
	}

	return user, nil
}

func firstClaimString(claims map[string]any, names []string) string {
	for _, name := range names {
		val, ok := claims[name]
		if !ok || val == nil {
			continue
		}
		switch v := val.(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

func firstClaimRoles(claims map[string]any, names []string) []string {
	for _, name := range names {
		val, ok := claims[name]
		if !ok || val == nil {
			continue
		}
		switch v := val.(type) {
		case string:
			if v != "" {
				return []string{v}
			}
		case []string:
			if len(v) > 0 {
				return v
			}
		case []any:
			roles := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					roles = append(roles, s)
				}
			}
			if len(roles) > 0 {
				return roles
			}
		}
	}
	return nil
}
