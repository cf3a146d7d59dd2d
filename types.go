package portal

import (
	"context"
	"fmt"
)

// Storage keys for persisted client state. These match the keys the web
// client historically used, so a migrated store keeps working.
const (
	CredentialKey   = "cf_token"
	RegistrationKey = "cf_registration_data"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenStore persists the bearer credential and the pre-authentication
// registration draft across restarts. Implementations must be safe for
// concurrent use.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error

	Registration(ctx context.Context) (*Registration, error)
	SetRegistration(ctx context.Context, reg *Registration) error
	// ScrubPassword removes the password from the stored registration draft
	// while keeping email and name available as login hints.
	ScrubPassword(ctx context.Context) error
	ClearRegistration(ctx context.Context) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] PORTAL "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] PORTAL "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] PORTAL "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] PORTAL "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
