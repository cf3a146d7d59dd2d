package portal

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/goliatone/go-errors"
)

// Session owns the authenticated state of the portal: the persisted
// credential, the resolved user, and the rules for recovering one from the
// other. It is safe for concurrent use.
type Session struct {
	client    *Client
	store     TokenStore
	aliases   ClaimAliases
	validator TokenValidator
	logger    Logger

	mu    sync.Mutex
	user  *User
	token string
}

// NewSession wires a session to the API client and the credential store. The
// client is taught to read its bearer token from the store at call time.
func NewSession(client *Client, store TokenStore) *Session {
	s := &Session{
		client:  client,
		store:   store,
		aliases: DefaultClaimAliases(),
		logger:  defLogger{},
	}

	client.WithTokenSource(func(ctx context.Context) string {
		token, err := store.Token(ctx)
		if err != nil {
			s.logger.Error("failed to read credential: %s", err)
			return ""
		}
		return token
	})

	return s
}

func (s *Session) WithLogger(logger Logger) *Session {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTokenValidator makes the session prefer verified claims over the
// unverified payload decode when recovering a degraded user.
func (s *Session) WithTokenValidator(validator TokenValidator) *Session {
	s.validator = validator
	return s
}

func (s *Session) WithClaimAliases(aliases ClaimAliases) *Session {
	s.aliases = aliases
	return s
}

// profileAttempts is the bootstrap endpoint order. Both endpoints have served
// the current profile at different API versions, so both are tried before
// the error of the last one is classified.
func (s *Session) profileAttempts() []Attempt[*User] {
	return []Attempt[*User]{
		{
			Name: "auth.me",
			Do: func(ctx context.Context) (*User, error) {
				user := &User{}
				if err := s.client.Get(ctx, "/auth/me", user); err != nil {
					return nil, err
				}
				return user, nil
			},
			Continue: ContinueAlways,
		},
		{
			Name: "users.me",
			Do: func(ctx context.Context) (*User, error) {
				user := &User{}
				if err := s.client.Get(ctx, "/users/me", user); err != nil {
					return nil, err
				}
				return user, nil
			},
			Continue: ContinueAlways,
		},
	}
}

// Bootstrap restores the session from the stored credential. It never
// returns an error: every failure mode degrades to either a claims-derived
// user or a signed-out session.
func (s *Session) Bootstrap(ctx context.Context) *User {
	token, err := s.store.Token(ctx)
	if err != nil {
		s.logger.Error("failed to read credential: %s", err)
		return nil
	}

	if token == "" {
		s.setUser("", nil)
		return nil
	}

	user, err := RunChain(ctx, s.logger, s.profileAttempts())
	if err == nil {
		return s.adopt(ctx, token, user)
	}

	if IsUnauthorized(err) {
		s.logger.Info("credential rejected, signing out")
		s.invalidate(ctx)
		return nil
	}

	s.logger.Warn("profile endpoints unavailable, recovering user from token claims: %s", err)

	recovered := s.recoverFromClaims(token)
	if recovered == nil {
		s.setUser(token, nil)
		return nil
	}

	return s.adopt(ctx, token, recovered)
}

// recoverFromClaims builds a degraded user from the credential itself. A
// configured validator is preferred; the unverified decode is the last
// resort for display purposes only.
func (s *Session) recoverFromClaims(token string) *User {
	if s.validator != nil {
		claims, err := s.validator.Validate(token)
		if err == nil {
			if user := UserFromClaims(claims, s.aliases); user != nil {
				return user
			}
		} else {
			s.logger.Debug("token validation failed, falling back to unverified decode: %s", err)
		}
	}

	user, err := UserFromToken(token, s.aliases)
	if err != nil {
		s.logger.Warn("token claims unusable: %s", err)
		return nil
	}

	return user
}

// adopt installs the resolved user, unless the stored credential changed
// while the resolution was in flight. Stale results are discarded.
func (s *Session) adopt(ctx context.Context, token string, user *User) *User {
	current, err := s.store.Token(ctx)
	if err == nil && current != token {
		s.logger.Debug("credential changed during bootstrap, discarding result")
		return s.CurrentUser()
	}

	s.setUser(token, user)
	return user
}

func (s *Session) setUser(token string, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
}

// invalidate clears the credential and the user together. A rejected
// credential never survives alone.
func (s *Session) invalidate(ctx context.Context) {
	if err := s.store.ClearToken(ctx); err != nil {
		s.logger.Error("failed to clear credential: %s", err)
	}
	s.setUser("", nil)
}

type loginResponse struct {
	Token       string          `json:"token"`
	AccessToken string          `json:"accessToken"`
	User        json.RawMessage `json:"user"`
	Profile     json.RawMessage `json:"profile"`
	Data        json.RawMessage `json:"data"`
	Message     string          `json:"message"`
}

func (r loginResponse) credential() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}

// Login exchanges credentials for a bearer token and resolves the profile.
// A successful exchange whose profile resolution fails leaves the session
// half-open: the credential is persisted, the user is nil, and the next
// Bootstrap retries resolution.
func (s *Session) Login(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password are required", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}

	payload := map[string]string{"email": email, "password": password}

	res := loginResponse{}
	if err := s.client.Post(ctx, "/auth/login", payload, &res); err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, APIMessage(err, "login failed")).
			WithCode(errors.CodeUnauthorized)
	}

	token := res.credential()
	if token == "" {
		s.logger.Warn("login response carried no token")
		return nil, nil
	}

	if err := s.store.SetToken(ctx, token); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist credential")
	}

	user, err := RunChain(ctx, s.logger, s.profileAttempts())
	if err == nil {
		return s.adopt(ctx, token, user), nil
	}

	s.logger.Warn("profile endpoints unavailable after login: %s", err)

	if user := userFromLoginBody(res); user != nil {
		return s.adopt(ctx, token, user), nil
	}

	s.setUser(token, nil)
	return nil, nil
}

// userFromLoginBody extracts an identifiable user from the login response
// body, first field present wins.
func userFromLoginBody(res loginResponse) *User {
	for _, raw := range []json.RawMessage{res.User, res.Profile, res.Data} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}

		user := &User{}
		if err := json.Unmarshal(raw, user); err != nil {
			continue
		}

		if user.ID != "" || user.Email != "" {
			return user
		}
	}
	return nil
}

// Logout tells the API best-effort, then clears local state unconditionally.
func (s *Session) Logout(ctx context.Context) {
	if err := s.client.Post(ctx, "/auth/logout", nil, nil); err != nil {
		s.logger.Debug("logout endpoint failed, clearing local state anyway: %s", err)
	}
	s.invalidate(ctx)
}

// HasRole reports whether the current user holds any of the given roles.
func (s *Session) HasRole(roles ...string) bool {
	return s.CurrentUser().HasRole(roles...)
}

func (s *Session) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) Store() TokenStore {
	return s.store
}

func (s *Session) Client() *Client {
	return s.client
}

// Close releases in-memory session state. The persisted credential is left
// alone so the next process can bootstrap from it.
func (s *Session) Close() {
	s.setUser("", nil)
}
