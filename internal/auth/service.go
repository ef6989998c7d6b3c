package auth

import (
	"fmt"
	"time"
)

// Logger defines the logging interface used by the Service.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// User is one entry of the fixed in-memory roster.
type User struct {
	Username     string
	PasswordHash string
	Scopes       []Scope
}

// Session is the result of a successful login.
type Session struct {
	Username string  `json:"username"`
	Token    string  `json:"token"`
	Scopes   []Scope `json:"scopes"`
}

// Service authenticates against the fixed demo roster and issues tokens.
type Service struct {
	users  map[string]User
	secret string
	ttl    time.Duration
	logger Logger

	// dummyHash equalizes timing on unknown-user logins.
	dummyHash string
}

// NewService builds the auth service with the demo users. Both accounts
// use the password "password"; this gateway is a sandbox, not a vault.
func NewService(secret string, ttl time.Duration, logger Logger) (*Service, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	users := make(map[string]User)
	for _, seed := range []struct {
		username string
		password string
		scopes   []Scope
	}{
		{"admin", "password", []Scope{ScopeAdmin, ScopeReadThings, ScopeWriteThings}},
		{"visitor", "password", []Scope{ScopeReadThings}},
	} {
		hash, err := HashPassword(seed.password)
		if err != nil {
			return nil, fmt.Errorf("seeding user %s: %w", seed.username, err)
		}
		users[seed.username] = User{
			Username:     seed.username,
			PasswordHash: hash,
			Scopes:       seed.scopes,
		}
	}

	dummy, err := HashPassword("dummy")
	if err != nil {
		return nil, fmt.Errorf("seeding dummy hash: %w", err)
	}

	return &Service{
		users:     users,
		secret:    secret,
		ttl:       ttl,
		logger:    logger,
		dummyHash: dummy,
	}, nil
}

// Login verifies the credentials and returns a session with a signed
// token. Unknown users and wrong passwords both come back as
// ErrInvalidCredentials; the response never reveals which.
func (s *Service) Login(username, password string) (*Session, error) {
	user, ok := s.users[username]
	if !ok {
		// Burn a hash anyway so the timing does not leak user existence.
		_, _ = VerifyPassword(password, s.dummyHash)
		s.logger.Warn("login failed", "username", username)
		return nil, ErrInvalidCredentials
	}

	match, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !match {
		s.logger.Warn("login failed", "username", username)
		return nil, ErrInvalidCredentials
	}

	token, err := GenerateToken(&user, s.secret, s.ttl)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login succeeded", "username", username)
	return &Session{
		Username: user.Username,
		Token:    token,
		Scopes:   user.Scopes,
	}, nil
}

// Verify parses a bearer token and returns its claims.
func (s *Service) Verify(token string) (*CustomClaims, error) {
	return ParseToken(token, s.secret)
}
