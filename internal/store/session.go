package store

import (
	"context"
	"sync"
)

// Account is the signed-in user as returned by the auth endpoints.
type Account struct {
	Username    string
	DisplayName string
	Email       string
	Image       string
}

// AuthGateway is the remote auth surface consumed by the Session.
type AuthGateway interface {
	Login(ctx context.Context, email, password string) (Account, string, error)
	Register(ctx context.Context, input RegisterInput) (Account, string, error)
	CurrentUser(ctx context.Context) (Account, error)
}

// RegisterInput is the payload for account creation.
type RegisterInput struct {
	Username    string
	DisplayName string
	Email       string
	Password    string
}

// TokenListener observes bearer-token changes. It receives the new token, or
// empty on sign-out, so an external persistence collaborator can react.
type TokenListener func(token string)

// Session holds the signed-in account and its bearer token, and implements
// IdentityProvider for the Store. The token listener is registered once at
// construction; it fires on every set and clear.
type Session struct {
	gateway  AuthGateway
	listener TokenListener

	mu      sync.RWMutex
	account *Account
	token   string
}

// NewSession constructs a Session. listener may be nil.
func NewSession(gateway AuthGateway, listener TokenListener) *Session {
	return &Session{gateway: gateway, listener: listener}
}

// LoggedIn reports whether an account is signed in.
func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.account != nil
}

// Current implements IdentityProvider.
func (s *Session) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return Identity{}, false
	}
	return Identity{
		Username:    s.account.Username,
		DisplayName: s.account.DisplayName,
		Image:       s.account.Image,
	}, true
}

// Token returns the current bearer token, or empty when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Login authenticates against the gateway and stores the account and token.
func (s *Session) Login(ctx context.Context, email, password string) error {
	account, token, err := s.gateway.Login(ctx, email, password)
	if err != nil {
		return failure("login", KindTransport, err)
	}
	s.setAccount(&account, token)
	return nil
}

// Register creates an account and signs in with the returned token.
func (s *Session) Register(ctx context.Context, input RegisterInput) error {
	account, token, err := s.gateway.Register(ctx, input)
	if err != nil {
		return failure("register", KindTransport, err)
	}
	s.setAccount(&account, token)
	return nil
}

// Resume restores a session from a persisted token by fetching the account.
func (s *Session) Resume(ctx context.Context, token string) error {
	s.setAccount(nil, token)
	account, err := s.gateway.CurrentUser(ctx)
	if err != nil {
		s.setAccount(nil, "")
		return failure("resume", KindTransport, err)
	}
	s.mu.Lock()
	s.account = &account
	s.mu.Unlock()
	return nil
}

// Logout clears the account and token.
func (s *Session) Logout() {
	s.setAccount(nil, "")
}

func (s *Session) setAccount(account *Account, token string) {
	s.mu.Lock()
	s.account = account
	s.token = token
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener(token)
	}
}
