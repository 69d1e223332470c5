package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAuthGateway struct {
	account Account
	token   string
	err     error
}

func (g *mockAuthGateway) Login(ctx context.Context, email, password string) (Account, string, error) {
	return g.account, g.token, g.err
}

func (g *mockAuthGateway) Register(ctx context.Context, input RegisterInput) (Account, string, error) {
	return g.account, g.token, g.err
}

func (g *mockAuthGateway) CurrentUser(ctx context.Context) (Account, error) {
	return g.account, g.err
}

func TestSessionLoginStoresAccountAndFiresListener(t *testing.T) {
	gateway := &mockAuthGateway{
		account: Account{Username: "mary", DisplayName: "Mary"},
		token:   "jwt-token",
	}

	var tokens []string
	session := NewSession(gateway, func(token string) {
		tokens = append(tokens, token)
	})

	require.NoError(t, session.Login(context.Background(), "mary@example.com", "secret"))

	assert.True(t, session.LoggedIn())
	assert.Equal(t, "jwt-token", session.Token())

	ident, ok := session.Current()
	require.True(t, ok)
	assert.Equal(t, "mary", ident.Username)
	assert.Equal(t, []string{"jwt-token"}, tokens)
}

func TestSessionLogoutClearsTokenAndNotifies(t *testing.T) {
	gateway := &mockAuthGateway{account: Account{Username: "mary"}, token: "jwt"}

	var tokens []string
	session := NewSession(gateway, func(token string) {
		tokens = append(tokens, token)
	})
	require.NoError(t, session.Login(context.Background(), "mary@example.com", "secret"))

	session.Logout()

	assert.False(t, session.LoggedIn())
	assert.Equal(t, "", session.Token())
	_, ok := session.Current()
	assert.False(t, ok)
	assert.Equal(t, []string{"jwt", ""}, tokens)
}

func TestSessionLoginFailure(t *testing.T) {
	gateway := &mockAuthGateway{err: errors.New("invalid credentials")}
	session := NewSession(gateway, nil)

	err := session.Login(context.Background(), "mary@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.False(t, session.LoggedIn())
}

func TestSessionResumeFetchesAccount(t *testing.T) {
	gateway := &mockAuthGateway{account: Account{Username: "mary"}}
	session := NewSession(gateway, nil)

	require.NoError(t, session.Resume(context.Background(), "persisted-jwt"))
	assert.True(t, session.LoggedIn())
	assert.Equal(t, "persisted-jwt", session.Token())
}
