package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterOpenOnlyForFirstAdmin(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	open, err := e.auth.RegistrationOpen(ctx)
	require.NoError(t, err)
	assert.True(t, open)

	s, err := e.auth.Register(ctx, Credentials{Email: " Root@Example.com ", Password: "secret1", Name: "Root"}, false)
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", s.Admin.Email)
	assert.NotEmpty(t, s.Token)
	assert.NotEqual(t, "secret1", s.Admin.PasswordHash)

	_, err = e.auth.Register(ctx, Credentials{Email: "second@example.com", Password: "secret2"}, false)
	assert.ErrorIs(t, err, ErrAuth)

	_, err = e.auth.Register(ctx, Credentials{Email: "second@example.com", Password: "secret2"}, true)
	assert.NoError(t, err)

	_, err = e.auth.Register(ctx, Credentials{Email: "ROOT@example.com", Password: "secret3"}, true)
	require.ErrorIs(t, err, ErrConflict)
	assert.EqualError(t, err, "Admin already exists")
}

func TestRegisterValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.auth.Register(ctx, Credentials{Email: "not-an-email", Password: "secret1"}, false)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.auth.Register(ctx, Credentials{Email: "a@example.com", Password: "123"}, false)
	assert.ErrorIs(t, err, ErrValidation)

	open, err := e.auth.RegistrationOpen(ctx)
	require.NoError(t, err)
	assert.True(t, open)
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_, err := e.auth.Register(ctx, Credentials{Email: "root@example.com", Password: "secret1"}, false)
	require.NoError(t, err)

	s, err := e.auth.Login(ctx, Credentials{Email: "ROOT@example.com", Password: "secret1"})
	require.NoError(t, err)

	tok, err := e.tokenAuth.Decode(s.Token)
	require.NoError(t, err)
	id, ok := tok.Get("id")
	require.True(t, ok)
	assert.Equal(t, s.Admin.ID.Hex(), id)
	email, ok := tok.Get("email")
	require.True(t, ok)
	assert.Equal(t, "root@example.com", email)
	assert.Equal(t, TokenTTL, tok.Expiration().Sub(tok.IssuedAt()))

	_, err = e.auth.Login(ctx, Credentials{Email: "root@example.com", Password: "wrong!"})
	require.ErrorIs(t, err, ErrAuth)
	assert.EqualError(t, err, "Invalid credentials")

	_, err = e.auth.Login(ctx, Credentials{Email: "nobody@example.com", Password: "secret1"})
	require.ErrorIs(t, err, ErrAuth)
	assert.EqualError(t, err, "Invalid credentials")
}
