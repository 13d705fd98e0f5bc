package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuagevault/nuagevault/internal/api"
)

func TestRegister_AutoVerify(t *testing.T) {
	env := newTestEnv(t)
	client, store := env.client()

	resp, err := client.Register(context.Background(), "Ann@Example.com", testPassword)
	require.NoError(t, err)
	assert.False(t, resp.NeedVerify)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, 0, env.mail.count())

	token, ok := store.Token()
	assert.True(t, ok)
	assert.Equal(t, resp.AccessToken, token)

	me, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", me.Email)
	assert.Equal(t, resp.UserID, me.UserID)
	assert.True(t, me.IsVerified)
}

func TestRegister_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "ann@example.com")

	client, _ := env.client()
	_, err := client.Register(context.Background(), "ANN@example.com", testPassword)
	require.Error(t, err)
	assert.Equal(t, 400, api.StatusCode(err))
	assert.Equal(t, "email already registered", err.Error())
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	client, _ := env.client()

	tests := []struct {
		name     string
		email    string
		password string
		wantMsg  string
	}{
		{name: "short password", email: "ann@example.com", password: "short", wantMsg: "password must be at least 8 characters"},
		{name: "bad email", email: "not-an-email", password: testPassword, wantMsg: "value is not a valid email address"},
		{name: "missing email", email: "", password: testPassword, wantMsg: "email is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Register(context.Background(), tt.email, tt.password)
			require.Error(t, err)
			assert.Equal(t, 422, api.StatusCode(err))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestVerificationFlow(t *testing.T) {
	env := newTestEnv(t, withoutAutoVerify())
	ctx := context.Background()
	client, store := env.client()

	resp, err := client.Register(ctx, "ann@example.com", testPassword)
	require.NoError(t, err)
	assert.True(t, resp.NeedVerify)
	assert.True(t, resp.EmailSent)
	assert.Empty(t, resp.AccessToken)
	_, ok := store.Token()
	assert.False(t, ok, "unverified signup stays anonymous")

	err = client.Login(ctx, "ann@example.com", testPassword)
	require.Error(t, err)
	assert.Equal(t, 403, api.StatusCode(err))
	assert.Equal(t, "email not verified", err.Error())

	firstToken := env.mail.lastToken(t)
	require.NoError(t, client.ResendVerification(ctx, "ann@example.com"))
	assert.Equal(t, 2, env.mail.count())
	token := env.mail.lastToken(t)
	assert.NotEqual(t, firstToken, token)

	err = client.VerifyEmail(ctx, "ann@example.com", firstToken)
	require.Error(t, err, "resending replaces the previous token")
	assert.Equal(t, "Invalid token", err.Error())

	require.NoError(t, client.VerifyEmail(ctx, "ann@example.com", token))
	require.NoError(t, client.VerifyEmail(ctx, "ann@example.com", token), "verifying twice succeeds")

	require.NoError(t, client.Login(ctx, "ann@example.com", testPassword))
	_, ok = store.Token()
	assert.True(t, ok)
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "ann@example.com")

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "ann@example.com", password: "wrong password"},
		{name: "unknown email", email: "bob@example.com", password: testPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, store := env.client()
			err := client.Login(context.Background(), tt.email, tt.password)
			require.Error(t, err)
			assert.Equal(t, 401, api.StatusCode(err))
			assert.Equal(t, "bad credentials", err.Error())

			_, ok := store.Token()
			assert.False(t, ok)
		})
	}
}

func TestPasswordReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signup(t, "ann@example.com")
	client, _ := env.client()

	require.NoError(t, client.ForgotPassword(ctx, "nobody@example.com"), "unknown addresses are not revealed")
	assert.Equal(t, 0, env.mail.count())

	require.NoError(t, client.ForgotPassword(ctx, "ann@example.com"))
	token := env.mail.lastToken(t)

	err := client.ResetPassword(ctx, "ann@example.com", "deadbeef", "new password 1")
	require.Error(t, err)
	assert.Equal(t, "Invalid token", err.Error())

	require.NoError(t, client.ResetPassword(ctx, "ann@example.com", token, "new password 1"))

	err = client.ResetPassword(ctx, "ann@example.com", token, "new password 2")
	require.Error(t, err, "reset tokens are single use")

	assert.Error(t, client.Login(ctx, "ann@example.com", testPassword))
	assert.NoError(t, client.Login(ctx, "ann@example.com", "new password 1"))
}
