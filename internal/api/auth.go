package api

import (
	"context"
	"fmt"
	"net/http"
)

// Health checks the API liveness endpoint
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var health Health
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/health"}, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Login exchanges credentials for an access token and stores it in the
// session, which notifies every subscriber.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp LoginResponse
	err := c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/login",
		Body:   JSON(Credentials{Email: email, Password: password}),
	}, &resp)
	if err != nil {
		return err
	}
	if resp.AccessToken == "" {
		return fmt.Errorf("login response did not include an access token")
	}
	return c.storeToken(resp.AccessToken)
}

// Register creates an account. When the server auto-verifies and returns a
// token the session is populated, leaving the caller logged in.
func (c *Client) Register(ctx context.Context, email, password string) (*RegisterResponse, error) {
	var resp RegisterResponse
	err := c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/register",
		Body:   JSON(Credentials{Email: email, Password: password}),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken != "" {
		if err := c.storeToken(resp.AccessToken); err != nil {
			return &resp, err
		}
	}
	return &resp, nil
}

// Logout clears the session. There is no server-side logout.
func (c *Client) Logout() error {
	return c.session.Clear()
}

func (c *Client) VerifyEmail(ctx context.Context, email, token string) error {
	return c.postOK(ctx, "/auth/verify", map[string]string{"email": email, "token": token})
}

func (c *Client) ResendVerification(ctx context.Context, email string) error {
	return c.postOK(ctx, "/auth/resend-verification", map[string]string{"email": email})
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.postOK(ctx, "/auth/forgot-password", map[string]string{"email": email})
}

func (c *Client) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	return c.postOK(ctx, "/auth/reset-password", map[string]string{
		"email":        email,
		"token":        token,
		"new_password": newPassword,
	})
}

func (c *Client) postOK(ctx context.Context, path string, body any) error {
	var resp okResponse
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: JSON(body)}, &resp)
}

func (c *Client) storeToken(token string) error {
	return c.session.SetToken(token)
}
