package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// Me returns the authenticated user's profile
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/users/me"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the fields set in update
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	var user User
	err := c.Do(ctx, &Request{Method: http.MethodPut, Path: "/users/me", Body: JSON(update)}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UploadAvatar sends an image as the multipart field "file" and returns the
// new avatar URL
func (c *Client) UploadAvatar(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("failed to read avatar: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to close form: %w", err)
	}

	var resp struct {
		AvatarURL string `json:"avatar_url"`
	}
	err = c.Do(ctx, &Request{
		Method: http.MethodPut,
		Path:   "/users/me/avatar",
		Body:   Binary(&buf, form.FormDataContentType()),
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.AvatarURL, nil
}

// ChangePassword updates the password. A wrong current password is a 400,
// so the session survives it.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.Do(ctx, &Request{
		Method: http.MethodPut,
		Path:   "/users/me/password",
		Body:   JSON(PasswordChange{CurrentPassword: current, NewPassword: next}),
	}, nil)
}

// DeleteAccount removes the account and everything in it, then clears the
// session
func (c *Client) DeleteAccount(ctx context.Context) error {
	if err := c.Do(ctx, &Request{Method: http.MethodDelete, Path: "/users/me"}, nil); err != nil {
		return err
	}
	return c.session.Clear()
}
