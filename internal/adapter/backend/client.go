// Package backend is the HTTP adapter to the account backend. It attaches the
// session token to outgoing requests and maps error responses onto domain
// errors.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"accountportal/internal/domain"
)

const (
	pathLogin              = "/auth/login"
	pathRegister           = "/auth/register"
	pathVerifyEmail        = "/auth/verify-email"
	pathResendVerification = "/auth/resend-verification"
	pathForgotPassword     = "/auth/forgot-password"
	pathResetPassword      = "/auth/reset-password"
	pathProfile            = "/users/profile"
	pathChangePassword     = "/users/change-password"
	pathUploadAvatar       = "/users/upload-avatar"
	pathDeleteAvatar       = "/users/delete-avatar"
	pathAdminUsers         = "/users/admin/users"

	maxErrorBody = 64 << 10
)

// Config describes how to reach the backend.
type Config struct {
	URL     string        `env:"BACKEND_URL,required"`
	Timeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`
}

// Client calls the backend over HTTP with JSON bodies. It never retries.
type Client struct {
	base      *url.URL
	transport http.RoundTripper
	timeout   time.Duration
}

var _ domain.Backend = (*Client)(nil)

// New creates a client for the backend at cfg.URL. A nil transport uses
// http.DefaultTransport.
func New(cfg Config, transport http.RoundTripper) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("backend: parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend: unsupported url scheme %q", u.Scheme)
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{base: u, transport: transport, timeout: cfg.Timeout}, nil
}

// httpClient returns a client that presents token as a bearer credential.
func (c *Client) httpClient(token string) *http.Client {
	rt := c.transport
	if token != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.transport,
		}
	}
	return &http.Client{Transport: rt, Timeout: c.timeout}
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (domain.AccessToken, error) {
	var tok domain.AccessToken
	body := map[string]string{"username": username, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, pathLogin, "", body, &tok); err != nil {
		return domain.AccessToken{}, err
	}
	if tok.AccessToken == "" {
		return domain.AccessToken{}, fmt.Errorf("%w: empty access token", domain.ErrBackendUnavailable)
	}
	return tok, nil
}

// CurrentUser fetches the profile of the token's owner.
func (c *Client) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	var u domain.User
	if err := c.doJSON(ctx, http.MethodGet, pathProfile, token, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, r domain.Registration) error {
	return c.doJSON(ctx, http.MethodPost, pathRegister, "", r, nil)
}

// VerifyEmail submits a verification code.
func (c *Client) VerifyEmail(ctx context.Context, email, code string) error {
	return c.doJSON(ctx, http.MethodPost, pathVerifyEmail, "", map[string]string{"email": email, "code": code}, nil)
}

// ResendVerification requests a new verification code.
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, pathResendVerification, "", map[string]string{"email": email}, nil)
}

// ForgotPassword requests a password reset code.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, pathForgotPassword, "", map[string]string{"email": email}, nil)
}

// ResetPassword sets a new password using a reset code.
func (c *Client) ResetPassword(ctx context.Context, r domain.PasswordReset) error {
	return c.doJSON(ctx, http.MethodPost, pathResetPassword, "", r, nil)
}

// UpdateProfile saves the editable profile fields and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, token string, p domain.ProfileUpdate) (*domain.User, error) {
	var u domain.User
	if err := c.doJSON(ctx, http.MethodPut, pathProfile, token, p, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword replaces the password of the token's owner.
func (c *Client) ChangePassword(ctx context.Context, token, current, next string) error {
	body := map[string]string{"current_password": current, "new_password": next}
	return c.doJSON(ctx, http.MethodPost, pathChangePassword, token, body, nil)
}

// UploadAvatar sends the image as multipart field "file".
func (c *Client) UploadAvatar(ctx context.Context, token string, a domain.Avatar) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, a.Filename))
	h.Set("Content-Type", a.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(a.Data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, pathUploadAvatar, token, &buf, mw.FormDataContentType(), nil)
}

// DeleteAvatar removes the avatar of the token's owner.
func (c *Client) DeleteAvatar(ctx context.Context, token string) error {
	return c.doJSON(ctx, http.MethodDelete, pathDeleteAvatar, token, nil, nil)
}

// ListUsers returns every account; the backend restricts it to admins.
func (c *Client) ListUsers(ctx context.Context, token string) ([]domain.UserListItem, error) {
	var items []domain.UserListItem
	if err := c.doJSON(ctx, http.MethodGet, pathAdminUsers, token, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: encode request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, token, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient(token).Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrBackendUnavailable, method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", domain.ErrBackendUnavailable, method, path, err)
	}
	return nil
}

// decodeError reads a {"detail": ...} body. Non-string details (such as
// field error lists) are not shown to users.
func decodeError(resp *http.Response) error {
	apiErr := &domain.APIError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return apiErr
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Detail) == 0 {
		return apiErr
	}
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		apiErr.Detail = strings.TrimSpace(detail)
	}
	return apiErr
}
