package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accountportal/internal/domain"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{URL: srv.URL, Timeout: 5 * time.Second}, nil)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RejectsBadScheme(t *testing.T) {
	_, err := New(Config{URL: "ftp://example.com"}, nil)
	assert.Error(t, err)
}

func TestLogin_SendsCredentialsWithoutBearer(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "T1", "token_type": "bearer"})
	}))

	tok, err := c.Login(context.Background(), "alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "T1", tok.AccessToken)
	assert.Equal(t, map[string]string{"username": "alice", "password": "password123"}, got)
}

func TestLogin_EmptyTokenIsAnError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"token_type": "bearer"})
	}))

	_, err := c.Login(context.Background(), "alice", "password123")
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
	}))

	_, err := c.Login(context.Background(), "alice", "wrongpass1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, "Incorrect username or password", domain.UserMessage(err, "fallback"))
}

func TestCurrentUser_AttachesBearerToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/profile", r.URL.Path)
		assert.Equal(t, "Bearer T1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"id": 7, "username": "alice", "email": "alice@example.com", "role": "admin",
			"is_verified": true, "is_active": true, "created_at": "2024-01-02T03:04:05Z",
		})
	}))

	u, err := c.CurrentUser(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.True(t, u.IsAdmin())
}

func TestAuthorizedCall_Unauthorized(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
	}))

	_, err := c.ListUsers(context.Background(), "expired")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantDetail  string
		unavailable bool
	}{
		{name: "string detail", status: http.StatusBadRequest, body: `{"detail":"Username already registered"}`, wantDetail: "Username already registered"},
		{name: "list detail", status: http.StatusUnprocessableEntity, body: `{"detail":[{"loc":["body","email"],"msg":"bad"}]}`},
		{name: "not json", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, unavailable: true},
		{name: "empty body", status: http.StatusInternalServerError, unavailable: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			err := c.Register(context.Background(), domain.Registration{Username: "bob"})
			var apiErr *domain.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
			assert.Equal(t, tt.unavailable, errors.Is(err, domain.ErrBackendUnavailable))
		})
	}
}

func TestNetworkFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{URL: url, Timeout: time.Second}, nil)
	require.NoError(t, err)

	err = c.ForgotPassword(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestChangePassword_Payload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/change-password", r.URL.Path)
		assert.Equal(t, "Bearer T1", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "oldpassword", body["current_password"])
		assert.Equal(t, "newpassword", body["new_password"])
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, c.ChangePassword(context.Background(), "T1", "oldpassword", "newpassword"))
}

func TestUploadAvatar_Multipart(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/upload-avatar", r.URL.Path)
		assert.Equal(t, "Bearer T1", r.Header.Get("Authorization"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close() //nolint:errcheck
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, png, data)
		assert.Equal(t, "me.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		writeJSON(w, http.StatusOK, map[string]string{"avatar_url": "/static/avatars/7.png"})
	}))

	err := c.UploadAvatar(context.Background(), "T1", domain.Avatar{Filename: "me.png", ContentType: "image/png", Data: png})
	require.NoError(t, err)
}

func TestDeleteAvatarAndUpdateProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /users/delete-avatar", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	})
	mux.HandleFunc("PUT /users/profile", func(w http.ResponseWriter, r *http.Request) {
		var p domain.ProfileUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "username": "alice", "first_name": p.FirstName, "created_at": "2024-01-02T03:04:05Z"})
	})
	c := newTestClient(t, mux)

	require.NoError(t, c.DeleteAvatar(context.Background(), "T1"))
	u, err := c.UpdateProfile(context.Background(), "T1", domain.ProfileUpdate{FirstName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.FirstName)
}
