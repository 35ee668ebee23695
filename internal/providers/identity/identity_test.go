package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoTrue(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_, _ = w.Write([]byte(`{"id":"user-1","email":"ada@example.com","role":"authenticated"}`))
		case "Bearer broken":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"msg":"database unavailable"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT: token is expired"}`))
		}
	})
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))

		w.Header().Set("Content-Type", "application/json")
		if creds["password"] != "hunter2" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"jwt-1","token_type":"bearer","expires_in":3600,"refresh_token":"r-1","user":{"id":"user-1","email":"ada@example.com"}}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestUser(t *testing.T) {
	server := newGoTrue(t)
	provider := NewSupabase(server.URL+"/", "anon-key", 5*time.Second)
	ctx := context.Background()

	user, err := provider.User(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "ada@example.com", user.Email)

	_, err = provider.User(ctx, "expired")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Contains(t, err.Error(), "token is expired")

	_, err = provider.User(ctx, "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
	assert.Contains(t, err.Error(), "database unavailable")
}

func TestPasswordLogin(t *testing.T) {
	server := newGoTrue(t)
	provider := NewSupabase(server.URL, "anon-key", 5*time.Second)

	before := time.Now()
	session, err := provider.PasswordLogin(context.Background(), "ada@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", session.AccessToken)
	assert.Equal(t, "user-1", session.User.ID)
	assert.InDelta(t, before.Add(time.Hour).Unix(), session.ExpiresAt, 2)
	assert.False(t, session.Expired(time.Now()))
	assert.True(t, session.Expired(time.Now().Add(2*time.Hour)))

	_, err = provider.PasswordLogin(context.Background(), "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestUserTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewSupabase(url, "anon-key", time.Second).User(context.Background(), "good")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestSessionWithoutExpiry(t *testing.T) {
	s := &Session{AccessToken: "jwt"}
	assert.False(t, s.Expired(time.Now().Add(24*time.Hour)))
}
