package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/formfill/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

func TestProxyClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer user-jwt", r.Header.Get("Authorization"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"fieldContext":{"placeholder":"Write a bio","fieldType":"textarea","sourceElementId":"bio"}}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"generatedText":"Hi"}`)
	}))
	defer server.Close()

	p := NewProxyClient(server.URL, time.Second)
	p.SetAPIKey("anon-key")

	reply, err := p.Generate(context.Background(), "user-jwt", bio())
	require.NoError(t, err)
	assert.Equal(t, Reply{Status: http.StatusOK, Body: types.Succeeded("Hi")}, reply)
}

func TestProxyClientErrorReplies(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Reply
		err    bool
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"success":false,"error":"Invalid or expired JWT."}`,
			want:   Reply{Status: http.StatusUnauthorized, Body: types.Failed("Invalid or expired JWT.")},
		},
		{
			name:   "bad gateway",
			status: http.StatusBadGateway,
			body:   `{"success":false,"error":"OpenAI API error: quota exceeded"}`,
			want:   Reply{Status: http.StatusBadGateway, Body: types.Failed("OpenAI API error: quota exceeded")},
		},
		{
			name:   "success flag on an error status",
			status: http.StatusInternalServerError,
			body:   `{"success":true,"generatedText":"?"}`,
			want:   Reply{Status: http.StatusInternalServerError, Body: types.GenerationResponse{GeneratedText: "?"}},
		},
		{
			name:   "html error page",
			status: http.StatusServiceUnavailable,
			body:   `<html>down</html>`,
			err:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			reply, err := NewProxyClient(server.URL, time.Second).Generate(context.Background(), "jwt", bio())
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, reply)
		})
	}
}

func TestProxyClientNeverRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"success":false,"error":"Internal server error."}`)
	}))
	defer server.Close()

	p := NewProxyClient(server.URL, time.Second)
	for i := 0; i < 15; i++ {
		_, err := p.Generate(context.Background(), "jwt", bio())
		require.NoError(t, err)
	}
	assert.Equal(t, 15, calls)
	assert.Equal(t, resilience.StateClosed, p.BreakerState(), "proxy answers do not trip the breaker")
}

func TestProxyClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewProxyClient(url, time.Second).Generate(context.Background(), "jwt", bio())
	assert.Error(t, err)
}
