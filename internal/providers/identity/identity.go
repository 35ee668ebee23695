// Package identity talks to the Supabase GoTrue identity provider: it
// validates bearer tokens for the proxy and performs password logins for the
// relay CLI.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/GriffinCanCode/formfill/internal/providers/http/client"
)

var (
	// ErrInvalidToken is returned when the provider rejects a bearer token.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidCredentials is returned when a password login is rejected.
	ErrInvalidCredentials = errors.New("invalid login credentials")
)

// User is the authenticated principal.
type User struct {
	ID    string `json:"id" yaml:"id"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	Role  string `json:"role,omitempty" yaml:"role,omitempty"`
}

// Session is a bearer token with its expiry, as issued by a login.
type Session struct {
	AccessToken  string    `json:"access_token" yaml:"access_token"`
	TokenType    string    `json:"token_type" yaml:"token_type"`
	RefreshToken string    `json:"refresh_token,omitempty" yaml:"refresh_token,omitempty"`
	ExpiresIn    int64     `json:"expires_in" yaml:"-"`
	ExpiresAt    int64     `json:"expires_at" yaml:"expires_at"`
	User         User      `json:"user" yaml:"user"`
	IssuedAt     time.Time `json:"-" yaml:"issued_at"`
}

// Expired reports whether the token is past its expiry at now. A session
// without an expiry never expires.
func (s *Session) Expired(now time.Time) bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return !now.Before(time.Unix(s.ExpiresAt, 0))
}

// Supabase is a GoTrue client.
type Supabase struct {
	http    *client.Client
	anonKey string
}

// NewSupabase creates a client for the project at baseURL.
func NewSupabase(baseURL, anonKey string, timeout time.Duration) *Supabase {
	c := client.New(client.Options{
		Name:    "supabase-auth",
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: timeout,
	})
	c.SetHeader("apikey", anonKey)
	return &Supabase{http: c, anonKey: anonKey}
}

// User validates jwt and returns its owner. Any rejection by the provider is
// ErrInvalidToken; transport failures are returned wrapped.
func (s *Supabase) User(ctx context.Context, jwt string) (*User, error) {
	var user User
	resp, err := s.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetAuthToken(jwt).SetResult(&user).Get("/auth/v1/user")
	})
	if err != nil {
		return nil, err
	}

	switch {
	case resp.IsSuccess():
		if user.ID == "" {
			return nil, ErrInvalidToken
		}
		return &user, nil
	case resp.StatusCode() == http.StatusUnauthorized, resp.StatusCode() == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, errorMessage(resp))
	default:
		return nil, fmt.Errorf("identity provider returned status %d: %s", resp.StatusCode(), errorMessage(resp))
	}
}

// PasswordLogin exchanges an email and password for a session.
func (s *Supabase) PasswordLogin(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	resp, err := s.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetQueryParam("grant_type", "password").
			SetBody(map[string]string{"email": email, "password": password}).
			SetResult(&session).
			Post("/auth/v1/token")
	})
	if err != nil {
		return nil, err
	}

	switch {
	case resp.IsSuccess():
		session.IssuedAt = time.Now()
		if session.ExpiresAt == 0 && session.ExpiresIn > 0 {
			session.ExpiresAt = session.IssuedAt.Add(time.Duration(session.ExpiresIn) * time.Second).Unix()
		}
		return &session, nil
	case resp.StatusCode() == http.StatusBadRequest, resp.StatusCode() == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, errorMessage(resp))
	default:
		return nil, fmt.Errorf("identity provider returned status %d: %s", resp.StatusCode(), errorMessage(resp))
	}
}

type errorBody struct {
	Message          string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// errorMessage extracts the GoTrue error text, which moved between fields
// across GoTrue versions.
func errorMessage(resp *resty.Response) string {
	var body errorBody
	if err := sonic.Unmarshal(resp.Body(), &body); err == nil {
		for _, msg := range []string{body.ErrorDescription, body.Message, body.Error} {
			if msg != "" {
				return msg
			}
		}
	}
	return http.StatusText(resp.StatusCode())
}
