package keystore

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/GriffinCanCode/formfill/internal/providers/http/client"
)

// codeNoRows is PostgREST's error code for a single-object request that
// matched zero rows.
const codeNoRows = "PGRST116"

// PostgREST reads keys from the hosted table using the service role key.
type PostgREST struct {
	http   *client.Client
	sealer *Sealer
}

type keyRow struct {
	UserID          string `json:"user_id,omitempty"`
	APIKeyEncrypted string `json:"api_key_encrypted"`
}

type postgrestError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// NewPostgREST creates a reader for the Supabase project at baseURL.
func NewPostgREST(baseURL, serviceRoleKey string, sealer *Sealer, timeout time.Duration) *PostgREST {
	c := client.New(client.Options{
		Name:    "supabase-rest",
		BaseURL: strings.TrimRight(baseURL, "/") + "/rest/v1",
		Timeout: timeout,
	})
	c.SetHeader("apikey", serviceRoleKey)
	c.SetHeader("Authorization", "Bearer "+serviceRoleKey)
	return &PostgREST{http: c, sealer: sealer}
}

// APIKey returns the user's key, ErrNotFound when no row exists.
func (p *PostgREST) APIKey(ctx context.Context, userID string) (string, error) {
	var row keyRow
	resp, err := p.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetHeader("Accept", "application/vnd.pgrst.object+json").
			SetQueryParams(map[string]string{
				"select":  "api_key_encrypted",
				"user_id": "eq." + userID,
			}).
			SetResult(&row).
			Get("/" + Table)
	})
	if err != nil {
		return "", err
	}

	if !resp.IsSuccess() {
		var pgErr postgrestError
		_ = sonic.Unmarshal(resp.Body(), &pgErr)
		if pgErr.Code == codeNoRows {
			return "", fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		if pgErr.Message == "" {
			pgErr.Message = http.StatusText(resp.StatusCode())
		}
		return "", fmt.Errorf("key lookup returned status %d (%s): %s", resp.StatusCode(), pgErr.Code, pgErr.Message)
	}

	if row.APIKeyEncrypted == "" {
		return "", ErrEmptyKey
	}
	return p.sealer.Open(row.APIKeyEncrypted)
}

// PutAPIKey upserts the user's key.
func (p *PostgREST) PutAPIKey(ctx context.Context, userID, apiKey string) error {
	sealed, err := p.sealer.Seal(apiKey)
	if err != nil {
		return err
	}

	resp, err := p.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetHeader("Prefer", "resolution=merge-duplicates").
			SetQueryParam("on_conflict", "user_id").
			SetBody([]keyRow{{UserID: userID, APIKeyEncrypted: sealed}}).
			Post("/" + Table)
	})
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("key upsert returned status %d", resp.StatusCode())
	}
	return nil
}
