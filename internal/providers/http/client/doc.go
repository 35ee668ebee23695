// Package client provides the outbound HTTP client shared by the identity,
// key store, vendor and relay-to-proxy integrations.
//
// Built on go-resty/resty over a pooled go-retryablehttp transport:
//   - no retries: every upstream call happens at most once
//   - per-client rate limiting
//   - a circuit breaker that fails fast while an upstream is down
//   - trace headers copied from the request context
//   - sonic for JSON encoding
//
// Example Usage:
//
//	c := client.New(client.Options{Name: "supabase", BaseURL: url, Timeout: 10 * time.Second})
//	resp, err := c.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
//		return r.SetAuthToken(jwt).Get("/auth/v1/user")
//	})
package client
