package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/GriffinCanCode/formfill/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/formfill/internal/providers/http/client"
	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

// ProxyClient calls the generation proxy over HTTP.
type ProxyClient struct {
	http *client.Client
	url  string
}

// NewProxyClient creates a client for the proxy endpoint at url.
func NewProxyClient(url string, timeout time.Duration) *ProxyClient {
	return &ProxyClient{
		http: client.New(client.Options{
			Name:    "llm-proxy",
			Timeout: timeout,
			Breaker: resilience.Settings{
				// A 5xx from the proxy still carries an answer; only
				// unreachable proxies trip the breaker.
				IsFailure: func(err error) bool {
					var statusErr *client.StatusError
					return err != nil && !errors.As(err, &statusErr)
				},
			},
		}),
		url: url,
	}
}

// BreakerState reports whether calls to the proxy are currently admitted.
func (p *ProxyClient) BreakerState() resilience.State {
	return p.http.BreakerState()
}

// SetAPIKey sets the gateway key sent as the apikey header, needed when the
// proxy runs behind a hosted functions gateway.
func (p *ProxyClient) SetAPIKey(key string) {
	if key != "" {
		p.http.SetHeader("apikey", key)
	}
}

// Generate posts fc to the proxy with accessToken as bearer.
func (p *ProxyClient) Generate(ctx context.Context, accessToken string, fc *types.FieldContext) (Reply, error) {
	resp, err := p.http.Do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetAuthToken(accessToken).
			SetBody(types.GenerationRequest{FieldContext: fc}).
			Post(p.url)
	})
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{Status: resp.StatusCode()}
	if err := sonic.Unmarshal(resp.Body(), &reply.Body); err != nil {
		return Reply{}, fmt.Errorf("proxy returned status %d with an unreadable body", resp.StatusCode())
	}
	if reply.Body.Success && !resp.IsSuccess() {
		reply.Body.Success = false
	}
	return reply, nil
}
