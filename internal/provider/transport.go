package provider

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// NewTransport returns a tuned *http.Transport with connection pooling
// and optional DNS caching. openTimeout bounds the wait for response
// headers -- the stream-open deadline -- without ever truncating an
// in-progress stream body.
func NewTransport(resolver *dnscache.Resolver, forceHTTP2 bool, openTimeout time.Duration) *http.Transport {
	t := &http.Transport{
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       200,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     forceHTTP2,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: openTimeout,
	}
	if resolver != nil {
		t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(ips[0], port))
		}
	}
	return t
}

// bearerTransport injects a static Authorization header.
type bearerTransport struct {
	base  http.RoundTripper
	token string
}

func (bt *bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	// Clone so retries and redirects never see a mutated original.
	out := r.Clone(r.Context())
	out.Header.Set("Authorization", "Bearer "+bt.token)
	return bt.base.RoundTrip(out)
}

// NewAPIKeyClient returns an *http.Client that authenticates every
// request with a bearer API key.
func NewAPIKeyClient(base http.RoundTripper, apiKey string) *http.Client {
	return &http.Client{Transport: &bearerTransport{base: base, token: apiKey}}
}

// NewOAuthClient returns an *http.Client that authenticates with the
// OAuth2 client-credentials flow, refreshing tokens as needed. Used for
// self-hosted or enterprise upstreams fronted by an identity provider.
func NewOAuthClient(ctx context.Context, base http.RoundTripper, tokenURL, clientID, clientSecret string, scopes []string) *http.Client {
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: base})
	return cc.Client(ctx)
}
