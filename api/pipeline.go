package api

import (
	"context"

	"github.com/pkg/errors"
)

// TokenSource supplies bearer credentials for outbound requests and performs
// the refresh operation when the remote API rejects them. The session manager
// is the production implementation.
type TokenSource interface {
	// AccessToken returns the current access token, or "" when anonymous.
	AccessToken() string
	// CanRefresh reports whether a refresh token is available. When it
	// returns false the pipeline never attempts a refresh.
	CanRefresh() bool
	// RefreshAccessToken obtains a new access/refresh pair. Implementations
	// must deduplicate concurrent calls and clear the session on failure.
	RefreshAccessToken(ctx context.Context) error
}

// Pipeline wraps a Client with auth-header injection and a single automatic
// refresh-and-retry on authorization failure. The retry decision is a local
// value in Do rather than a flag stamped onto a shared request object, so
// state cannot leak across calls.
type Pipeline struct {
	client *Client
	tokens TokenSource
}

// NewPipeline creates a Pipeline dispatching through client and authenticating
// via tokens.
func NewPipeline(client *Client, tokens TokenSource) (*Pipeline, error) {
	if client == nil {
		return nil, errors.New("[NewPipeline] client is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewPipeline] token source is required")
	}
	return &Pipeline{client: client, tokens: tokens}, nil
}

// Do dispatches an authenticated API call. On an authorization failure with a
// refresh token available it refreshes once and re-dispatches the original
// request exactly once; the result of that retry is final. A refresh failure
// propagates unchanged (the token source has already torn the session down).
func (p *Pipeline) Do(ctx context.Context, method, path string, body, out any) error {
	// Refresh ahead of dispatch when the current token is known to be
	// expired. Saves a guaranteed 401 round trip; opaque tokens skip this.
	if p.tokens.CanRefresh() && tokenExpired(p.tokens.AccessToken()) {
		if err := p.tokens.RefreshAccessToken(ctx); err != nil {
			return err
		}
	}

	err := p.client.Do(ctx, method, path, p.tokens.AccessToken(), body, out)
	if err == nil || !IsAuthorizationFailure(err) || !p.tokens.CanRefresh() {
		return err
	}

	if refreshErr := p.tokens.RefreshAccessToken(ctx); refreshErr != nil {
		return refreshErr
	}

	return p.client.Do(ctx, method, path, p.tokens.AccessToken(), body, out)
}
