// Package auth redeems per-account refresh tokens for short-lived access
// tokens, caching them for the duration of one autopilot run.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"tubepilot/internal/model"
	"tubepilot/internal/store"
)

// ErrMissingCredentials is returned when a task has no account assigned or
// the assigned account no longer exists.
var ErrMissingCredentials = errors.New("no upload account assigned or account missing")

// ConfigError marks a non-retryable credential failure: the provider
// rejected the client id, secret or refresh token.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid OAuth configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// RefreshError marks a transient token refresh failure, retryable on a
// later run.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// TokenCache holds access tokens for one orchestrator run, keyed by account
// id. It is created at the start of a run and discarded at its end; runs
// never share caches, so concurrent invocations cannot corrupt each other.
// Access tokens expire within about an hour, which a single run never
// outlives.
type TokenCache struct {
	tokens map[string]*oauth2.Token
}

// NewTokenCache returns an empty run-scoped cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{tokens: make(map[string]*oauth2.Token)}
}

func (c *TokenCache) get(accountID string) (*oauth2.Token, bool) {
	tok, ok := c.tokens[accountID]
	return tok, ok
}

func (c *TokenCache) put(accountID string, tok *oauth2.Token) {
	c.tokens[accountID] = tok
}

// AccountSource yields stored credential bundles. Satisfied by *store.Store.
type AccountSource interface {
	GetAccount(ctx context.Context, id string) (*model.YoutubeAccount, error)
}

// Resolver turns an account id into a usable access token.
type Resolver struct {
	accounts AccountSource
	client   *http.Client
	tokenURL string
	timeout  time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets the HTTP client used for token endpoint calls.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// WithTokenURL overrides the token endpoint. Used by tests.
func WithTokenURL(u string) Option {
	return func(r *Resolver) { r.tokenURL = u }
}

// WithTimeout bounds each token refresh call.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// NewResolver creates a resolver backed by the given account source.
func NewResolver(accounts AccountSource, opts ...Option) *Resolver {
	r := &Resolver{
		accounts: accounts,
		tokenURL: google.Endpoint.TokenURL,
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns an access token for the account, redeeming the stored
// refresh token on the first resolution within a run and serving from the
// cache afterwards.
func (r *Resolver) Resolve(ctx context.Context, accountID string, cache *TokenCache) (string, error) {
	if accountID == "" {
		return "", ErrMissingCredentials
	}
	if tok, ok := cache.get(accountID); ok && tok.Valid() {
		return tok.AccessToken, nil
	}

	account, err := r.accounts.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrMissingCredentials
		}
		return "", fmt.Errorf("load account %s: %w", accountID, err)
	}
	if account.ClientID == "" || account.ClientSecret == "" || account.RefreshToken == "" {
		return "", &ConfigError{Err: errors.New("account is missing client credentials or refresh token")}
	}

	tok, err := r.redeem(ctx, account)
	if err != nil {
		return "", err
	}

	cache.put(accountID, tok)
	return tok.AccessToken, nil
}

func (r *Resolver) redeem(ctx context.Context, account *model.YoutubeAccount) (*oauth2.Token, error) {
	conf := &oauth2.Config{
		ClientID:     account.ClientID,
		ClientSecret: account.ClientSecret,
		// Pin Google's auth style so the library never probes both header
		// and params variants against the endpoint on a failed refresh.
		Endpoint: oauth2.Endpoint{
			AuthURL:   google.Endpoint.AuthURL,
			TokenURL:  r.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes:      account.Scopes,
		RedirectURL: account.RedirectURI,
	}

	if r.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: account.RefreshToken}).Token()
	if err != nil {
		return nil, classifyRefreshError(err)
	}
	return tok, nil
}

// classifyRefreshError separates provider rejections (bad client config or
// revoked refresh token, not worth retrying) from transient transport and
// server faults.
func classifyRefreshError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil {
			code := retrieveErr.Response.StatusCode
			if code == http.StatusTooManyRequests || code >= 500 {
				return &RefreshError{Err: err}
			}
		}
		return &ConfigError{Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &RefreshError{Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &RefreshError{Err: err}
	}
	return &RefreshError{Err: err}
}

// Verify redeems the account's refresh token once, without caching. Used
// when an account is registered to confirm its credentials work.
func (r *Resolver) Verify(ctx context.Context, account *model.YoutubeAccount) error {
	_, err := r.redeem(ctx, account)
	return err
}
