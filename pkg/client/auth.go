package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TokenSource supplies bearer credentials.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Authenticate exchanges a username and password for a bearer token by
// calling GET {endpoint}/login with HTTP basic auth.
func Authenticate(ctx context.Context, httpClient *http.Client, endpoint, username, password string) (string, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	endpoint = strings.TrimSuffix(endpoint, "/")

	slog.Info("performing authentication",
		slog.String("endpoint", endpoint),
		slog.String("username", username),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"/login", nil)
	if err != nil {
		return "", fmt.Errorf("creating login request: %w", err)
	}
	req.SetBasicAuth(username, password)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("reading login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Warn("authorization denied", slog.Int("status", resp.StatusCode))
		return "", &AuthError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", &AuthError{StatusCode: resp.StatusCode, Message: "empty token"}
	}

	slog.Info("logged in", slog.String("username", username))
	return token, nil
}

// loginTimeout bounds a shared login request.
const loginTimeout = 30 * time.Second

// Authenticator is a TokenSource that logs in on first use and caches the
// token until it is invalidated. Concurrent callers share a single login.
type Authenticator struct {
	endpoint   string
	username   string
	password   string
	httpClient *http.Client

	group singleflight.Group

	mu     sync.Mutex
	token  string
	closed bool
}

// NewAuthenticator creates an Authenticator. A nil httpClient uses
// http.DefaultClient.
func NewAuthenticator(endpoint, username, password string, httpClient *http.Client) *Authenticator {
	return &Authenticator{
		endpoint:   endpoint,
		username:   username,
		password:   password,
		httpClient: httpClient,
	}
}

// Token implements TokenSource.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return "", ErrCredentialClosed
	}
	if a.token != "" {
		token := a.token
		a.mu.Unlock()
		return token, nil
	}
	a.mu.Unlock()

	// Detached from ctx: a caller that gives up stops waiting, the login
	// keeps running for the others.
	ch := a.group.DoChan("login", func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loginTimeout)
		defer cancel()

		token, err := Authenticate(lctx, a.httpClient, a.endpoint, a.username, a.password)
		if err != nil {
			return "", err
		}

		a.mu.Lock()
		defer a.mu.Unlock()
		if a.closed {
			return "", ErrCredentialClosed
		}
		a.token = token
		return token, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}

// Invalidate drops the cached token; the next Token call logs in again.
func (a *Authenticator) Invalidate() {
	a.mu.Lock()
	a.token = ""
	a.mu.Unlock()
}

// Close drops the cached token and refuses further logins.
func (a *Authenticator) Close() {
	a.mu.Lock()
	a.token = ""
	a.closed = true
	a.mu.Unlock()
}

// Session is a Client bound to a logged-in credential. Close it when done;
// the credential is unusable afterwards.
type Session struct {
	*Client
	auth *Authenticator
}

// Login authenticates against authEndpoint and returns a Session whose
// requests carry the resulting token. opts configure the underlying Client
// (WithBaseURL is required for API calls; WithHTTPClient also applies to the
// login request). On failure no Session is returned and the credential is
// already invalidated.
func Login(ctx context.Context, authEndpoint, username, password string, opts ...Option) (*Session, error) {
	c := New(opts...)
	auth := NewAuthenticator(authEndpoint, username, password, c.httpClient)

	if _, err := auth.Token(ctx); err != nil {
		auth.Close()
		return nil, err
	}

	c.tokens = auth
	return &Session{Client: c, auth: auth}, nil
}

// Close invalidates the session credential. It is safe to call more than
// once.
func (s *Session) Close() error {
	s.auth.Close()
	return nil
}
