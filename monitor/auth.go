package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"api-monitor/model"
	"api-monitor/pkg/logger"

	"go.uber.org/zap"
)

const (
	DefaultLoginTimeout = 30 * time.Second

	// tokenRefreshBuffer is how close to expiry a cached token may get before it is replaced.
	tokenRefreshBuffer = 60 * time.Second
	loginSnippetLength = 200
	maxLoginBodyBytes  = 1 << 20
)

type AuthErrorKind string

const (
	AuthErrTransport AuthErrorKind = "transport"
	AuthErrStatus    AuthErrorKind = "status"
	AuthErrMalformed AuthErrorKind = "malformed"
	AuthErrTokenPath AuthErrorKind = "token_path"
)

// AuthError is returned for every failed login.
type AuthError struct {
	Kind       AuthErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// Authenticator logs in against auth profiles and caches the resulting tokens.
type Authenticator struct {
	store   TokenStore
	timeout time.Duration
	clients httpClients
	now     func() time.Time
}

func NewAuthenticator(store TokenStore, timeout time.Duration) *Authenticator {
	if store == nil {
		store = NewMemoryTokenStore()
	}
	if timeout <= 0 {
		timeout = DefaultLoginTimeout
	}
	return &Authenticator{
		store:   store,
		timeout: timeout,
		clients: newHTTPClients(),
		now:     time.Now,
	}
}

// GetToken returns a cached token for the profile, logging in when the
// cache is empty or the token expires within a minute.
func (a *Authenticator) GetToken(ctx context.Context, profile *model.AuthProfile) (string, error) {
	now := a.now()
	if entry, ok := a.store.Load(ctx, profile.ID); ok && entry.ExpiresAt.After(now.Add(tokenRefreshBuffer)) {
		return entry.Token, nil
	}

	token, err := a.FetchToken(ctx, profile)
	if err != nil {
		return "", err
	}
	a.store.Save(ctx, profile.ID, model.TokenCacheEntry{
		Token:     token,
		ExpiresAt: now.Add(profile.TokenLifetime()),
	})
	logger.Debug("Cached auth token", zap.String("profile", profile.Name))
	return token, nil
}

// FetchToken performs the login request without touching the cache.
func (a *Authenticator) FetchToken(ctx context.Context, profile *model.AuthProfile) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	method := profile.LoginMethod
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if method == http.MethodPost && len(profile.LoginBody) > 0 {
		payload, err := json.Marshal(profile.LoginBody)
		if err != nil {
			return "", &AuthError{Kind: AuthErrMalformed, Message: fmt.Sprintf("Invalid login body: %v", err), Err: err}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, profile.LoginURL, body)
	if err != nil {
		return "", &AuthError{Kind: AuthErrTransport, Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := a.clients.pick(profile.SkipSSLVerify).Do(req)
	if err != nil {
		return "", &AuthError{Kind: AuthErrTransport, Message: requestErrorMessage(ctx, err, a.timeout), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxLoginBodyBytes))
	if err != nil {
		return "", &AuthError{Kind: AuthErrTransport, Message: requestErrorMessage(ctx, err, a.timeout), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return "", &AuthError{
			Kind:       AuthErrStatus,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Login failed with status %d: %s", resp.StatusCode, truncate(string(raw), loginSnippetLength)),
		}
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", &AuthError{Kind: AuthErrMalformed, Message: fmt.Sprintf("Invalid JSON in login response: %v", err), Err: err}
	}

	token, err := ExtractTokenPath(data, profile.TokenPath)
	if err != nil {
		return "", &AuthError{Kind: AuthErrTokenPath, Message: err.Error(), Err: err}
	}
	return token, nil
}

// ClearTokenCache drops every cached token.
func (a *Authenticator) ClearTokenCache(ctx context.Context) {
	a.store.Clear(ctx)
}

// BuildAuthHeader returns the header name and value carrying token.
func BuildAuthHeader(profile *model.AuthProfile, token string) (string, string) {
	name := profile.HeaderName
	if name == "" {
		name = "Authorization"
	}
	switch profile.TokenType {
	case model.TokenTypeBearer:
		return name, "Bearer " + token
	case model.TokenTypeBasic:
		return name, "Basic " + token
	default:
		return name, token
	}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
