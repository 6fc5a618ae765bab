// Package auth owns the OAuth2 token lifecycle for the HMRC APIs: the
// authorization-code exchange, expiry tracking, refresh, and durable token
// persistence. The browser interaction itself is delegated to the caller;
// this package only issues the authorize URL and accepts the resulting code.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrUnauthenticated is returned when no usable token exists and the caller
// must run the interactive authentication flow.
var ErrUnauthenticated = errors.New("not authenticated: run authenticate first")

// DefaultRedirectURI is where the authorize flow sends the one-time code;
// Collector listens there.
const DefaultRedirectURI = "http://localhost:9876/auth"

// refreshMargin is the remaining lifetime at which a token is refreshed
// ahead of use rather than risked mid-call.
const refreshMargin = 60 * time.Second

// Scope requested for VAT operations.
const scope = "read:vat+write:vat"

// Config carries the OAuth2 application identity and endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string // e.g. https://www.tax.service.gov.uk/oauth/authorize
	TokenURL     string // e.g. https://api.service.hmrc.gov.uk/oauth/token
	RedirectURI  string // defaults to DefaultRedirectURI
}

// Manager owns the token pair for one configured identity. All mutation is
// guarded by a mutex: at most one exchange or refresh is in flight, and
// concurrent callers waiting for a valid token observe that single result.
type Manager struct {
	cfg   Config
	store Store
	http  *http.Client
	log   *slog.Logger
	now   func() time.Time

	mu     sync.Mutex
	tok    Token
	authed bool
}

// NewManager builds a Manager and loads any persisted token, so a prior
// run's authentication survives process restarts.
func NewManager(cfg Config, store Store, client *http.Client, log *slog.Logger) (*Manager, error) {
	if cfg.RedirectURI == "" {
		cfg.RedirectURI = DefaultRedirectURI
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	m := &Manager{
		cfg:   cfg,
		store: store,
		http:  client,
		log:   log,
		now:   time.Now,
	}

	tok, ok, err := store.Load()
	if err != nil {
		return nil, err
	}
	if ok {
		m.tok = tok
		m.authed = true
		log.Debug("loaded persisted token", "expires", tok.Expires)
	}
	return m, nil
}

// AuthorizeURL returns the URL the user must visit to grant access. The
// one-time code arrives at the redirect URI.
func (m *Manager) AuthorizeURL() string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", m.cfg.ClientID)
	q.Set("scope", scope)
	q.Set("redirect_uri", m.cfg.RedirectURI)
	return m.cfg.AuthorizeURL + "?" + q.Encode()
}

// Exchange trades an authorization code for a token pair, persists it, and
// leaves the manager authenticated.
func (m *Manager) Exchange(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	form := url.Values{}
	form.Set("client_id", m.cfg.ClientID)
	form.Set("client_secret", m.cfg.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", m.cfg.RedirectURI)
	form.Set("code", code)

	tok, err := m.tokenRequest(ctx, form)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}
	return m.adoptLocked(tok)
}

// EnsureValid returns a bearer token with at least the safety margin of
// lifetime left, refreshing first if needed. Callers racing a refresh block
// until it completes and share its result.
func (m *Manager) EnsureValid(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.authed {
		return "", ErrUnauthenticated
	}
	if m.tok.Remaining(m.now()) <= refreshMargin {
		if err := m.refreshLocked(ctx); err != nil {
			return "", err
		}
	}
	return m.tok.AccessToken, nil
}

// ForceRefresh unconditionally refreshes the token pair. Used after the
// remote rejects a token mid-call.
func (m *Manager) ForceRefresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.authed {
		return "", ErrUnauthenticated
	}
	if err := m.refreshLocked(ctx); err != nil {
		return "", err
	}
	return m.tok.AccessToken, nil
}

// Authenticated reports whether a token is held.
func (m *Manager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authed
}

func (m *Manager) refreshLocked(ctx context.Context) error {
	form := url.Values{}
	form.Set("client_id", m.cfg.ClientID)
	form.Set("client_secret", m.cfg.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", m.tok.RefreshToken)

	tok, err := m.tokenRequest(ctx, form)
	if err != nil {
		var re *tokenRejectedError
		if errors.As(err, &re) {
			// The refresh token itself was rejected; only a fresh
			// interactive authentication can recover.
			m.authed = false
			m.tok = Token{}
			if cerr := m.store.Clear(); cerr != nil {
				m.log.Warn("clearing rejected token", "error", cerr)
			}
			return fmt.Errorf("refresh token rejected (%s): %w", re.message, ErrUnauthenticated)
		}
		return fmt.Errorf("refreshing token: %w", err)
	}

	m.log.Debug("token refreshed", "expires", tok.Expires)
	return m.adoptLocked(tok)
}

func (m *Manager) adoptLocked(tok Token) error {
	if err := m.store.Save(tok); err != nil {
		return fmt.Errorf("persisting token: %w", err)
	}
	m.tok = tok
	m.authed = true
	return nil
}

// tokenRejectedError marks a 4xx from the token endpoint, as opposed to a
// transport or server failure.
type tokenRejectedError struct {
	status  int
	message string
}

func (e *tokenRejectedError) Error() string {
	return fmt.Sprintf("token endpoint rejected request (HTTP %d): %s", e.status, e.message)
}

func (m *Manager) tokenRequest(ctx context.Context, form url.Values) (Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	issued := m.now().UTC().Truncate(time.Second)

	resp, err := m.http.Do(req)
	if err != nil {
		return Token{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return Token{}, &tokenRejectedError{status: resp.StatusCode, message: strings.TrimSpace(string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		return Token{}, fmt.Errorf("token endpoint returned HTTP %d: %s", resp.StatusCode, body)
	}

	var res struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return Token{}, fmt.Errorf("parsing token response: %w", err)
	}
	if res.AccessToken == "" {
		return Token{}, fmt.Errorf("token response missing access_token")
	}

	return Token{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    res.TokenType,
		Expires:      issued.Add(time.Duration(res.ExpiresIn) * time.Second),
	}, nil
}
