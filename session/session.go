// Package session manages the user-facing OAuth flows. Tokens live in
// client-visible cookies; the server keeps no session storage of its own.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

const (
	accessCookie  = "spotify_access_token"
	refreshCookie = "spotify_refresh_token"
	expiryCookie  = "spotify_expires_at"
	stateCookie   = "spotify_auth_state"

	stateTTL   = 5 * time.Minute
	refreshTTL = 30 * 24 * time.Hour

	// assumed when the token endpoint omits expires_in
	defaultLifetime = 3600
)

var (
	// ErrStateMismatch means the callback state did not match the cookie.
	ErrStateMismatch = errors.New("auth state mismatch")
	// ErrExchange means the authorization code exchange failed.
	ErrExchange = errors.New("code exchange failed")
	// ErrNoSession means no refresh token is available for this user.
	ErrNoSession = errors.New("no active session")
	// ErrRefresh means the refresh grant was rejected; the user must log in
	// again.
	ErrRefresh = errors.New("token refresh failed")
)

// State is the raw session view read from a request's cookies.
type State struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Authenticated reports whether any session material is present.
func (s State) Authenticated() bool {
	return s.AccessToken != "" || s.RefreshToken != ""
}

// Grant is the renewed access grant answered to the client.
type Grant struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Manager drives login, callback, refresh, and logout against the Spotify
// accounts service.
type Manager struct {
	oauth  *oauth2.Config
	now    func() time.Time
	secure bool

	exchange func(ctx context.Context, code string) (*oauth2.Token, error)
	refresh  func(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

func NewManager(clientID, clientSecret, redirectURI string) *Manager {
	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
		Scopes: []string{
			spotifyauth.ScopeStreaming,
			spotifyauth.ScopeUserReadEmail,
			spotifyauth.ScopeUserReadPrivate,
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopeUserModifyPlaybackState,
		},
	}

	m := &Manager{
		oauth: config,
		now:   time.Now,
	}
	m.exchange = func(ctx context.Context, code string) (*oauth2.Token, error) {
		return config.Exchange(ctx, code)
	}
	m.refresh = func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
		return config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	}
	return m
}

// LoginURL stores a fresh CSRF state cookie and returns the authorization
// URL the user agent should be redirected to.
func (m *Manager) LoginURL(c *gin.Context) (string, error) {
	state, err := randomState()
	if err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	m.setCookie(c, stateCookie, state, int(stateTTL/time.Second))
	return m.oauth.AuthCodeURL(state), nil
}

// Complete finishes the authorization-code flow: it validates the CSRF
// state, exchanges the code, and persists the session cookies. The state
// cookie is cleared no matter the outcome.
func (m *Manager) Complete(c *gin.Context) error {
	storedState, err := c.Cookie(stateCookie)
	m.expireCookie(c, stateCookie)
	if err != nil || storedState == "" || c.Query("state") != storedState {
		log.Warn("Auth callback state mismatch")
		return ErrStateMismatch
	}

	if errParam := c.Query("error"); errParam != "" {
		return fmt.Errorf("%w: provider returned %q", ErrExchange, errParam)
	}
	code := c.Query("code")
	if code == "" {
		return fmt.Errorf("%w: missing code", ErrExchange)
	}

	span := sentry.StartSpan(c.Request.Context(), "spotify.exchange_code")
	span.Description = "Authorization code exchange"
	defer span.Finish()

	tok, err := m.exchange(c.Request.Context(), code)
	if err != nil {
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return fmt.Errorf("%w: %v", ErrExchange, err)
	}
	span.Status = sentry.SpanStatusOK

	grant := m.accessGrant(tok)
	m.setCookie(c, accessCookie, grant.AccessToken, grant.ExpiresIn)
	m.setCookie(c, expiryCookie, strconv.FormatInt(grant.ExpiresAt, 10), grant.ExpiresIn)
	if tok.RefreshToken != "" {
		m.setCookie(c, refreshCookie, tok.RefreshToken, int(refreshTTL/time.Second))
	}
	log.Debug("User session established")
	return nil
}

// Refresh exchanges the refresh-token cookie for a new access token and
// updates the access and expiry cookies. The refresh token is not rotated.
func (m *Manager) Refresh(c *gin.Context) (*Grant, error) {
	refreshToken, err := c.Cookie(refreshCookie)
	if err != nil || refreshToken == "" {
		return nil, ErrNoSession
	}

	span := sentry.StartSpan(c.Request.Context(), "spotify.refresh_token")
	span.Description = "Refresh token grant"
	defer span.Finish()

	tok, err := m.refresh(c.Request.Context(), refreshToken)
	if err != nil {
		log.Warnf("Refresh grant rejected: %v", err)
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return nil, fmt.Errorf("%w: %v", ErrRefresh, err)
	}
	span.Status = sentry.SpanStatusOK

	grant := m.accessGrant(tok)
	m.setCookie(c, accessCookie, grant.AccessToken, grant.ExpiresIn)
	m.setCookie(c, expiryCookie, strconv.FormatInt(grant.ExpiresAt, 10), grant.ExpiresIn)
	return grant, nil
}

// Current reads the session cookies without touching the network.
func (m *Manager) Current(c *gin.Context) State {
	var s State
	if v, err := c.Cookie(accessCookie); err == nil {
		s.AccessToken = v
	}
	if v, err := c.Cookie(refreshCookie); err == nil {
		s.RefreshToken = v
	}
	if v, err := c.Cookie(expiryCookie); err == nil {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.ExpiresAt = time.UnixMilli(ms)
		}
	}
	return s
}

// Expired reports whether the session's access token is past its expiry.
func (m *Manager) Expired(s State) bool {
	if s.AccessToken == "" {
		return true
	}
	return !s.ExpiresAt.IsZero() && !m.now().Before(s.ExpiresAt)
}

// Bearer returns the user's access token when present and unexpired.
func (m *Manager) Bearer(c *gin.Context) (string, bool) {
	s := m.Current(c)
	if s.AccessToken != "" && !m.Expired(s) {
		return s.AccessToken, true
	}
	return "", false
}

// Clear drops the session cookies. Safe to call with none set.
func (m *Manager) Clear(c *gin.Context) {
	m.expireCookie(c, accessCookie)
	m.expireCookie(c, refreshCookie)
	m.expireCookie(c, expiryCookie)
}

func (m *Manager) accessGrant(tok *oauth2.Token) *Grant {
	expiresIn := defaultLifetime
	if !tok.Expiry.IsZero() {
		if secs := int(tok.Expiry.Sub(m.now()) / time.Second); secs > 0 {
			expiresIn = secs
		}
	}
	return &Grant{
		AccessToken: tok.AccessToken,
		ExpiresIn:   expiresIn,
		ExpiresAt:   m.now().Add(time.Duration(expiresIn) * time.Second).UnixMilli(),
	}
}

func (m *Manager) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", m.secure, true)
}

func (m *Manager) expireCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", m.secure, true)
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
