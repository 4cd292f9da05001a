package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"spindle/session"
)

func (m *Manager) Login(c *gin.Context) {
	url, err := m.Sessions.LoginURL(c)
	if err != nil {
		log.Errorf("Failed to build login URL: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start login"})
		return
	}
	c.Redirect(http.StatusFound, url)
}

// Callback lands the user back from the authorization page. Outcomes are
// communicated to the app shell via query parameters, never an error page.
func (m *Manager) Callback(c *gin.Context) {
	err := m.Sessions.Complete(c)
	switch {
	case errors.Is(err, session.ErrStateMismatch):
		c.Redirect(http.StatusFound, "/?error=state_mismatch")
	case err != nil:
		log.Errorf("Auth callback failed: %v", err)
		c.Redirect(http.StatusFound, "/?error=auth_failed")
	default:
		c.Redirect(http.StatusFound, "/")
	}
}

func (m *Manager) RefreshToken(c *gin.Context) {
	grant, err := m.Sessions.Refresh(c)
	switch {
	case errors.Is(err, session.ErrNoSession):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No refresh token"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh token"})
	default:
		c.JSON(http.StatusOK, grant)
	}
}

// GetProfile answers 401 on any failure: the dominant cause is a stale
// access token, and the client reacts by refreshing and retrying.
func (m *Manager) GetProfile(c *gin.Context) {
	state := m.Sessions.Current(c)
	if state.AccessToken == "" || m.Sessions.Expired(state) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "needsRefresh": true})
		return
	}

	user, err := m.Catalog.Profile(c.Request.Context(), state.AccessToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "needsRefresh": true})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (m *Manager) CheckAuth(c *gin.Context) {
	state := m.Sessions.Current(c)
	if !state.Authenticated() {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	payload := gin.H{
		"authenticated": true,
		"expired":       m.Sessions.Expired(state),
	}
	if state.AccessToken != "" {
		payload["access_token"] = state.AccessToken
	}
	if state.RefreshToken != "" {
		payload["refresh_token"] = state.RefreshToken
	}
	c.JSON(http.StatusOK, payload)
}

func (m *Manager) Logout(c *gin.Context) {
	m.Sessions.Clear(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
