package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"spindle/session"
)

// Handlers that proxy to the catalog need live upstream clients; those code
// paths are exercised in the catalog, token, and session packages with
// their own seams. The tests here cover everything the handlers decide on
// their own: validation, cookie handling, and redirects.

func testManager() *Manager {
	return NewManager(nil, session.NewManager("client-id", "client-secret", "http://localhost:3000/callback"), nil, nil)
}

func testContext(t *testing.T, method, target string, cookies ...*http.Cookie) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	for _, ck := range cookies {
		c.Request.AddCookie(ck)
	}
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return body
}

func findCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func sessionCookies(expiresAt time.Time) []*http.Cookie {
	return []*http.Cookie{
		{Name: "spotify_access_token", Value: "user-token"},
		{Name: "spotify_refresh_token", Value: "refresh-token"},
		{Name: "spotify_expires_at", Value: strconv.FormatInt(expiresAt.UnixMilli(), 10)},
	}
}

func TestSearchArtistRequiresName(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing param", "/api/spotify/artist"},
		{"empty param", "/api/spotify/artist?name="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testManager()
			c, w := testContext(t, http.MethodGet, tt.target)

			m.SearchArtist(c)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d; want 400", w.Code)
			}
			body := decodeBody(t, w)
			if body["error"] != "Artist name is required" {
				t.Errorf("error = %v; want 'Artist name is required'", body["error"])
			}
		})
	}
}

func TestGetLyricsRequiresTrack(t *testing.T) {
	m := testManager()
	c, w := testContext(t, http.MethodGet, "/api/lyrics?artist=Muse")

	m.GetLyrics(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != "Track name is required" {
		t.Errorf("error = %v; want 'Track name is required'", body["error"])
	}
}

func TestHomeServesShell(t *testing.T) {
	m := testManager()
	c, w := testContext(t, http.MethodGet, "/")

	m.Home(c)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	if got := w.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
		t.Errorf("Content-Type = %s; want text/html", got)
	}
	if !strings.Contains(w.Body.String(), "<html") {
		t.Error("body does not look like an HTML document")
	}
}

// TestBearerPrefersUserCookie verifies a valid user session short-circuits
// the app-token fallback: with Tokens nil, reaching for it would panic.
func TestBearerPrefersUserCookie(t *testing.T) {
	m := testManager()
	c, _ := testContext(t, http.MethodGet, "/api/spotify/artist?name=muse",
		sessionCookies(time.Now().Add(time.Hour))...)

	bearer, err := m.bearer(c)
	if err != nil {
		t.Fatalf("bearer() error = %v", err)
	}
	if bearer != "user-token" {
		t.Errorf("bearer() = %s; want the cookie token", bearer)
	}
}
