package handlers

// handlers glue the HTTP surface to the token cache, the session manager,
// and the catalog gateway. They shape errors for the client; the underlying
// provider errors are logged server-side only.

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"spindle/catalog"
	"spindle/lyrics"
	"spindle/pages"
	"spindle/session"
	"spindle/token"
)

const defaultPreviewLimit = 50

type Manager struct {
	Tokens   *token.Cache
	Sessions *session.Manager
	Catalog  *catalog.Gateway
	Lyrics   *lyrics.Client
	Hints    *Hints
}

func NewManager(tokens *token.Cache, sessions *session.Manager, gateway *catalog.Gateway, lyricsClient *lyrics.Client) *Manager {
	return &Manager{
		Tokens:   tokens,
		Sessions: sessions,
		Catalog:  gateway,
		Lyrics:   lyricsClient,
		Hints:    NewHints(),
	}
}

// bearer picks the user's cookie token while it is valid, falling back to
// the shared app token for anonymous browsing.
func (m *Manager) bearer(c *gin.Context) (string, error) {
	if userToken, ok := m.Sessions.Bearer(c); ok {
		return userToken, nil
	}
	return m.Tokens.Get(c.Request.Context())
}

func (m *Manager) Home(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, pages.App)
}

func (m *Manager) GetToken(c *gin.Context) {
	value, err := m.Tokens.Get(c.Request.Context())
	if err != nil {
		log.Errorf("App token unavailable: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get access token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     value,
		"expiresIn": m.Tokens.Remaining(),
	})
}

func (m *Manager) SearchArtist(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Artist name is required"})
		return
	}

	bearer, err := m.bearer(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get access token"})
		return
	}

	artist, err := m.Catalog.SearchArtist(c.Request.Context(), bearer, name)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Artist not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search artist"})
	default:
		c.JSON(http.StatusOK, artist)
	}
}

func (m *Manager) GetArtistAlbums(c *gin.Context) {
	bearer, err := m.bearer(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get access token"})
		return
	}

	albums, err := m.Catalog.ArtistAlbums(c.Request.Context(), bearer, c.Param("id"))
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Artist not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get artist albums"})
	default:
		c.JSON(http.StatusOK, albums)
	}
}

func (m *Manager) GetAlbum(c *gin.Context) {
	bearer, err := m.bearer(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get access token"})
		return
	}

	album, err := m.Catalog.AlbumDetails(c.Request.Context(), bearer, c.Param("id"))
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Album not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get album details"})
	default:
		c.JSON(http.StatusOK, album)
	}
}

func (m *Manager) FindPreviews(c *gin.Context) {
	query := c.Query("query")
	kind := c.Query("type")

	limit := defaultPreviewLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	bearer, err := m.bearer(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get access token"})
		return
	}

	groups, err := m.Catalog.FindTracksWithPreviews(c.Request.Context(), bearer, query, kind, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find previews"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":         query,
		"type":          kind,
		"total_results": len(groups),
		"results":       groups,
	})
}

func (m *Manager) GetLyrics(c *gin.Context) {
	track := c.Query("track")
	artist := c.Query("artist")
	if track == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Track name is required"})
		return
	}

	result, err := m.Lyrics.Lookup(c.Request.Context(), track, artist)
	switch {
	case errors.Is(err, lyrics.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lyrics not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get lyrics"})
	default:
		c.JSON(http.StatusOK, result)
	}
}
