package catalog

import (
	"strings"

	spotifyclient "github.com/zmb3/spotify/v2"
)

// Track is the compact track shape carried inside preview search results.
// PreviewURL may be empty; absence is expected, not an error.
type Track struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMs int    `json:"duration_ms"`
	PreviewURL string `json:"preview_url"`
	URI        string `json:"uri,omitempty"`
}

// PreviewGroup is one entry of a find-previews response: an album, playlist,
// or synthetic bucket with the previewable tracks found in it.
type PreviewGroup struct {
	ID                 string  `json:"id,omitempty"`
	Name               string  `json:"name"`
	Artist             string  `json:"artist"`
	Image              string  `json:"image,omitempty"`
	TracksCount        int     `json:"tracks_count"`
	TracksWithPreviews int     `json:"tracks_with_previews"`
	Tracks             []Track `json:"tracks"`
}

func trackFromFull(t *spotifyclient.FullTrack) Track {
	return Track{
		ID:         string(t.ID),
		Name:       t.Name,
		DurationMs: int(t.Duration),
		PreviewURL: t.PreviewURL,
		URI:        string(t.URI),
	}
}

func trackFromSimple(t *spotifyclient.SimpleTrack) Track {
	return Track{
		ID:         string(t.ID),
		Name:       t.Name,
		DurationMs: int(t.Duration),
		PreviewURL: t.PreviewURL,
		URI:        string(t.URI),
	}
}

func artistNames(artists []spotifyclient.SimpleArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

func firstImage(images []spotifyclient.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
