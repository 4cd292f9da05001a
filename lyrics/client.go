// Package lyrics looks up song lyrics through the lrclib.net public API.
package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://lrclib.net"

// ErrNotFound is returned when lrclib has no lyrics for the track.
var ErrNotFound = errors.New("lyrics not found")

var timestampPattern = regexp.MustCompile(`\[\d+:\d+\.\d+\]`)

type lrcRecord struct {
	ID           int    `json:"id"`
	TrackName    string `json:"trackName"`
	ArtistName   string `json:"artistName"`
	AlbumName    string `json:"albumName"`
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
}

// Result is the cleaned-up lookup outcome: plain lyrics text plus the
// track/artist names as lrclib knows them.
type Result struct {
	Track  string `json:"track"`
	Artist string `json:"artist"`
	Lyrics string `json:"lyrics"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func New() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: defaultBaseURL,
	}
}

// Lookup tries the exact track+artist endpoint first and falls back to a
// free-text search. Both misses map to ErrNotFound.
func (c *Client) Lookup(ctx context.Context, track, artist string) (*Result, error) {
	span := sentry.StartSpan(ctx, "lyrics.lookup")
	span.Description = "Look up lyrics on lrclib"
	span.SetTag("track", track)
	span.SetTag("artist", artist)
	defer span.Finish()

	record, err := c.get(ctx, track, artist)
	if err != nil {
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return nil, err
	}
	if record == nil {
		log.Debugf("Exact lyrics lookup missed for %q by %q, trying search", track, artist)
		record, err = c.search(ctx, strings.TrimSpace(track+" "+artist))
		if err != nil {
			sentry.CaptureException(err)
			span.Status = sentry.SpanStatusInternalError
			return nil, err
		}
	}
	if record == nil {
		span.Status = sentry.SpanStatusNotFound
		return nil, fmt.Errorf("%w: %q by %q", ErrNotFound, track, artist)
	}

	lyrics := record.PlainLyrics
	if lyrics == "" && record.SyncedLyrics != "" {
		lyrics = strings.TrimSpace(timestampPattern.ReplaceAllString(record.SyncedLyrics, ""))
	}
	if lyrics == "" {
		span.Status = sentry.SpanStatusNotFound
		return nil, fmt.Errorf("%w: %q by %q has no usable text", ErrNotFound, track, artist)
	}

	span.Status = sentry.SpanStatusOK
	return &Result{
		Track:  record.TrackName,
		Artist: record.ArtistName,
		Lyrics: lyrics,
	}, nil
}

// get hits the exact-match endpoint. lrclib answers 404 for unknown pairs.
func (c *Client) get(ctx context.Context, track, artist string) (*lrcRecord, error) {
	query := url.Values{}
	query.Set("track_name", track)
	query.Set("artist_name", artist)

	var record lrcRecord
	found, err := c.fetch(ctx, "/api/get?"+query.Encode(), &record)
	if err != nil || !found {
		return nil, err
	}
	return &record, nil
}

// search hits the free-text endpoint and keeps the first hit.
func (c *Client) search(ctx context.Context, q string) (*lrcRecord, error) {
	query := url.Values{}
	query.Set("q", q)

	var records []lrcRecord
	found, err := c.fetch(ctx, "/api/search?"+query.Encode(), &records)
	if err != nil || !found {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (c *Client) fetch(ctx context.Context, path string, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("lrclib API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, err
	}
	return true, nil
}
