// Package preview resolves playable preview clip URLs from Spotify's public
// track embed pages. The Web API stopped returning preview_url reliably, so
// the embed page is the dependable source left for a known-good clip.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://open.spotify.com"

// ErrNoPreview is returned when the embed page loads but carries no
// preview clip URL anywhere we know to look.
var ErrNoPreview = errors.New("no preview found on embed page")

type Resolver struct {
	client  *http.Client
	baseURL string
}

func NewResolver() *Resolver {
	return &Resolver{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: defaultBaseURL,
	}
}

// Resolve fetches the track's embed page and extracts the preview clip URL
func (r *Resolver) Resolve(ctx context.Context, trackID string) (string, error) {
	span := sentry.StartSpan(ctx, "preview.resolve")
	span.Description = "Resolve preview URL from track embed page"
	span.SetTag("track_id", trackID)
	defer span.Finish()

	if trackID == "" {
		err := errors.New("trackID is required")
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInvalidArgument
		return "", err
	}

	url := fmt.Sprintf("%s/embed/track/%s", r.baseURL, trackID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}

	// Set realistic User-Agent to avoid blocks
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	log.Tracef("Fetching embed page: %s", url)

	resp, err := r.client.Do(req)
	if err != nil {
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		err := fmt.Errorf("HTTP %d", resp.StatusCode)
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Try the Next.js state blob first (most reliable)
	previewURL, err := extractFromNextData(doc)
	if err == nil {
		log.Debugf("Extracted preview URL from embed state: %s", previewURL)
		span.Status = sentry.SpanStatusOK
		return previewURL, nil
	}

	log.Debugf("Embed state extraction failed (%v), trying Open Graph fallback", err)

	previewURL, err = extractFromOpenGraph(doc)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return "", fmt.Errorf("%w: %v", ErrNoPreview, err)
	}

	log.Debugf("Extracted preview URL from Open Graph: %s", previewURL)
	span.Status = sentry.SpanStatusOK
	return previewURL, nil
}

// extractFromNextData parses the Next.js state blob embedded in the page
func extractFromNextData(doc *goquery.Document) (string, error) {
	raw := doc.Find("script#__NEXT_DATA__").First().Text()
	if raw == "" {
		return "", errors.New("no __NEXT_DATA__ script found")
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return "", fmt.Errorf("failed to parse embed state: %w", err)
	}

	url := findAudioPreview(data)
	if url == "" {
		return "", errors.New("no audioPreview entry in embed state")
	}
	return url, nil
}

// findAudioPreview walks the state tree for an audioPreview.url entry. The
// exact path shifts between embed deployments, so the walk is structural
// rather than positional.
func findAudioPreview(value interface{}) string {
	switch v := value.(type) {
	case map[string]interface{}:
		if ap, ok := v["audioPreview"].(map[string]interface{}); ok {
			if url := getString(ap, "url"); url != "" {
				return url
			}
		}
		for _, child := range v {
			if url := findAudioPreview(child); url != "" {
				return url
			}
		}
	case []interface{}:
		for _, child := range v {
			if url := findAudioPreview(child); url != "" {
				return url
			}
		}
	}
	return ""
}

// extractFromOpenGraph extracts the clip URL from audio meta tags
func extractFromOpenGraph(doc *goquery.Document) (string, error) {
	url, _ := doc.Find("meta[property='og:audio']").Attr("content")
	if url == "" {
		url, _ = doc.Find("meta[name='twitter:player:stream']").Attr("content")
	}
	if url == "" {
		return "", errors.New("no audio meta tag found")
	}
	return url, nil
}

// getString safely extracts a string value from a map
func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key].(string); ok {
		return val
	}
	return ""
}
