package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrUpstreamAuth means the token endpoint rejected or failed the
// client-credentials grant.
var ErrUpstreamAuth = errors.New("upstream auth failed")

// expiryMargin is shaved off the reported lifetime so a token is replaced
// before it can expire mid-request.
const expiryMargin = 60 * time.Second

// Cache holds the process-wide app-level access token used for anonymous
// catalog reads. Access is serialized; concurrent callers seeing an expired
// token trigger a single refresh.
type Cache struct {
	mutex     sync.Mutex
	value     string
	expiresAt time.Time

	now   func() time.Time
	fetch func(ctx context.Context) (*oauth2.Token, error)
}

// NewCache wires the cache to the client-credentials grant for the given
// application credentials.
func NewCache(clientID, clientSecret string) *Cache {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return &Cache{
		now:   time.Now,
		fetch: config.Token,
	}
}

// Get returns the cached token while it is still live, otherwise requests a
// fresh one and caches it with the safety margin applied.
func (c *Cache) Get(ctx context.Context) (string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.value != "" && c.now().Before(c.expiresAt) {
		return c.value, nil
	}

	span := sentry.StartSpan(ctx, "spotify.app_token")
	span.Description = "Client credentials grant"
	defer span.Finish()

	tok, err := c.fetch(ctx)
	if err != nil {
		log.Errorf("Failed to fetch app token: %v", err)
		sentry.CaptureException(err)
		span.Status = sentry.SpanStatusInternalError
		return "", fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
	}
	span.Status = sentry.SpanStatusOK

	c.value = tok.AccessToken
	c.expiresAt = c.marginExpiry(tok)
	log.Debugf("Cached app token, valid until %s", c.expiresAt.Format(time.RFC3339))
	return c.value, nil
}

// Remaining reports the cached token's remaining lifetime in whole seconds,
// zero when nothing usable is cached.
func (c *Cache) Remaining() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.value == "" {
		return 0
	}
	left := c.expiresAt.Sub(c.now())
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}

func (c *Cache) marginExpiry(tok *oauth2.Token) time.Time {
	expiry := tok.Expiry
	if expiry.IsZero() {
		// endpoint gave no expires_in; assume the standard hour
		expiry = c.now().Add(time.Hour)
	}
	return expiry.Add(-expiryMargin)
}
