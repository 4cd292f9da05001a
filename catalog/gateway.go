package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	spotifyclient "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

var (
	// ErrNotFound means the catalog has no match for the request.
	ErrNotFound = errors.New("not found")
	// ErrUpstream covers any other failed catalog call. The provider's error
	// body is logged server-side and never forwarded to the client.
	ErrUpstream = errors.New("upstream request failed")
)

// up to 50 album-group releases per artist, the API maximum
const albumListLimit = 50

// api is the slice of the Spotify client the gateway depends on.
type api interface {
	Search(ctx context.Context, query string, t spotifyclient.SearchType, opts ...spotifyclient.RequestOption) (*spotifyclient.SearchResult, error)
	GetArtistAlbums(ctx context.Context, artistID spotifyclient.ID, ts []spotifyclient.AlbumType, opts ...spotifyclient.RequestOption) (*spotifyclient.SimpleAlbumPage, error)
	GetAlbum(ctx context.Context, id spotifyclient.ID, opts ...spotifyclient.RequestOption) (*spotifyclient.FullAlbum, error)
	GetAlbumTracks(ctx context.Context, id spotifyclient.ID, opts ...spotifyclient.RequestOption) (*spotifyclient.SimpleTrackPage, error)
	GetTrack(ctx context.Context, id spotifyclient.ID, opts ...spotifyclient.RequestOption) (*spotifyclient.FullTrack, error)
	FeaturedPlaylists(ctx context.Context, opts ...spotifyclient.RequestOption) (string, *spotifyclient.SimplePlaylistPage, error)
	GetPlaylistItems(ctx context.Context, playlistID spotifyclient.ID, opts ...spotifyclient.RequestOption) (*spotifyclient.PlaylistItemPage, error)
	NewReleases(ctx context.Context, opts ...spotifyclient.RequestOption) (*spotifyclient.SimpleAlbumPage, error)
	CurrentUser(ctx context.Context) (*spotifyclient.PrivateUser, error)
}

// PreviewResolver supplies a playable preview URL for a track when the
// catalog API does not.
type PreviewResolver interface {
	Resolve(ctx context.Context, trackID string) (string, error)
}

// Gateway translates UI-facing operations into Spotify Web API calls. Every
// operation carries the caller's bearer token, so one gateway serves both
// anonymous and user sessions.
type Gateway struct {
	newClient       func(ctx context.Context, bearer string) api
	previews        PreviewResolver
	fallbackTrackID string

	// paces the per-track detail probes in find-previews
	limiter *rate.Limiter
}

func NewGateway(previews PreviewResolver, fallbackTrackID string) *Gateway {
	if fallbackTrackID == "" {
		fallbackTrackID = defaultFallbackTrackID
	}
	return &Gateway{
		newClient: func(ctx context.Context, bearer string) api {
			httpClient := spotifyauth.New().Client(ctx, &oauth2.Token{AccessToken: bearer})
			return spotifyclient.New(httpClient)
		},
		previews:        previews,
		fallbackTrackID: fallbackTrackID,
		limiter:         rate.NewLimiter(rate.Limit(10), 1),
	}
}

// SearchArtist returns the single top-ranked artist for the name. Zero
// results is ErrNotFound; no disambiguation among same-named artists.
func (g *Gateway) SearchArtist(ctx context.Context, bearer, name string) (*spotifyclient.FullArtist, error) {
	span := sentry.StartSpan(ctx, "spotify.search_artist")
	span.Description = "Search artist on Spotify API"
	span.SetTag("query", name)
	defer span.Finish()

	client := g.newClient(ctx, bearer)
	results, err := client.Search(ctx, name, spotifyclient.SearchTypeArtist, spotifyclient.Limit(1))
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, wrapUpstream("artist search", err)
	}
	span.Status = sentry.SpanStatusOK

	if results.Artists == nil || len(results.Artists.Artists) == 0 {
		return nil, fmt.Errorf("%w: artist %q", ErrNotFound, name)
	}
	return &results.Artists.Artists[0], nil
}

// ArtistAlbums lists up to 50 album-group releases for the artist. No
// deduplication is done server-side.
func (g *Gateway) ArtistAlbums(ctx context.Context, bearer, artistID string) ([]spotifyclient.SimpleAlbum, error) {
	span := sentry.StartSpan(ctx, "spotify.artist_albums")
	span.Description = "List artist albums from Spotify API"
	span.SetTag("artist_id", artistID)
	defer span.Finish()

	client := g.newClient(ctx, bearer)
	page, err := client.GetArtistAlbums(ctx, spotifyclient.ID(artistID),
		[]spotifyclient.AlbumType{spotifyclient.AlbumTypeAlbum},
		spotifyclient.Limit(albumListLimit))
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, wrapUpstream("artist albums", err)
	}
	span.Status = sentry.SpanStatusOK
	return page.Albums, nil
}

// AlbumDetails fetches one album with its full track list. preview_url is
// passed through as provided and may be empty on some or all tracks.
func (g *Gateway) AlbumDetails(ctx context.Context, bearer, albumID string) (*spotifyclient.FullAlbum, error) {
	span := sentry.StartSpan(ctx, "spotify.get_album")
	span.Description = "Get album from Spotify API"
	span.SetTag("album_id", albumID)
	defer span.Finish()

	client := g.newClient(ctx, bearer)
	album, err := client.GetAlbum(ctx, spotifyclient.ID(albumID))
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, wrapUpstream("album details", err)
	}
	span.Status = sentry.SpanStatusOK
	return album, nil
}

// Profile returns the authenticated user's profile. Requires a user token;
// the app token is rejected upstream.
func (g *Gateway) Profile(ctx context.Context, bearer string) (*spotifyclient.PrivateUser, error) {
	span := sentry.StartSpan(ctx, "spotify.get_profile")
	span.Description = "Get current user from Spotify API"
	defer span.Finish()

	client := g.newClient(ctx, bearer)
	user, err := client.CurrentUser(ctx)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, wrapUpstream("profile", err)
	}
	span.Status = sentry.SpanStatusOK
	return user, nil
}

// wrapUpstream folds a client error into the gateway taxonomy. 404s become
// ErrNotFound, everything else ErrUpstream.
func wrapUpstream(op string, err error) error {
	var apiErr spotifyclient.Error
	if errors.As(err, &apiErr) {
		log.WithFields(log.Fields{"op": op, "status": apiErr.Status}).
			Errorf("Spotify API error: %s", apiErr.Message)
		sentry.CaptureException(err)
		if apiErr.Status == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, op)
		}
		return fmt.Errorf("%w: %s", ErrUpstream, op)
	}
	log.WithFields(log.Fields{"op": op}).Errorf("Spotify request failed: %v", err)
	sentry.CaptureException(err)
	return fmt.Errorf("%w: %s", ErrUpstream, op)
}
