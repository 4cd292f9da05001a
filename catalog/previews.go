package catalog

import (
	"context"
	"fmt"
	"sync"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	spotifyclient "github.com/zmb3/spotify/v2"
)

// Probe bounds for the preview heuristic. These are latency/cost bounds, not
// quality rankings: only the first few items of each source are examined.
const (
	maxSourcePlaylists = 3
	tracksPerPlaylist  = 10
	maxSourceAlbums    = 3
	albumTrackWindow   = 20
	trackDetailProbes  = 10

	searchPageSize    = 10
	defaultGroupLimit = 50
)

// Known-good fallback used when every source comes up empty. The pinned
// track's embed page is asked first; the URL constant is the last resort.
const (
	defaultFallbackTrackID = "4uLU6hMCjMI75M1A2tKUQC"
	fallbackPreviewURL     = "https://p.scdn.co/mp3-preview/3eb16018c2a700240e9dfb8817b6f2d041f15eb1"
)

type previewSource struct {
	name string
	run  func(ctx context.Context, client api) ([]PreviewGroup, error)
}

type sourceResult struct {
	index  int
	name   string
	groups []PreviewGroup
	err    error
}

// FindTracksWithPreviews is a best-effort heuristic, not a guaranteed
// search. Three sources are probed concurrently; a failure in one never
// aborts the others. Results preserve source-then-discovery order. When no
// source yields a previewable track, a single synthetic result is fabricated
// so the caller never gets an unusably empty success.
func (g *Gateway) FindTracksWithPreviews(ctx context.Context, bearer, query, kind string, limit int) ([]PreviewGroup, error) {
	span := sentry.StartSpan(ctx, "spotify.find_previews")
	span.Description = "Multi-source preview search"
	span.SetTag("query", query)
	span.SetTag("type", kind)
	defer span.Finish()

	if limit <= 0 || limit > defaultGroupLimit {
		limit = defaultGroupLimit
	}

	client := g.newClient(ctx, bearer)
	sources := []previewSource{
		{"featured_playlists", g.fromFeaturedPlaylists},
		{"search", func(ctx context.Context, client api) ([]PreviewGroup, error) {
			return g.fromSearch(ctx, client, query, kind)
		}},
		{"new_releases", g.fromNewReleases},
	}

	results := make(chan sourceResult, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(index int, src previewSource) {
			defer wg.Done()
			groups, err := src.run(ctx, client)
			results <- sourceResult{index: index, name: src.name, groups: groups, err: err}
		}(i, src)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	settled := make([][]PreviewGroup, len(sources))
	for res := range results {
		if res.err != nil {
			log.Warnf("Preview source %s failed: %v", res.name, res.err)
			sentry.CaptureException(res.err)
			continue
		}
		settled[res.index] = res.groups
	}

	if err := ctx.Err(); err != nil {
		span.Status = sentry.SpanStatusCanceled
		return nil, err
	}

	var groups []PreviewGroup
	for _, part := range settled {
		groups = append(groups, part...)
	}
	if len(groups) > limit {
		groups = groups[:limit]
	}

	if len(groups) == 0 {
		log.Info("No previewable tracks from any source, using synthetic fallback")
		groups = []PreviewGroup{g.fallbackGroup(ctx)}
	}

	span.Status = sentry.SpanStatusOK
	span.SetData("groups", len(groups))
	return groups, nil
}

// fromFeaturedPlaylists probes up to 3 featured playlists, keeping up to 10
// tracks each and only those that carry a preview URL.
func (g *Gateway) fromFeaturedPlaylists(ctx context.Context, client api) ([]PreviewGroup, error) {
	_, page, err := client.FeaturedPlaylists(ctx, spotifyclient.Limit(maxSourcePlaylists))
	if err != nil {
		return nil, fmt.Errorf("featured playlists: %w", err)
	}

	var groups []PreviewGroup
	for i := range page.Playlists {
		if i >= maxSourcePlaylists {
			break
		}
		playlist := &page.Playlists[i]
		items, err := client.GetPlaylistItems(ctx, playlist.ID, spotifyclient.Limit(tracksPerPlaylist))
		if err != nil {
			log.Debugf("Playlist %s items failed: %v", playlist.ID, err)
			continue
		}

		var tracks []Track
		for j := range items.Items {
			// skip episodes and local files
			full := items.Items[j].Track.Track
			if full == nil || full.PreviewURL == "" {
				continue
			}
			tracks = append(tracks, trackFromFull(full))
		}
		if len(tracks) == 0 {
			continue
		}

		owner := playlist.Owner.DisplayName
		if owner == "" {
			owner = "Spotify"
		}
		groups = append(groups, PreviewGroup{
			ID:                 string(playlist.ID),
			Name:               playlist.Name,
			Artist:             owner,
			Image:              firstImage(playlist.Images),
			TracksCount:        len(items.Items),
			TracksWithPreviews: len(tracks),
			Tracks:             tracks,
		})
	}
	return groups, nil
}

// fromSearch runs the combined album+track text search. Albums get probed
// like new releases; direct track hits that already carry a preview URL are
// surfaced as one synthetic group.
func (g *Gateway) fromSearch(ctx context.Context, client api, query, kind string) ([]PreviewGroup, error) {
	results, err := client.Search(ctx, query, searchTypesFor(kind), spotifyclient.Limit(searchPageSize))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var groups []PreviewGroup
	if results.Albums != nil {
		for i := range results.Albums.Albums {
			if i >= maxSourceAlbums {
				break
			}
			group, err := g.probeAlbum(ctx, client, &results.Albums.Albums[i])
			if err != nil {
				log.Debugf("Album probe failed: %v", err)
				continue
			}
			if group != nil {
				groups = append(groups, *group)
			}
		}
	}

	if results.Tracks != nil {
		var tracks []Track
		for i := range results.Tracks.Tracks {
			full := &results.Tracks.Tracks[i]
			if full.PreviewURL == "" {
				continue
			}
			tracks = append(tracks, trackFromFull(full))
		}
		if len(tracks) > 0 {
			groups = append(groups, PreviewGroup{
				Name:               "Tracks with Previews",
				Artist:             "Various Artists",
				TracksCount:        len(results.Tracks.Tracks),
				TracksWithPreviews: len(tracks),
				Tracks:             tracks,
			})
		}
	}
	return groups, nil
}

// fromNewReleases probes up to 3 freshly released albums.
func (g *Gateway) fromNewReleases(ctx context.Context, client api) ([]PreviewGroup, error) {
	page, err := client.NewReleases(ctx, spotifyclient.Limit(maxSourceAlbums))
	if err != nil {
		return nil, fmt.Errorf("new releases: %w", err)
	}

	var groups []PreviewGroup
	for i := range page.Albums {
		if i >= maxSourceAlbums {
			break
		}
		group, err := g.probeAlbum(ctx, client, &page.Albums[i])
		if err != nil {
			log.Debugf("Album probe failed: %v", err)
			continue
		}
		if group != nil {
			groups = append(groups, *group)
		}
	}
	return groups, nil
}

// probeAlbum fetches up to 20 tracks of the album and checks the first 10
// for preview URLs. The list endpoint does not reliably include them, so a
// per-track detail request is issued where needed, paced by the limiter.
// Returns nil when nothing previewable turns up.
func (g *Gateway) probeAlbum(ctx context.Context, client api, album *spotifyclient.SimpleAlbum) (*PreviewGroup, error) {
	page, err := client.GetAlbumTracks(ctx, album.ID, spotifyclient.Limit(albumTrackWindow))
	if err != nil {
		return nil, fmt.Errorf("album %s tracks: %w", album.ID, err)
	}

	var tracks []Track
	for i := range page.Tracks {
		if i >= trackDetailProbes {
			break
		}
		listed := &page.Tracks[i]
		if listed.PreviewURL != "" {
			tracks = append(tracks, trackFromSimple(listed))
			continue
		}
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		full, err := client.GetTrack(ctx, listed.ID)
		if err != nil {
			log.Debugf("Track %s detail failed: %v", listed.ID, err)
			continue
		}
		if full.PreviewURL == "" {
			continue
		}
		tracks = append(tracks, trackFromFull(full))
	}
	if len(tracks) == 0 {
		return nil, nil
	}

	return &PreviewGroup{
		ID:                 string(album.ID),
		Name:               album.Name,
		Artist:             artistNames(album.Artists),
		Image:              firstImage(album.Images),
		TracksCount:        len(page.Tracks),
		TracksWithPreviews: len(tracks),
		Tracks:             tracks,
	}, nil
}

// fallbackGroup fabricates the never-empty synthetic result. The pinned
// track's live embed page is preferred over the hardcoded URL, which can go
// stale.
func (g *Gateway) fallbackGroup(ctx context.Context) PreviewGroup {
	url := fallbackPreviewURL
	if g.previews != nil {
		resolved, err := g.previews.Resolve(ctx, g.fallbackTrackID)
		switch {
		case err != nil:
			log.Debugf("Fallback preview resolve failed: %v", err)
		case resolved != "":
			url = resolved
		}
	}

	return PreviewGroup{
		Name:               "Preview Sampler",
		Artist:             "Various Artists",
		TracksCount:        1,
		TracksWithPreviews: 1,
		Tracks: []Track{{
			ID:         g.fallbackTrackID,
			Name:       "Sample Preview",
			DurationMs: 30000,
			PreviewURL: url,
		}},
	}
}

func searchTypesFor(kind string) spotifyclient.SearchType {
	switch kind {
	case "album":
		return spotifyclient.SearchTypeAlbum
	case "track":
		return spotifyclient.SearchTypeTrack
	default:
		return spotifyclient.SearchTypeAlbum | spotifyclient.SearchTypeTrack
	}
}
