package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	spotifyclient "github.com/zmb3/spotify/v2"
)

type fakeResolver struct {
	url string
	err error

	lastTrackID string
}

func (r *fakeResolver) Resolve(ctx context.Context, trackID string) (string, error) {
	r.lastTrackID = trackID
	return r.url, r.err
}

func simpleTrack(id, name, previewURL string) spotifyclient.SimpleTrack {
	return spotifyclient.SimpleTrack{
		ID:         spotifyclient.ID(id),
		Name:       name,
		Duration:   180000,
		PreviewURL: previewURL,
		URI:        spotifyclient.URI("spotify:track:" + id),
	}
}

func playlistPage(names ...string) *spotifyclient.SimplePlaylistPage {
	page := &spotifyclient.SimplePlaylistPage{}
	for i, name := range names {
		page.Playlists = append(page.Playlists, spotifyclient.SimplePlaylist{
			ID:     spotifyclient.ID(fmt.Sprintf("pl%d", i+1)),
			Name:   name,
			Owner:  spotifyclient.User{DisplayName: "Spotify"},
			Images: []spotifyclient.Image{{URL: "https://i.scdn.co/playlist.jpg"}},
		})
	}
	return page
}

func playlistItems(tracks ...*spotifyclient.FullTrack) *spotifyclient.PlaylistItemPage {
	page := &spotifyclient.PlaylistItemPage{}
	for _, track := range tracks {
		page.Items = append(page.Items, spotifyclient.PlaylistItem{
			Track: spotifyclient.PlaylistItemTrack{Track: track},
		})
	}
	return page
}

func albumPage(ids ...string) *spotifyclient.SimpleAlbumPage {
	page := &spotifyclient.SimpleAlbumPage{}
	for _, id := range ids {
		page.Albums = append(page.Albums, spotifyclient.SimpleAlbum{
			ID:      spotifyclient.ID(id),
			Name:    "Album " + id,
			Artists: []spotifyclient.SimpleArtist{{Name: "Artist " + id}},
			Images:  []spotifyclient.Image{{URL: "https://i.scdn.co/" + id + ".jpg"}},
		})
	}
	return page
}

func TestFindPreviewsSyntheticFallback(t *testing.T) {
	f := &fakeAPI{
		featuredErr: errors.New("featured unavailable"),
		searchErr:   errors.New("search unavailable"),
		releasesErr: errors.New("releases unavailable"),
	}
	g := testGateway(f)
	resolver := &fakeResolver{url: "https://p.scdn.co/mp3-preview/resolved"}
	g.previews = resolver

	groups, err := g.FindTracksWithPreviews(context.Background(), "bearer", "anything", "", 50)
	if err != nil {
		t.Fatalf("FindTracksWithPreviews() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d; want exactly the fallback", len(groups))
	}

	fallback := groups[0]
	if fallback.TracksWithPreviews != 1 || len(fallback.Tracks) != 1 {
		t.Fatalf("fallback group = %+v; want one previewable track", fallback)
	}
	if fallback.Tracks[0].PreviewURL != "https://p.scdn.co/mp3-preview/resolved" {
		t.Errorf("fallback preview = %s; want the resolved URL", fallback.Tracks[0].PreviewURL)
	}
	if resolver.lastTrackID != defaultFallbackTrackID {
		t.Errorf("resolver asked for %s; want %s", resolver.lastTrackID, defaultFallbackTrackID)
	}
}

func TestFindPreviewsFallbackWithoutResolver(t *testing.T) {
	f := &fakeAPI{
		featuredErr: errors.New("down"),
		searchErr:   errors.New("down"),
		releasesErr: errors.New("down"),
	}
	g := testGateway(f)

	groups, err := g.FindTracksWithPreviews(context.Background(), "bearer", "anything", "", 50)
	if err != nil {
		t.Fatalf("FindTracksWithPreviews() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d; want 1", len(groups))
	}
	if groups[0].Tracks[0].PreviewURL != fallbackPreviewURL {
		t.Errorf("fallback preview = %s; want hardcoded URL", groups[0].Tracks[0].PreviewURL)
	}
}

func TestFindPreviewsFallbackOnResolverError(t *testing.T) {
	f := &fakeAPI{
		featuredErr: errors.New("down"),
		searchErr:   errors.New("down"),
		releasesErr: errors.New("down"),
	}
	g := testGateway(f)
	g.previews = &fakeResolver{err: errors.New("embed page blocked")}

	groups, err := g.FindTracksWithPreviews(context.Background(), "bearer", "anything", "", 50)
	if err != nil {
		t.Fatalf("FindTracksWithPreviews() error = %v", err)
	}
	if groups[0].Tracks[0].PreviewURL != fallbackPreviewURL {
		t.Errorf("fallback preview = %s; want hardcoded URL", groups[0].Tracks[0].PreviewURL)
	}
}

func TestFindPreviewsSurvivesFeaturedFailure(t *testing.T) {
	f := &fakeAPI{
		featuredErr: errors.New("featured playlists 503"),
		searchResults: &spotifyclient.SearchResult{
			Albums: albumPage("al1"),
		},
		albumTracks: map[string]*spotifyclient.SimpleTrackPage{
			"al1": {Tracks: []spotifyclient.SimpleTrack{simpleTrack("t1", "One", "")}},
		},
		tracks: map[string]*spotifyclient.FullTrack{
			"t1": fullTrack("t1", "One", "https://p.scdn.co/mp3-preview/t1"),
		},
		releases: albumPage("al2"),
	}
	f.albumTracks["al2"] = &spotifyclient.SimpleTrackPage{
		Tracks: []spotifyclient.SimpleTrack{simpleTrack("t2", "Two", "https://p.scdn.co/mp3-preview/t2")},
	}
	g := testGateway(f)

	groups, err := g.FindTracksWithPreviews(context.Background(), "bearer", "muse", "", 50)
	if err != nil {
		t.Fatalf("FindTracksWithPreviews() error = %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d (%+v); want 2 from the surviving sources", len(groups), groups)
	}
	if groups[0].ID != "al1" || groups[1].ID != "al2" {
		t.Errorf("group order = %s, %s; want al1 then al2", groups[0].ID, groups[1].ID)
	}
}

func TestFindPreviewsSourceOrder(t *testing.T) {
	f := &fakeAPI{
		featured: playlistPage("Morning Coffee"),
		playlistItems: map[string]*spotifyclient.PlaylistItemPage{
			"pl1": playlistItems(fullTrack("p1", "Playlist Song", "https://p.scdn.co/mp3-preview/p1")),
		},
		searchResults: &spotifyclient.SearchResult{
			Albums: albumPage("searched"),
			Tracks: &spotifyclient.FullTrackPage{
				Tracks: []spotifyclient.FullTrack{*fullTrack("d1", "Direct Hit", "https://p.scdn.co/mp3-preview/d1")},
			},
		},
		albumTracks: map[string]*spotifyclient.SimpleTrackPage{
			"searched": {Tracks: []spotifyclient.SimpleTrack{simpleTrack("s1", "Searched Song", "https://p.scdn.co/mp3-preview/s1")}},
			"fresh":    {Tracks: []spotifyclient.SimpleTrack{simpleTrack("n1", "Fresh Song", "https://p.scdn.co/mp3-preview/n1")}},
		},
		releases: albumPage("fresh"),
	}
	g := testGateway(f)

	groups, err := g.FindTracksWithPreviews(context.Background(), "bearer", "muse", "", 50)
	if err != nil {
		t.Fatalf("FindTracksWithPreviews() error = %v", err)
	}

	want := []string{"Morning Coffee", "Album searched", "Tracks with Previews", "Album fresh"}
	if len(groups) != len(want) {
		t.Fatalf("len(groups) = %d (%+v); want %d", len(groups), groups, len(want))
	}
	for i, name := range want {
		if groups[i].Name != name {
			t.Errorf("groups[%d].Name = %s; want %s", i, groups[i].Name, name)
		}
	}
}

func TestFindPreviewsGroupLimit(t *testing.T) {
	f := &fakeAPI{
		featured: playlistPage("First", "Second", "Third"),
		playlistItems: map[string]*spotifyclient.PlaylistItemPage{
			"pl1": playlistItems(fullTrack("p1", "One", "https://p.scdn.co/1")),
			"pl2": playlistItems(fullTrack("p2", "Two", "https://p.scdn.co/2")),
			"pl3": playlistItems(fullTrack("p3", "Three", "https://p.scdn.co/3")),
		},
	}
	g := testGateway(f)

	groups, err := g.FindTracksWithPreviews(context.Background(), "bearer", "muse", "", 2)
	if err != nil {
		t.Fatalf("FindTracksWithPreviews() error = %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d; want limit of 2", len(groups))
	}
	if groups[0].Name != "First" || groups[1].Name != "Second" {
		t.Errorf("groups = %s, %s; want First, Second", groups[0].Name, groups[1].Name)
	}
}

func TestFromFeaturedPlaylistsFiltersTracks(t *testing.T) {
	f := &fakeAPI{
		featured: playlistPage("Mixed Bag"),
		playlistItems: map[string]*spotifyclient.PlaylistItemPage{
			"pl1": func() *spotifyclient.PlaylistItemPage {
				page := playlistItems(
					fullTrack("k1", "Keeper", "https://p.scdn.co/k1"),
					fullTrack("m1", "Missing Preview", ""),
					fullTrack("k2", "Second Keeper", "https://p.scdn.co/k2"),
				)
				// a podcast episode slot carries no track
				page.Items = append(page.Items, spotifyclient.PlaylistItem{})
				return page
			}(),
		},
	}
	g := testGateway(f)

	groups, err := g.fromFeaturedPlaylists(context.Background(), f)
	if err != nil {
		t.Fatalf("fromFeaturedPlaylists() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d; want 1", len(groups))
	}

	group := groups[0]
	if group.TracksCount != 4 {
		t.Errorf("TracksCount = %d; want 4 examined items", group.TracksCount)
	}
	if group.TracksWithPreviews != 2 || len(group.Tracks) != 2 {
		t.Fatalf("TracksWithPreviews = %d, len = %d; want 2 previewable", group.TracksWithPreviews, len(group.Tracks))
	}
	if group.Tracks[0].ID != "k1" || group.Tracks[1].ID != "k2" {
		t.Errorf("kept tracks = %s, %s; want k1, k2", group.Tracks[0].ID, group.Tracks[1].ID)
	}
	if group.Artist != "Spotify" {
		t.Errorf("group.Artist = %s; want Spotify", group.Artist)
	}
}

func TestProbeAlbumDetailBudget(t *testing.T) {
	page := &spotifyclient.SimpleTrackPage{}
	tracks := map[string]*spotifyclient.FullTrack{}
	for i := 0; i < albumTrackWindow; i++ {
		id := fmt.Sprintf("t%02d", i)
		page.Tracks = append(page.Tracks, simpleTrack(id, "Track "+id, ""))
		tracks[id] = fullTrack(id, "Track "+id, "https://p.scdn.co/mp3-preview/"+id)
	}
	f := &fakeAPI{
		albumTracks: map[string]*spotifyclient.SimpleTrackPage{"al1": page},
		tracks:      tracks,
	}
	g := testGateway(f)

	album := &albumPage("al1").Albums[0]
	group, err := g.probeAlbum(context.Background(), f, album)
	if err != nil {
		t.Fatalf("probeAlbum() error = %v", err)
	}
	if f.trackCallCount() != trackDetailProbes {
		t.Errorf("detail requests = %d; want %d", f.trackCallCount(), trackDetailProbes)
	}
	if group.TracksCount != albumTrackWindow {
		t.Errorf("TracksCount = %d; want %d", group.TracksCount, albumTrackWindow)
	}
	if len(group.Tracks) != trackDetailProbes {
		t.Errorf("previewable tracks = %d; want %d", len(group.Tracks), trackDetailProbes)
	}
}

func TestProbeAlbumUsesListedPreviews(t *testing.T) {
	page := &spotifyclient.SimpleTrackPage{
		Tracks: []spotifyclient.SimpleTrack{
			simpleTrack("t1", "Listed", "https://p.scdn.co/mp3-preview/t1"),
			simpleTrack("t2", "Probed", ""),
		},
	}
	f := &fakeAPI{
		albumTracks: map[string]*spotifyclient.SimpleTrackPage{"al1": page},
		tracks: map[string]*spotifyclient.FullTrack{
			"t2": fullTrack("t2", "Probed", "https://p.scdn.co/mp3-preview/t2"),
		},
	}
	g := testGateway(f)

	album := &albumPage("al1").Albums[0]
	group, err := g.probeAlbum(context.Background(), f, album)
	if err != nil {
		t.Fatalf("probeAlbum() error = %v", err)
	}
	if f.trackCallCount() != 1 {
		t.Errorf("detail requests = %d; want 1 (listed preview needs none)", f.trackCallCount())
	}
	if len(group.Tracks) != 2 {
		t.Fatalf("previewable tracks = %d; want 2", len(group.Tracks))
	}
}

func TestProbeAlbumNothingPreviewable(t *testing.T) {
	page := &spotifyclient.SimpleTrackPage{
		Tracks: []spotifyclient.SimpleTrack{simpleTrack("t1", "Silent", "")},
	}
	f := &fakeAPI{
		albumTracks: map[string]*spotifyclient.SimpleTrackPage{"al1": page},
		tracks: map[string]*spotifyclient.FullTrack{
			"t1": fullTrack("t1", "Silent", ""),
		},
	}
	g := testGateway(f)

	album := &albumPage("al1").Albums[0]
	group, err := g.probeAlbum(context.Background(), f, album)
	if err != nil {
		t.Fatalf("probeAlbum() error = %v", err)
	}
	if group != nil {
		t.Errorf("probeAlbum() = %+v; want nil for an album without previews", group)
	}
}

func TestSearchTypesFor(t *testing.T) {
	tests := []struct {
		kind string
		want spotifyclient.SearchType
	}{
		{"album", spotifyclient.SearchTypeAlbum},
		{"track", spotifyclient.SearchTypeTrack},
		{"", spotifyclient.SearchTypeAlbum | spotifyclient.SearchTypeTrack},
		{"all", spotifyclient.SearchTypeAlbum | spotifyclient.SearchTypeTrack},
	}
	for _, tt := range tests {
		name := tt.kind
		if name == "" {
			name = "empty"
		}
		t.Run(name, func(t *testing.T) {
			if got := searchTypesFor(tt.kind); got != tt.want {
				t.Errorf("searchTypesFor(%q) = %v; want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestArtistNames(t *testing.T) {
	artists := []spotifyclient.SimpleArtist{{Name: "First"}, {Name: "Second"}}
	if got := artistNames(artists); got != "First, Second" {
		t.Errorf("artistNames() = %q; want %q", got, "First, Second")
	}
	if got := artistNames(nil); got != "" {
		t.Errorf("artistNames(nil) = %q; want empty", got)
	}
}

func TestFallbackURLShape(t *testing.T) {
	if !strings.HasPrefix(fallbackPreviewURL, "https://") {
		t.Errorf("fallbackPreviewURL = %s; want an absolute https URL", fallbackPreviewURL)
	}
}
