package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	spotifyclient "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"jukebox/config"
	"jukebox/sentryhelper"
)

var (
	// ErrAuth is returned when the client credentials exchange fails.
	ErrAuth = errors.New("spotify authentication failed")
	// ErrNotFound is returned when a title or playlist has no match upstream.
	ErrNotFound = errors.New("not found on spotify")
)

type TrackInfo struct {
	URI     string
	Title   string
	Artists []string
	Album   string
}

// Describe renders the operator-facing identification line.
func (t TrackInfo) Describe() string {
	return fmt.Sprintf("%s - %s from the album %q", strings.Join(t.Artists, " & "), t.Title, t.Album)
}

type Client struct {
	api    *spotifyclient.Client
	market string
	logger *log.Entry
}

// NewClient authenticates with the client credentials flow. It is called
// once at startup; the token source it builds refreshes itself.
func NewClient(ctx context.Context, cfg config.SpotifyConfig, logger *log.Entry) (*Client, error) {
	httpClient, err := authenticate(ctx, cfg, spotifyauth.TokenURL)
	if err != nil {
		return nil, err
	}
	return newClient(spotifyclient.New(httpClient), cfg.Market, logger), nil
}

func authenticate(ctx context.Context, cfg config.SpotifyConfig, tokenURL string) (*http.Client, error) {
	credentials := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
	}
	token, err := credentials.Token(ctx)
	if err != nil {
		sentry.CaptureException(err)
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	// the token source outlives the startup context
	source := oauth2.ReuseTokenSource(token, credentials.TokenSource(context.Background()))
	return oauth2.NewClient(context.Background(), source), nil
}

func newClient(api *spotifyclient.Client, market string, logger *log.Entry) *Client {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Client{
		api:    api,
		market: market,
		logger: logger.WithField("module", "spotify"),
	}
}

// SearchTrack returns the first track the catalog ranks for title. A track
// link or URI is looked up directly instead of searched for.
func (c *Client) SearchTrack(ctx context.Context, title string) (*TrackInfo, error) {
	if IsLink(title) {
		if request, err := ParseSpotifyURL(title); err == nil && request.TrackID != "" {
			return c.GetTrack(ctx, request.TrackID)
		}
	}
	c.logger.Tracef("searching Spotify for track: %s", title)

	span := sentry.StartSpan(ctx, "spotify.search")
	span.Description = "Search Spotify API"
	span.SetTag("query", title)
	defer span.Finish()

	opts := []spotifyclient.RequestOption{spotifyclient.Limit(1)}
	if c.market != "" {
		opts = append(opts, spotifyclient.Market(c.market))
	}

	results, err := c.api.Search(ctx, title, spotifyclient.SearchTypeTrack, opts...)
	if err != nil {
		c.logger.Errorf("Failed to search Spotify for %q: %v", title, err)
		sentryhelper.CaptureException(ctx, err)
		span.Status = sentry.SpanStatusInternalError
		return nil, translateError(err)
	}

	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		span.Status = sentry.SpanStatusNotFound
		return nil, fmt.Errorf("track %q: %w", title, ErrNotFound)
	}

	track := toTrackInfo(&results.Tracks.Tracks[0])
	c.logger.Debugf("Spotify search %q matched '%s' by %v", title, track.Title, track.Artists)
	span.Status = sentry.SpanStatusOK
	return track, nil
}

func (c *Client) GetTrack(ctx context.Context, trackID string) (*TrackInfo, error) {
	span := sentry.StartSpan(ctx, "spotify.get_track")
	span.Description = "Get track from Spotify API"
	span.SetTag("track_id", trackID)
	defer span.Finish()

	var opts []spotifyclient.RequestOption
	if c.market != "" {
		opts = append(opts, spotifyclient.Market(c.market))
	}

	track, err := c.api.GetTrack(ctx, spotifyclient.ID(trackID), opts...)
	if err != nil {
		c.logger.Errorf("Failed to fetch Spotify track %s: %v", trackID, err)
		sentryhelper.CaptureException(ctx, err)
		span.Status = sentry.SpanStatusInternalError
		return nil, translateError(err)
	}

	span.Status = sentry.SpanStatusOK
	return toTrackInfo(track), nil
}

// GetPlaylistTracks fetches every track of a playlist in order. Episodes are
// skipped since the speaker queue only takes tracks.
func (c *Client) GetPlaylistTracks(ctx context.Context, owner, playlistID string) ([]TrackInfo, error) {
	c.logger.Tracef("Fetching playlist tracks from Spotify API: %s/%s", owner, playlistID)

	span := sentry.StartSpan(ctx, "spotify.get_playlist_tracks")
	span.Description = "Get playlist tracks from Spotify API"
	span.SetTag("owner", owner)
	span.SetTag("playlist_id", playlistID)
	defer span.Finish()

	playlist, err := c.api.GetPlaylist(ctx, spotifyclient.ID(playlistID))
	if err != nil {
		c.logger.Errorf("Failed to fetch Spotify playlist %s: %v", playlistID, err)
		sentryhelper.CaptureException(ctx, err)
		span.Status = sentry.SpanStatusInternalError
		return nil, translateError(err)
	}

	if owner != "" && !strings.EqualFold(playlist.Owner.ID, owner) {
		c.logger.Warnf("Spotify playlist %s belongs to %s, not %s", playlistID, playlist.Owner.ID, owner)
		span.Status = sentry.SpanStatusNotFound
		return nil, fmt.Errorf("playlist %s/%s: %w", owner, playlistID, ErrNotFound)
	}

	page, err := c.api.GetPlaylistItems(ctx, spotifyclient.ID(playlistID))
	if err != nil {
		c.logger.Errorf("Failed to fetch Spotify playlist items %s: %v", playlistID, err)
		sentryhelper.CaptureException(ctx, err)
		span.Status = sentry.SpanStatusInternalError
		return nil, translateError(err)
	}

	tracks := make([]TrackInfo, 0, int(page.Total))
	for {
		for _, item := range page.Items {
			if item.Track.Track == nil {
				continue
			}
			tracks = append(tracks, *toTrackInfo(item.Track.Track))
		}

		err = c.api.NextPage(ctx, page)
		if errors.Is(err, spotifyclient.ErrNoMorePages) {
			break
		}
		if err != nil {
			c.logger.Errorf("Failed to page Spotify playlist %s: %v", playlistID, err)
			sentryhelper.CaptureException(ctx, err)
			span.Status = sentry.SpanStatusInternalError
			return nil, translateError(err)
		}
	}

	if len(tracks) == 0 {
		c.logger.Warnf("Spotify playlist %s has no playable tracks", playlistID)
		span.Status = sentry.SpanStatusNotFound
		return nil, fmt.Errorf("playlist %s/%s has no tracks: %w", owner, playlistID, ErrNotFound)
	}

	c.logger.Debugf("Successfully fetched %d tracks from Spotify playlist '%s'", len(tracks), playlist.Name)
	span.Status = sentry.SpanStatusOK
	span.SetData("tracks_count", len(tracks))
	span.SetData("playlist_name", playlist.Name)
	return tracks, nil
}

func toTrackInfo(track *spotifyclient.FullTrack) *TrackInfo {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}
	return &TrackInfo{
		URI:     string(track.URI),
		Title:   track.Name,
		Artists: artists,
		Album:   track.Album.Name,
	}
}

// translateError maps a catalog 404 onto ErrNotFound and leaves everything
// else untouched.
func translateError(err error) error {
	var apiErr spotifyclient.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
	}
	return err
}
