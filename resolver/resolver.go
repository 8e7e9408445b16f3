// Package resolver memoizes catalog lookups for the lifetime of the process.
// Entries are never refreshed or evicted.
package resolver

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"jukebox/spotify"
)

// keySeparator joins owner and playlist id. Neither field can contain it.
const keySeparator = "\x1f"

type Catalog interface {
	SearchTrack(ctx context.Context, title string) (*spotify.TrackInfo, error)
	GetPlaylistTracks(ctx context.Context, owner, playlistID string) ([]spotify.TrackInfo, error)
}

type Resolver struct {
	catalog Catalog
	logger  *log.Entry

	mutex     sync.Mutex
	tracks    map[string]string
	playlists map[string][]string

	// collapses concurrent misses on the same key into one catalog call
	group singleflight.Group
}

func New(catalog Catalog, logger *log.Entry) *Resolver {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Resolver{
		catalog:   catalog,
		logger:    logger.WithField("module", "resolver"),
		tracks:    make(map[string]string),
		playlists: make(map[string][]string),
	}
}

func playlistKey(owner, playlistID string) string {
	return owner + keySeparator + playlistID
}

func (r *Resolver) cachedTrack(title string) (string, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	uri, ok := r.tracks[title]
	return uri, ok
}

func (r *Resolver) cachedPlaylist(key string) ([]string, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	uris, ok := r.playlists[key]
	if !ok {
		return nil, false
	}
	return append([]string(nil), uris...), true
}

// ResolveTrack returns the playable identifier for the best match of title.
// Failed lookups are not cached.
func (r *Resolver) ResolveTrack(ctx context.Context, title string) (string, error) {
	if uri, ok := r.cachedTrack(title); ok {
		r.logger.Tracef("track cache hit: %s", title)
		return uri, nil
	}

	v, err, _ := r.group.Do("track"+keySeparator+title, func() (interface{}, error) {
		if uri, ok := r.cachedTrack(title); ok {
			return uri, nil
		}

		track, err := r.catalog.SearchTrack(ctx, title)
		if err != nil {
			return nil, err
		}
		r.logger.Infof("Found %s", track.Describe())

		r.mutex.Lock()
		r.tracks[title] = track.URI
		r.mutex.Unlock()
		return track.URI, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ResolvePlaylist returns the ordered playable identifiers of a playlist. The
// returned slice is a copy and may be modified by the caller.
func (r *Resolver) ResolvePlaylist(ctx context.Context, owner, playlistID string) ([]string, error) {
	key := playlistKey(owner, playlistID)
	if uris, ok := r.cachedPlaylist(key); ok {
		r.logger.Tracef("playlist cache hit: %s/%s", owner, playlistID)
		return uris, nil
	}

	_, err, _ := r.group.Do("playlist"+keySeparator+key, func() (interface{}, error) {
		if _, ok := r.cachedPlaylist(key); ok {
			return nil, nil
		}

		tracks, err := r.catalog.GetPlaylistTracks(ctx, owner, playlistID)
		if err != nil {
			return nil, err
		}
		if len(tracks) == 0 {
			return nil, fmt.Errorf("playlist %s/%s is empty: %w", owner, playlistID, spotify.ErrNotFound)
		}

		uris := make([]string, 0, len(tracks))
		for _, track := range tracks {
			r.logger.Infof("Found %s", track.Describe())
			uris = append(uris, track.URI)
		}

		r.mutex.Lock()
		r.playlists[key] = uris
		r.mutex.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	uris, _ := r.cachedPlaylist(key)
	return uris, nil
}
