package spotify

import (
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
)

type SpotifyRequest struct {
	TrackID    string
	PlaylistID string
	AlbumID    string
	ArtistID   string
}

// ParseSpotifyURL accepts share links (https://open.spotify.com/<kind>/<id>)
// and catalog URIs (spotify:<kind>:<id>).
func ParseSpotifyURL(url string) (SpotifyRequest, error) {
	var kind, id string
	switch {
	case strings.HasPrefix(url, "https://open.spotify.com/"):
		parts := strings.Split(url, "/")
		if len(parts) < 5 {
			log.Warnf("Invalid Spotify URL format (too few parts): %s", url)
			return SpotifyRequest{}, errors.New("invalid Spotify URL")
		}
		// Strip query parameters from ID (e.g., ?si=tracking_id)
		kind, id = parts[3], strings.Split(parts[4], "?")[0]
	case strings.HasPrefix(url, "spotify:"):
		parts := strings.Split(url, ":")
		if len(parts) != 3 {
			log.Warnf("Invalid Spotify URI format: %s", url)
			return SpotifyRequest{}, errors.New("invalid Spotify URI")
		}
		kind, id = parts[1], parts[2]
	default:
		return SpotifyRequest{}, errors.New("invalid Spotify URL")
	}

	request := SpotifyRequest{}
	switch kind {
	case "playlist":
		request.PlaylistID = id
	case "album":
		request.AlbumID = id
	case "artist":
		request.ArtistID = id
	case "track":
		request.TrackID = id
	}
	log.Tracef("Parsed Spotify %s link: %s", kind, id)
	return request, nil
}

// IsLink reports whether s looks like something ParseSpotifyURL handles.
func IsLink(s string) bool {
	return strings.HasPrefix(s, "https://open.spotify.com/") || strings.HasPrefix(s, "spotify:")
}
