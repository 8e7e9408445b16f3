package sonos

import "strings"

const (
	spotifyQueuePrefix = "x-sonos-spotify:"
	// sid 12 is the Spotify music service. Changing any of these breaks
	// playback on existing speakers.
	spotifyQueueSuffix = "?sid=12&flags=8224&sn=2"
)

var spotifyQueueEscaper = strings.NewReplacer(":", "%3A", "&", "%26")

// SpotifyQueueURI turns a catalog URI such as spotify:track:abc into the URI
// a speaker accepts in AddURIToQueue. The suffix is appended before escaping,
// so its & separators are escaped too.
func SpotifyQueueURI(spotifyURI string) string {
	return spotifyQueuePrefix + spotifyQueueEscaper.Replace(spotifyURI+spotifyQueueSuffix)
}

// QueueURI is the transport URI that plays a speaker's own queue.
func QueueURI(uuid string) string {
	return "x-rincon-queue:" + uuid + "#0"
}
