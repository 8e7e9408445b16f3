package spotify

import (
	"testing"
)

func TestParseSpotifyURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    SpotifyRequest
		wantErr bool
	}{
		{
			name: "track",
			url:  "https://open.spotify.com/track/0VjIjW4GlUZAMYd2vXMi3b",
			want: SpotifyRequest{TrackID: "0VjIjW4GlUZAMYd2vXMi3b"},
		},
		{
			name: "playlist with si query",
			url:  "https://open.spotify.com/playlist/4m2vrzVCUjvrHzaW00Skli?si=abc123",
			want: SpotifyRequest{PlaylistID: "4m2vrzVCUjvrHzaW00Skli"},
		},
		{
			name: "playlist uri",
			url:  "spotify:playlist:4m2vrzVCUjvrHzaW00Skli",
			want: SpotifyRequest{PlaylistID: "4m2vrzVCUjvrHzaW00Skli"},
		},
		{
			name: "album",
			url:  "https://open.spotify.com/album/4yP0hdKOZPNshxUOjY0cZj",
			want: SpotifyRequest{AlbumID: "4yP0hdKOZPNshxUOjY0cZj"},
		},
		{
			name: "artist uri",
			url:  "spotify:artist:4NHQPlJsbc7kbJTwq0B3lD",
			want: SpotifyRequest{ArtistID: "4NHQPlJsbc7kbJTwq0B3lD"},
		},
		{
			name:    "invalid domain",
			url:     "https://example.com/track/abc",
			wantErr: true,
		},
		{
			name:    "short uri",
			url:     "spotify:track",
			wantErr: true,
		},
		{
			name: "wrong path",
			url:  "https://open.spotify.com/wrong/abc",
			want: SpotifyRequest{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpotifyURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseSpotifyURL() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("ParseSpotifyURL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsLink(t *testing.T) {
	if !IsLink("spotify:playlist:abc") || !IsLink("https://open.spotify.com/playlist/abc") {
		t.Error("expected links to be recognised")
	}
	if IsLink("Bohemian Rhapsody") {
		t.Error("a title is not a link")
	}
}
