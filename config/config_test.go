package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGetDiscoveryTimeout(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want time.Duration
	}{
		{"empty", "", 3 * time.Second},
		{"invalid", "abc", 3 * time.Second},
		{"zero", "0", 3 * time.Second},
		{"negative", "-1", 3 * time.Second},
		{"min", "1", 1 * time.Second},
		{"mid", "10", 10 * time.Second},
		{"max", "30", 30 * time.Second},
		{"over", "31", 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SONOS_DISCOVERY_TIMEOUT", tt.env)
			if got := getDiscoveryTimeout(); got != tt.want {
				t.Errorf("getDiscoveryTimeout() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestGetHTTPTimeout(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want time.Duration
	}{
		{"empty", "", 10 * time.Second},
		{"invalid", "foo", 10 * time.Second},
		{"zero", "0", 10 * time.Second},
		{"valid", "4", 4 * time.Second},
		{"large", "120", 120 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SONOS_HTTP_TIMEOUT", tt.env)
			if got := getHTTPTimeout(); got != tt.want {
				t.Errorf("getHTTPTimeout() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	t.Setenv("JUKEBOX_CODES", "")
	t.Setenv("PORT", "")

	cfg := NewConfig()
	if cfg.Options.CodesPath != "codes.toml" {
		t.Errorf("CodesPath = %q; want codes.toml", cfg.Options.CodesPath)
	}
	if cfg.Options.Port != "8080" {
		t.Errorf("Port = %q; want 8080", cfg.Options.Port)
	}
	if cfg.Sentry.IsEnabled() {
		t.Error("expected sentry disabled without a DSN")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		secret      string
		speaker     string
		wantMissing []string
	}{
		{"complete", "id", "secret", "Bedroom", nil},
		{"no speaker", "id", "secret", "", []string{"SONOS_SPEAKER"}},
		{"nothing", "", "", "", []string{"SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET", "SONOS_SPEAKER"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SPOTIFY_CLIENT_ID", tt.id)
			t.Setenv("SPOTIFY_CLIENT_SECRET", tt.secret)
			t.Setenv("SONOS_SPEAKER", tt.speaker)

			err := NewConfig().Validate()
			if len(tt.wantMissing) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v; want nil", err)
				}
				return
			}
			if !errors.Is(err, ErrMissing) {
				t.Fatalf("Validate() = %v; want ErrMissing", err)
			}
			for _, name := range tt.wantMissing {
				if !strings.Contains(err.Error(), name) {
					t.Errorf("Validate() = %q; want it to name %s", err, name)
				}
			}
		})
	}
}
