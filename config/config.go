package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissing is returned by Validate when a required variable is unset.
var ErrMissing = errors.New("missing required configuration")

type ConfigStruct struct {
	Spotify SpotifyConfig
	Sonos   SonosConfig
	Options Options
	Sentry  SentryConfig
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	Market       string
}

type SonosConfig struct {
	Speaker          string
	DiscoveryTimeout time.Duration
	HTTPTimeout      time.Duration
}

type SentryConfig struct {
	DSN     string
	Release string
}

type Options struct {
	CodesPath string
	Port      string
	LogLevel  string
}

func (s *SentryConfig) IsEnabled() bool {
	return s.DSN != ""
}

// NewConfig reads the process environment. Call Validate before using the
// result; the returned value is not modified afterwards.
func NewConfig() *ConfigStruct {
	return &ConfigStruct{
		Spotify: SpotifyConfig{
			ClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
			ClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
			Market:       os.Getenv("SPOTIFY_MARKET"),
		},
		Sonos: SonosConfig{
			Speaker:          os.Getenv("SONOS_SPEAKER"),
			DiscoveryTimeout: getDiscoveryTimeout(),
			HTTPTimeout:      getHTTPTimeout(),
		},
		Options: Options{
			CodesPath: getCodesPath(),
			Port:      getPort(),
			LogLevel:  os.Getenv("LOG_LEVEL"),
		},
		Sentry: SentryConfig{
			DSN:     os.Getenv("SENTRY_DSN"),
			Release: os.Getenv("RELEASE"),
		},
	}
}

// Validate reports every required variable that is empty.
func (c *ConfigStruct) Validate() error {
	var missing []string
	if c.Spotify.ClientID == "" {
		missing = append(missing, "SPOTIFY_CLIENT_ID")
	}
	if c.Spotify.ClientSecret == "" {
		missing = append(missing, "SPOTIFY_CLIENT_SECRET")
	}
	if c.Sonos.Speaker == "" {
		missing = append(missing, "SONOS_SPEAKER")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

func getDiscoveryTimeout() time.Duration {
	secondsStr := os.Getenv("SONOS_DISCOVERY_TIMEOUT")
	if secondsStr == "" {
		return 3 * time.Second
	}
	seconds, err := strconv.Atoi(secondsStr)
	if err != nil || seconds <= 0 {
		return 3 * time.Second
	}
	if seconds > 30 {
		return 30 * time.Second
	}
	return time.Duration(seconds) * time.Second
}

func getHTTPTimeout() time.Duration {
	secondsStr := os.Getenv("SONOS_HTTP_TIMEOUT")
	if secondsStr == "" {
		return 10 * time.Second
	}
	seconds, err := strconv.Atoi(secondsStr)
	if err != nil || seconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(seconds) * time.Second
}

func getCodesPath() string {
	if path := os.Getenv("JUKEBOX_CODES"); path != "" {
		return path
	}
	return "codes.toml"
}

func getPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}
