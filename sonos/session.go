package sonos

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"jukebox/helpers"
)

// Device is the part of a speaker the session drives.
type Device interface {
	Name() string
	ClearQueue(ctx context.Context) error
	AddToQueue(ctx context.Context, uri string) error
	Play(ctx context.Context) error
}

type DiscoverFunc func(ctx context.Context) ([]Device, error)

// Session owns the handle to one named speaker. The handle is looked up on
// first use and kept for the rest of the process. A failed lookup is not
// remembered: the next call discovers again.
type Session struct {
	name     string
	discover DiscoverFunc
	logger   *log.Entry

	mutex  sync.Mutex
	device Device
}

func NewSession(name string, discover DiscoverFunc, logger *log.Entry) *Session {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Session{
		name:     name,
		discover: discover,
		logger:   logger.WithFields(log.Fields{"module": "sonos-session", "speaker": name}),
	}
}

// Handle returns the speaker whose room name equals the configured name.
func (s *Session) Handle(ctx context.Context) (Device, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.device != nil {
		return s.device, nil
	}

	devices, err := helpers.Timed(s.logger, "Finding speaker", func() ([]Device, error) {
		devices, err := s.discover(ctx)
		if err != nil {
			return nil, err
		}
		for _, device := range devices {
			if device.Name() == s.name {
				return []Device{device}, nil
			}
		}
		return nil, fmt.Errorf("%w: no speaker named %q among %d discovered", ErrSpeakerNotFound, s.name, len(devices))
	})
	if err != nil {
		return nil, err
	}

	s.device = devices[0]
	return s.device, nil
}

// PlayQueue replaces the speaker's queue with uris and starts playback. It
// is not atomic: a failure part way leaves the queue partially filled and
// the returned *ProtocolError says how far it got.
func (s *Session) PlayQueue(ctx context.Context, uris []string) error {
	if len(uris) == 0 {
		return errors.New("nothing to queue")
	}

	device, err := s.Handle(ctx)
	if err != nil {
		return err
	}

	if err := device.ClearQueue(ctx); err != nil {
		return protocolError("RemoveAllTracksFromQueue", 0, err)
	}
	for i, uri := range uris {
		s.logger.Tracef("queueing %s", uri)
		if err := device.AddToQueue(ctx, uri); err != nil {
			return protocolError("AddURIToQueue", i, err)
		}
	}
	if err := device.Play(ctx); err != nil {
		return protocolError("Play", len(uris), err)
	}

	s.logger.Debugf("playing %d tracks", len(uris))
	return nil
}

func protocolError(action string, enqueued int, err error) error {
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		protoErr.Enqueued = enqueued
		return protoErr
	}
	return &ProtocolError{Action: action, Enqueued: enqueued, Err: err}
}
