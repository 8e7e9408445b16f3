package sonos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// ErrSpeakerNotFound is returned when no discovered speaker has the
// configured room name.
var ErrSpeakerNotFound = errors.New("speaker not found")

// ProtocolError is a failed speaker action. A failure in the middle of
// PlayQueue leaves Enqueued URIs on the speaker's queue and nothing playing.
type ProtocolError struct {
	Action   string
	Code     string
	Enqueued int
	Err      error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("sonos %s failed", e.Action)
	if e.Code != "" {
		msg += " (upnp error " + e.Code + ")"
	}
	if e.Enqueued > 0 {
		msg += ", " + strconv.Itoa(e.Enqueued) + " tracks left queued"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Speaker is one zone player reachable over UPnP.
type Speaker struct {
	name     string
	uuid     string
	location string

	avTransportURL     string
	avTransportService string
	soap               *soapClient
}

func NewSpeaker(name, uuid, avTransportURL string, httpClient *http.Client, logger *log.Entry) *Speaker {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Speaker{
		name:               name,
		uuid:               uuid,
		avTransportURL:     avTransportURL,
		avTransportService: avTransportService,
		soap: &soapClient{
			http:   httpClient,
			logger: logger.WithFields(log.Fields{"module": "sonos", "speaker": name}),
		},
	}
}

func (s *Speaker) Name() string     { return s.name }
func (s *Speaker) UUID() string     { return s.uuid }
func (s *Speaker) Location() string { return s.location }

func (s *Speaker) avtAction(ctx context.Context, action string, params ...soapParam) error {
	_, err := s.soap.call(ctx, s.avTransportURL, s.avTransportService, action, params)
	return err
}

func (s *Speaker) ClearQueue(ctx context.Context) error {
	return s.avtAction(ctx, "RemoveAllTracksFromQueue")
}

func (s *Speaker) AddToQueue(ctx context.Context, uri string) error {
	return s.avtAction(ctx, "AddURIToQueue",
		soapParam{"EnqueuedURI", uri},
		soapParam{"EnqueuedURIMetaData", ""},
		soapParam{"DesiredFirstTrackNumberEnqueued", "0"},
		soapParam{"EnqueueAsNext", "0"},
	)
}

// Play starts the speaker's queue. When the speaker's uuid is known the
// transport is pointed at the queue first, otherwise whatever source is
// current resumes.
func (s *Speaker) Play(ctx context.Context) error {
	if s.uuid != "" {
		err := s.avtAction(ctx, "SetAVTransportURI",
			soapParam{"CurrentURI", QueueURI(s.uuid)},
			soapParam{"CurrentURIMetaData", ""},
		)
		if err != nil {
			return err
		}
	}
	return s.avtAction(ctx, "Play", soapParam{"Speed", "1"})
}
