package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"jukebox/sentryhelper"
	"jukebox/sonos"
	"jukebox/spotify"
)

type ActionType string

const (
	ActionPlayTrack    ActionType = "play-track"
	ActionPlayPlaylist ActionType = "play-playlist"
	ActionUnknown      ActionType = "unknown"
)

// ErrUnknownAction is returned for actions that have nothing to play.
var ErrUnknownAction = errors.New("unknown action")

// Action is one thing a front end asks for. Title is set for
// ActionPlayTrack; Owner and PlaylistID for ActionPlayPlaylist.
type Action struct {
	Type       ActionType
	Title      string
	Owner      string
	PlaylistID string
}

func TrackAction(title string) Action {
	return Action{Type: ActionPlayTrack, Title: title}
}

func PlaylistAction(owner, playlistID string) Action {
	return Action{Type: ActionPlayPlaylist, Owner: owner, PlaylistID: playlistID}
}

func (a Action) String() string {
	switch a.Type {
	case ActionPlayTrack:
		return fmt.Sprintf("track %q", a.Title)
	case ActionPlayPlaylist:
		if a.Owner == "" {
			return "playlist " + a.PlaylistID
		}
		return fmt.Sprintf("playlist %s/%s", a.Owner, a.PlaylistID)
	default:
		return string(ActionUnknown)
	}
}

func (a Action) kind() string {
	switch a.Type {
	case ActionPlayTrack:
		return "track"
	case ActionPlayPlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

func (a Action) key() string {
	if a.Type == ActionPlayPlaylist {
		return a.Owner + "/" + a.PlaylistID
	}
	return a.Title
}

type Resolver interface {
	ResolveTrack(ctx context.Context, title string) (string, error)
	ResolvePlaylist(ctx context.Context, owner, playlistID string) ([]string, error)
}

type Player interface {
	PlayQueue(ctx context.Context, uris []string) error
}

// Controller turns actions into a freshly populated, playing speaker queue.
// Requests run one at a time; a second caller waits on PlaybackMutex until
// the first has finished with the speaker.
type Controller struct {
	resolver      Resolver
	player        Player
	logger        *log.Entry
	history       *PlayHistory
	PlaybackMutex sync.Mutex
}

func NewController(resolver Resolver, player Player, logger *log.Entry) *Controller {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Controller{
		resolver: resolver,
		player:   player,
		logger:   logger.WithField("module", "controller"),
		history:  NewPlayHistory(defaultHistorySize),
	}
}

func (c *Controller) PlayTrack(ctx context.Context, title string) error {
	return c.Play(ctx, TrackAction(title))
}

func (c *Controller) PlayPlaylist(ctx context.Context, owner, playlistID string) error {
	return c.Play(ctx, PlaylistAction(owner, playlistID))
}

// History returns the most recent successful requests, oldest first.
func (c *Controller) History(n int) []PlayHistoryEntry {
	return c.history.GetRecent(n)
}

// Play resolves the action and replaces the speaker's queue with the result.
// Nothing is sent to the speaker unless resolution produced at least one
// track.
func (c *Controller) Play(ctx context.Context, action Action) error {
	if action.Type != ActionPlayTrack && action.Type != ActionPlayPlaylist {
		return fmt.Errorf("%w: %s", ErrUnknownAction, action.Type)
	}

	c.PlaybackMutex.Lock()
	defer c.PlaybackMutex.Unlock()

	requestID := uuid.NewString()
	ctx, span := sentryhelper.StartRequestTransaction(ctx, action.kind(), action.key(), requestID)
	defer span.Finish()

	logger := c.logger.WithFields(log.Fields{
		"request": requestID,
		"action":  action.Type,
	})
	logger.Debugf("handling %s", action)

	ids, err := c.resolve(ctx, action)
	if err != nil {
		c.fail(ctx, span, err)
		return err
	}
	if len(ids) == 0 {
		err := fmt.Errorf("%w: nothing to play for %s", spotify.ErrNotFound, action)
		c.fail(ctx, span, err)
		return err
	}

	uris := make([]string, len(ids))
	for i, id := range ids {
		uris[i] = sonos.SpotifyQueueURI(id)
	}

	sentryhelper.AddBreadcrumb(ctx, "sonos", fmt.Sprintf("queueing %d tracks", len(uris)))
	if err := c.player.PlayQueue(ctx, uris); err != nil {
		c.fail(ctx, span, err)
		return err
	}

	c.history.Add(PlayHistoryEntry{
		RequestID: requestID,
		Action:    action,
		Tracks:    len(uris),
		PlayedAt:  time.Now(),
	})
	span.Status = sentry.SpanStatusOK
	logger.Infof("playing %s (%d tracks)", action, len(uris))
	return nil
}

func (c *Controller) resolve(ctx context.Context, action Action) ([]string, error) {
	if action.Type == ActionPlayPlaylist {
		return c.resolver.ResolvePlaylist(ctx, action.Owner, action.PlaylistID)
	}
	id, err := c.resolver.ResolveTrack(ctx, action.Title)
	if err != nil {
		return nil, err
	}
	return []string{id}, nil
}

// not-found is the operator's typo, not ours; it is not reported to Sentry.
func (c *Controller) fail(ctx context.Context, span *sentry.Span, err error) {
	switch {
	case errors.Is(err, spotify.ErrNotFound):
		span.Status = sentry.SpanStatusNotFound
	case errors.Is(err, sonos.ErrSpeakerNotFound):
		span.Status = sentry.SpanStatusUnavailable
		sentryhelper.CaptureException(ctx, err)
	default:
		span.Status = sentry.SpanStatusInternalError
		sentryhelper.CaptureException(ctx, err)
	}
}
