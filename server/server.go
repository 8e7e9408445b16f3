// Package server exposes playback over HTTP so phones and home automation
// can trigger the same actions as the console and the tag reader.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"jukebox/controller"
	"jukebox/input"
	"jukebox/sonos"
	"jukebox/spotify"
)

type Player interface {
	Play(ctx context.Context, action controller.Action) error
	History(n int) []controller.PlayHistoryEntry
}

type trackRequest struct {
	Title string `json:"title" binding:"required"`
}

type playlistRequest struct {
	Owner string `json:"owner" binding:"required"`
	ID    string `json:"id" binding:"required"`
}

type historyEntry struct {
	RequestID string    `json:"request_id"`
	Action    string    `json:"action"`
	Tracks    int       `json:"tracks"`
	PlayedAt  time.Time `json:"played_at"`
}

type handler struct {
	player Player
	codes  *input.CodeTable
	logger *log.Entry
}

// NewRouter builds the gin engine. middleware runs ahead of every route;
// main passes the Sentry handler there.
func NewRouter(player Player, codes *input.CodeTable, logger *log.Entry, middleware ...gin.HandlerFunc) *gin.Engine {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	if codes == nil {
		codes = input.NewCodeTable(nil)
	}
	h := &handler{
		player: player,
		codes:  codes,
		logger: logger.WithField("module", "server"),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware...)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/history", h.history)
	router.POST("/tracks", h.playTrack)
	router.POST("/playlists", h.playPlaylist)
	router.POST("/codes/:code", h.playCode)

	return router
}

func (h *handler) playTrack(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	h.play(c, controller.TrackAction(req.Title))
}

func (h *handler) playPlaylist(c *gin.Context) {
	var req playlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner and id are required"})
		return
	}
	h.play(c, controller.PlaylistAction(req.Owner, req.ID))
}

func (h *handler) playCode(c *gin.Context) {
	code := c.Param("code")
	action := h.codes.Lookup(code)
	if action.Type == controller.ActionUnknown {
		h.logger.Warnf("unknown code %s", code)
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown code " + code})
		return
	}
	h.play(c, action)
}

// play runs to completion even after the client hangs up.
func (h *handler) play(c *gin.Context, action controller.Action) {
	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.player.Play(ctx, action); err != nil {
		status := statusFor(err)
		entry := h.logger.WithError(err).WithField("status", status)
		if status == http.StatusNotFound {
			entry.Warnf("not found: %s", action)
		} else {
			entry.Errorf("failed to play %s", action)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"playing": action.String()})
}

func (h *handler) history(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive number"})
		return
	}

	entries := h.player.History(n)
	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntry{
			RequestID: e.RequestID,
			Action:    e.Action.String(),
			Tracks:    e.Tracks,
			PlayedAt:  e.PlayedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

func statusFor(err error) int {
	var protoErr *sonos.ProtocolError
	switch {
	case errors.Is(err, spotify.ErrNotFound), errors.Is(err, controller.ErrUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, sonos.ErrSpeakerNotFound):
		return http.StatusServiceUnavailable
	case errors.As(err, &protoErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Serve listens on port until ctx is done, then drains in-flight requests.
func Serve(ctx context.Context, port string, router http.Handler, logger *log.Entry) error {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on :%s", port)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
