package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"jukebox/config"
	"jukebox/controller"
	"jukebox/helpers"
	"jukebox/input"
	"jukebox/resolver"
	"jukebox/sentry"
	"jukebox/server"
	"jukebox/sonos"
	"jukebox/spotify"
)

type app struct {
	cfg        *config.ConfigStruct
	logger     *log.Entry
	discoverer *sonos.Discoverer
	session    *sonos.Session
	controller *controller.Controller
}

func main() {
	envErr := godotenv.Load()
	cfg := config.NewConfig()
	helpers.ConfigureLogging(log.StandardLogger(), cfg.Options.LogLevel, os.Stderr)
	if envErr != nil {
		log.Debugf("no .env file loaded: %v", envErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, logger: log.WithField("module", "main")}
	err := a.rootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		sentry.ReportFatal(err)
		stop()
		log.Fatal(err)
	}
	sentry.Flush()
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "jukebox",
		Short:         "Play Spotify tracks and playlists on a Sonos speaker",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runConsole,
	}

	var codesPath, port string

	console := &cobra.Command{
		Use:   "console",
		Short: "Prompt for titles and play them",
		Args:  cobra.NoArgs,
		RunE:  a.runConsole,
	}

	reader := &cobra.Command{
		Use:   "reader [source]",
		Short: "Play the actions bound to tag reader codes read from stdin or a FIFO",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := ""
			if len(args) == 1 {
				source = args[0]
			}
			return a.runReader(cmd.Context(), codesPath, source)
		},
	}
	reader.Flags().StringVar(&codesPath, "codes", a.cfg.Options.CodesPath, "code table file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Accept playback requests over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServer(cmd.Context(), codesPath, port)
		},
	}
	serve.Flags().StringVar(&codesPath, "codes", a.cfg.Options.CodesPath, "code table file")
	serve.Flags().StringVarP(&port, "port", "p", a.cfg.Options.Port, "listen port")

	track := &cobra.Command{
		Use:   "track <title>",
		Short: "Play one track by title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context(), false); err != nil {
				return err
			}
			return a.controller.PlayTrack(cmd.Context(), strings.Join(args, " "))
		},
	}

	playlist := &cobra.Command{
		Use:   "playlist <owner> <id>",
		Short: "Play a user's playlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context(), false); err != nil {
				return err
			}
			return a.controller.PlayPlaylist(cmd.Context(), args[0], args[1])
		},
	}

	speakers := &cobra.Command{
		Use:   "speakers",
		Short: "List the speakers on the network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listSpeakers(cmd.Context(), cmd.OutOrStdout())
		},
	}

	root.AddCommand(console, reader, serve, track, playlist, speakers)
	return root
}

// setup builds the playback pipeline. Missing configuration and a failed
// Spotify login end the process; a speaker that cannot be found yet does
// not, since every request looks for it again.
func (a *app) setup(ctx context.Context, warmSpeaker bool) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	if err := sentry.Init(a.cfg.Sentry); err != nil {
		a.logger.WithError(err).Warn("sentry init failed")
	}

	catalog, err := helpers.Timed(a.logger, "Authenticating with Spotify", func() (*spotify.Client, error) {
		return spotify.NewClient(ctx, a.cfg.Spotify, a.logger)
	})
	if err != nil {
		return err
	}

	a.discoverer = a.newDiscoverer()
	a.session = sonos.NewSession(a.cfg.Sonos.Speaker, a.discoverer.Devices, a.logger)
	a.controller = controller.NewController(resolver.New(catalog, a.logger), a.session, a.logger)

	if warmSpeaker {
		if _, err := a.session.Handle(ctx); err != nil {
			a.logger.WithError(err).Warn("speaker not available yet, will look again on the first request")
		}
	}
	return nil
}

func (a *app) newDiscoverer() *sonos.Discoverer {
	httpClient := &http.Client{Timeout: a.cfg.Sonos.HTTPTimeout}
	return sonos.NewDiscoverer(a.cfg.Sonos.DiscoveryTimeout, httpClient, a.logger)
}

func (a *app) runConsole(cmd *cobra.Command, args []string) error {
	if err := a.setup(cmd.Context(), true); err != nil {
		return err
	}
	return input.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout(), a.controller, a.logger).Run(cmd.Context())
}

func (a *app) runReader(ctx context.Context, codesPath, source string) error {
	codes, err := input.LoadCodes(codesPath, a.logger)
	if err != nil {
		return err
	}
	if err := a.setup(ctx, true); err != nil {
		return err
	}

	in, err := input.OpenSource(source)
	if err != nil {
		return err
	}
	defer in.Close()

	a.logger.Infof("waiting for codes, %d known", codes.Len())
	return input.NewReader(in, codes, a.controller, a.logger).Run(ctx)
}

func (a *app) runServer(ctx context.Context, codesPath, port string) error {
	codes, err := input.LoadCodes(codesPath, a.logger)
	if err != nil {
		return err
	}
	if err := a.setup(ctx, true); err != nil {
		return err
	}

	router := server.NewRouter(a.controller, codes, a.logger, sentry.GetSentryGin())
	return server.Serve(ctx, port, router, a.logger)
}

func (a *app) listSpeakers(ctx context.Context, out io.Writer) error {
	speakers, err := helpers.Timed(a.logger, "Finding speakers", func() ([]*sonos.Speaker, error) {
		return a.newDiscoverer().Discover(ctx)
	})
	if err != nil {
		return err
	}
	if len(speakers) == 0 {
		return fmt.Errorf("%w: nothing answered on the network", sonos.ErrSpeakerNotFound)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tUUID\tLOCATION")
	for _, speaker := range speakers {
		fmt.Fprintf(w, "%s\t%s\t%s\n", speaker.Name(), speaker.UUID(), speaker.Location())
	}
	return w.Flush()
}
