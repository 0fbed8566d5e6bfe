package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"indoor-nav.klederson.com/internal/bluetooth"
	"indoor-nav.klederson.com/internal/config"
	"indoor-nav.klederson.com/internal/engine"
	"indoor-nav.klederson.com/internal/feed"
	"indoor-nav.klederson.com/internal/pathfind"
)

var (
	flagAddr  string
	flagRoute string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine headless and stream positions over a websocket",
		Long: `serve runs the positioning engine without the terminal UI. After every tick
the snapshot is pushed to websocket clients on /ws and kept for GET /snapshot.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	cmd.Flags().StringVar(&flagAddr, "addr", config.FeedAddr, "Listen address for the feed")
	cmd.Flags().StringVar(&flagRoute, "route", "", "Name of a place to keep a route to")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	log, closeLog, err := newLogger(flagLogFile, flagLogLevel, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	tuning, eng, err := setup(cmd, log)
	if err != nil {
		return err
	}
	if flagRoute != "" {
		if _, ok := eng.POI(flagRoute); !ok {
			return fmt.Errorf("--route %q: %w", flagRoute, engine.ErrUnknownPOI)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := feed.NewHub(log)
	go hub.Run(ctx)

	source, scanner := newSource(tuning, eng, log)
	err = scanner.Start(bluetooth.SenderFunc(func(msg tea.Msg) {
		r, ok := msg.(bluetooth.ReadingMsg)
		if !ok {
			return
		}
		if err := eng.Ingest(r.Reading); err != nil {
			log.WithError(err).WithField("beacon", r.BeaconID).Debug("reading rejected")
		}
	}))
	if err != nil {
		return err
	}
	defer scanner.Stop()

	srv := &http.Server{
		Addr:              flagAddr,
		Handler:           feed.NewServer(hub).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go publishLoop(ctx, eng, hub, tuning.GetRecomputeInterval(), log)

	log.WithFields(logrus.Fields{"addr": flagAddr, "source": source}).Info("feed listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// publishLoop ticks the engine and publishes a frame after every tick.
func publishLoop(ctx context.Context, eng *engine.Engine, hub *feed.Hub, every time.Duration, log logrus.FieldLogger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			eng.Tick(now)

			var path []pathfind.Cell
			if flagRoute != "" {
				p, err := eng.RouteToPOI(flagRoute)
				if err != nil {
					log.WithError(err).Warn("route failed")
				}
				path = p
			}
			if err := hub.Publish(feed.Frame{Snapshot: eng.Snapshot(), Path: path}); err != nil {
				log.WithError(err).Error("publish failed")
			}
		}
	}
}
