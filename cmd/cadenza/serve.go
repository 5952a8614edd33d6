package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cadenza/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the player with its local control surface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.session.Start(); err != nil {
				return err
			}

			a.logger.WithFields(logrus.Fields{
				"session":  a.session.ID,
				"tracks":   a.session.Library().Len(),
				"watching": a.cfg.Library.WatchForChanges,
			}).Info("Cadenza started")
			if a.session.Library().Len() == 0 {
				a.logger.WithField("supported_formats", a.cfg.Library.SupportedFormats).
					Warn("Library is empty, use `cadenza scan <folder>` or POST /api/library/scan")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !a.cfg.Server.Enabled {
				a.logger.Info("Control surface disabled, waiting for shutdown signal")
				<-ctx.Done()
				a.logger.Info("Received shutdown signal")
				return nil
			}

			return server.NewServer(a.session, a.logger).ListenAndServe(ctx)
		},
	}
}
