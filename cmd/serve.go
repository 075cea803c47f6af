package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/geochange/landchange/core"
	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/internal/logger"
	"github.com/geochange/landchange/internal/server"
)

// serveCmd runs the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis over a JSON HTTP API.",
	Long: `Start an HTTP server exposing the analysis session.

The session is initialized once at startup unless --lazy is set; POST /api/initialize
rebuilds it at any time. Readers always see the last complete initialization.

Routes:
  GET  /healthz
  GET  /metrics
  GET  /api/status
  POST /api/initialize
  GET  /api/areas/{year}
  GET  /api/change/{from}/{to}
  GET  /api/indices/{year}
  GET  /api/climate/{year}
  GET  /api/layers/{year}
  GET  /api/report

Examples:
  landchange serve --listen :9000`,
	PreRunE: sharedSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := logger.L()
		session, closer, err := buildSession(cfg, func(ev core.ProgressEvent) {
			log.Info("stage finished", "session", ev.SessionID, "year", ev.Year, "stage", ev.Stage, "state", ev.State, "reason", ev.Reason)
		})
		if err != nil {
			return err
		}
		defer closer()

		if lazy, _ := cmd.Flags().GetBool("lazy"); !lazy {
			if _, err := session.Initialize(ctx); err != nil {
				contract.LogWarn("Initial initialization failed, serving until POST /api/initialize succeeds", err)
			}
		}
		return server.New(session, log).ListenAndServe(ctx, cfg.Listen)
	},
}
