package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kakomon/admin/internal/logger"
	"github.com/kakomon/admin/internal/server"
)

func serveCMD(load loader) *cobra.Command {
	var addr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the admin web app",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}

			log := logger.New(cfg.Log.Level)
			defer log.Sync()
			if cfg.App.Environment != "development" && cfg.Session.Secret == "kakomon-dev-session-key" {
				log.Warn("session.secret is the development default; set KAKOMON_SESSION_SECRET")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, cfg, log)
			if err != nil {
				log.Error("server init failed", zap.Error(err))
				return err
			}
			return srv.Run(ctx)
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.address)")
	return serve
}
