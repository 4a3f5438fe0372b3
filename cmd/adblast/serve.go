package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/FranksOps/adblast/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := buildStack(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		srv := server.New(server.Config{
			Addr:            addr,
			CORSOrigins:     cfg.Server.CORSOrigins,
			GinMode:         cfg.Server.GinMode,
			RequestTimeout:  cfg.Harvest.RequestTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}, st.pipeline, logger)
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}
