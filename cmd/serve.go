package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/followup-cli/internal/config"
	"github.com/sells-group/followup-cli/internal/server"
)

var (
	servePort    int
	serveOffline bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the follow-up dashboard API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		mode := config.ModeServe
		if serveOffline {
			mode = config.ModeOffline
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}

		adv, err := initAdvisor(ctx, serveOffline)
		if err != nil {
			return err
		}

		registry := server.NewRegistry(cfg.Server.BatchTTL())
		go registry.Run(ctx, 10*time.Minute)

		api := server.New(adv, registry, server.Config{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
			HiddenPhases:   cfg.Report.HiddenPhases,
			Concurrency:    cfg.Batch.Concurrency,
		})

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveOffline, "offline", false, "use canned advisories instead of a model")
	rootCmd.AddCommand(serveCmd)
}
