package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/formfill/internal/relay"
)

var relayProxyURL string

// relayCmd runs the relay daemon in the foreground
var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the relay daemon",
	Long: `Runs the relay daemon.

Endpoints:
  POST /trigger    start a fill: {"tabId":1,"frameId":0,"targetElementId":"bio"}
  GET  /pages      list connected pages
  GET  /pages/ws   page websocket (?tab=&frame=)
  GET  /health     liveness and the pending target
  GET  /metrics    Prometheus metrics`,
	RunE: runRelay,
}

func init() {
	relayCmd.Flags().StringVar(&relayProxyURL, "proxy-url", "", "Generation proxy endpoint (default from config)")
}

func runRelay(cmd *cobra.Command, args []string) error {
	if relayProxyURL != "" {
		cfg.Relay.ProxyURL = relayProxyURL
	}

	proxy := relay.NewProxyClient(cfg.Relay.ProxyURL, cfg.Relay.ProxyTimeout.Std())
	proxy.SetAPIKey(cfg.Supabase.AnonKey)

	srv := relay.NewServer(cfg, sessionStore(), proxy, logger)
	defer srv.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-sigChan:
		logger.Info("Shutting down relay")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Error during shutdown", zap.Error(err))
		}
		return nil
	case err := <-errChan:
		return err
	}
}
