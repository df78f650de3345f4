package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"plexgif/internal/daemon"
	"plexgif/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and clip server in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if bind != "" {
				cfg.Paths.APIBind = bind
			}
			return runServer(cmd.Context(), cmd, ctx)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides paths.api_bind)")
	return cmd
}

func runServer(cmdCtx context.Context, cmd *cobra.Command, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger := ctx.ensureLogger()

	svc, closeSvc, err := openService(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSvc()

	d, err := daemon.New(cfg, svc, logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "plexgif listening on http://%s (Ctrl+C to stop)\n", d.Addr())

	<-signalCtx.Done()
	logger.Info("plexgif server shutting down", logging.String(logging.FieldEventType, "server_shutdown"))
	d.Stop()
	return nil
}
