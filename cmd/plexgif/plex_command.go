package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"plexgif/internal/config"
	"plexgif/internal/logging"
	"plexgif/internal/services/plex"
)

const linkTimeout = 10 * time.Minute

func newPlexCommand(cfgFn func() *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plex",
		Short: "Manage the plex.tv device link",
	}

	cmd.AddCommand(newPlexLinkCommand(cfgFn))
	cmd.AddCommand(newPlexStatusCommand(cfgFn))

	return cmd
}

func newLinkManager(cfg *config.Config) (*plex.LinkManager, error) {
	return plex.NewLinkManager(cfg.Plex.AuthStatePath, plex.WithLinkBaseURL(cfg.Plex.LinkBaseURL))
}

func newPlexLinkCommand(cfgFn func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "link",
		Short: "Authorize plexgif with plex.tv using a link code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cfgFn()
			if cfg == nil {
				return errors.New("configuration not loaded")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), linkTimeout)
			defer cancel()

			manager, err := newLinkManager(cfg)
			if err != nil {
				return err
			}

			pin, err := manager.RequestPin(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Open https://plex.tv/link and enter the code:")
			fmt.Fprintf(out, "\n    %s\n\n", pin.Code)
			fmt.Fprintln(out, "Waiting for authorization... (Ctrl+C to abort)")

			token, err := manager.WaitForAuthorization(ctx, pin)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Linked successfully (token %s saved to %s).\n", logging.MaskToken(token), cfg.Plex.AuthStatePath)
			fmt.Fprintln(out, "plex.token and PLEX_TOKEN still take precedence over the linked token.")
			return nil
		},
	}
}

func newPlexStatusCommand(cfgFn func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a plex.tv link token is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cfgFn()
			if cfg == nil {
				return errors.New("configuration not loaded")
			}
			state, err := plex.NewFileTokenStore(cfg.Plex.AuthStatePath).Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "State file: %s\n", cfg.Plex.AuthStatePath)
			fmt.Fprintf(out, "Linked:     %s\n", yesNo(state.AuthorizationToken != ""))
			if state.AuthorizationToken != "" {
				fmt.Fprintf(out, "Token:      %s\n", logging.MaskToken(state.AuthorizationToken))
				if !state.LinkedAt.IsZero() {
					fmt.Fprintf(out, "Linked at:  %s\n", state.LinkedAt.Local().Format(time.DateTime))
				}
			}
			return nil
		},
	}
}
