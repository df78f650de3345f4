package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var (
		configFlag  string
		envFileFlag string
		serverFlag  string
		tokenFlag   string
		jsonFlag    bool
	)

	ctx := newCommandContext(&configFlag, &envFileFlag, &serverFlag, &tokenFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:           "plexgif",
		Short:         "Cut subtitled GIF clips from a Plex media server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	flags.StringVar(&envFileFlag, "env-file", ".env", "Environment file loaded before the configuration")
	flags.StringVar(&serverFlag, "server", "", "Media server base URL (overrides plex.url)")
	flags.StringVar(&tokenFlag, "token", "", "Media server token (overrides plex.token)")
	flags.BoolVar(&jsonFlag, "json", false, "Print machine-readable JSON")

	for _, cmd := range newBrowseCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newClipCommand(ctx))
	rootCmd.AddCommand(newCaptionsCommand(ctx))
	rootCmd.AddCommand(newFetchSubtitlesCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newScratchCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newPlexCommand(ctx.configValue))

	return rootCmd
}
