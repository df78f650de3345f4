package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"plexgif/internal/api"
	"plexgif/internal/clip"
	"plexgif/internal/gifmaker"
	"plexgif/internal/services/plex"
)

func newBrowseCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newLibrariesCommand(ctx),
		newItemsCommand(ctx),
		newMoviesCommand(ctx),
		newEpisodesCommand(ctx),
		newSubtitlesCommand(ctx),
		newDurationCommand(ctx),
	}
}

func newLibrariesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "libraries",
		Short: "List library sections on the media server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *gifmaker.Service) error {
				libraries, err := svc.ListLibraries(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.LibrariesResponse{Libraries: libraries})
				}
				if len(libraries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No libraries found")
					return nil
				}
				rows := make([][]string, 0, len(libraries))
				for _, lib := range libraries {
					rows = append(rows, []string{lib.ID, lib.Title, string(lib.Type)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Title", "Type"}, rows, 0))
				return nil
			})
		},
	}
}

func newItemsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "items LIBRARY_KEY",
		Short: "List the shows (or flat items) of a library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *gifmaker.Service) error {
				items, err := svc.ListShowsOrFlatItems(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printItems(cmd, ctx, items)
			})
		},
	}
}

func newMoviesCommand(ctx *commandContext) *cobra.Command {
	var isMovie bool
	cmd := &cobra.Command{
		Use:   "movies LIBRARY_KEY",
		Short: "List the movies of a library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *gifmaker.Service) error {
				items, err := svc.ListMovies(cmd.Context(), args[0], isMovie)
				if err != nil {
					return err
				}
				return printItems(cmd, ctx, items)
			})
		},
	}
	cmd.Flags().BoolVar(&isMovie, "movie", true, "Mark returned items as movies")
	return cmd
}

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	var isMovie bool
	cmd := &cobra.Command{
		Use:   "episodes SHOW_KEY",
		Short: "List every episode of a show",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *gifmaker.Service) error {
				items, err := svc.ListEpisodes(cmd.Context(), args[0], isMovie)
				if err != nil {
					return err
				}
				return printItems(cmd, ctx, items)
			})
		},
	}
	cmd.Flags().BoolVar(&isMovie, "movie", false, "Mark returned items as movies")
	return cmd
}

func printItems(cmd *cobra.Command, ctx *commandContext, items []plex.MediaItem) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, api.ItemsResponse{Items: items})
	}
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No items found")
		return nil
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{item.ID, item.Title, yesNo(item.IsMovie)})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Title", "Movie"}, rows, 0))
	return nil
}

func newSubtitlesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "subtitles ITEM_ID",
		Short: "List the subtitle streams of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *gifmaker.Service) error {
				options, err := svc.GetSubtitleOptions(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.SubtitlesResponse{ItemID: args[0], Subtitles: options})
				}
				if len(options) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No subtitle streams")
					return nil
				}
				rows := make([][]string, 0, len(options))
				for _, opt := range options {
					rows = append(rows, []string{
						opt.SelectionKey(),
						opt.Language,
						opt.LanguageCode,
						string(opt.Kind),
						opt.Codec,
						opt.DisplayTitle,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Key", "Language", "Code", "Kind", "Codec", "Title"}, rows))
				return nil
			})
		},
	}
}

func newDurationCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "duration ITEM_ID",
		Short: "Print the runtime of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *gifmaker.Service) error {
				d, err := svc.GetDuration(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.DurationResponse{ItemID: args[0], DurationMs: d.Milliseconds()})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s ms)\n", clip.FormatTimestamp(d), strconv.FormatInt(d.Milliseconds(), 10))
				return nil
			})
		},
	}
}
