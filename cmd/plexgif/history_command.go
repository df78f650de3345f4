package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"plexgif/internal/api"
	"plexgif/internal/clip"
	"plexgif/internal/gifmaker"
	"plexgif/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		itemID string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previously rendered clips, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			return ctx.withService(func(svc *gifmaker.Service) error {
				records, err := svc.History(cmd.Context(), history.ListOptions{ItemID: itemID, Limit: limit})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if records == nil {
						records = []history.Record{}
					}
					return writeJSON(cmd, api.HistoryResponse{Clips: records})
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No clips rendered yet")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					subtitle := rec.SubtitleKind
					if rec.SubtitleLanguage != "" {
						subtitle += " (" + rec.SubtitleLanguage + ")"
					}
					rows = append(rows, []string{
						strconv.FormatInt(rec.ID, 10),
						rec.ItemID,
						clip.FormatTimestamp(rec.Start),
						clip.FormatTimestamp(rec.End),
						subtitle,
						rec.CreatedAt.Local().Format(time.DateTime),
						rec.WebPath,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"#", "Item", "Start", "End", "Subtitles", "Created", "Path"}, rows, 0))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&itemID, "item", "", "Only show clips of this item")
	cmd.Flags().IntVar(&limit, "limit", 25, "Maximum clips to list")
	return cmd
}
