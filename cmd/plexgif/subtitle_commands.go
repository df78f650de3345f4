package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"plexgif/internal/gifmaker"
)

const captionTextWidth = 60

func newCaptionsCommand(ctx *commandContext) *cobra.Command {
	var (
		key   string
		asVTT bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "captions ITEM_ID",
		Short: "Preview the cues of a subtitle stream",
		Long: "Preview the cues of a text subtitle stream. Without --key the\n" +
			"preferred-language stream is used. --vtt prints WebVTT instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *gifmaker.Service) error {
				if asVTT {
					vtt, err := svc.CaptionsVTT(cmd.Context(), args[0], key)
					if err != nil {
						return err
					}
					_, err = cmd.OutOrStdout().Write(vtt)
					return err
				}

				preview, err := svc.Captions(cmd.Context(), args[0], key)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, preview)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Stream:   %s\n", preview.Key)
				fmt.Fprintf(out, "Language: %s (confidence %.2f)\n", preview.Language, preview.Confidence)
				fmt.Fprintf(out, "Encoding: %s\n", preview.Encoding)
				if preview.Dropped > 0 {
					fmt.Fprintf(out, "Dropped:  %d advertisement cue(s)\n", preview.Dropped)
				}

				cues := preview.Cues
				if limit > 0 && len(cues) > limit {
					cues = cues[:limit]
				}
				rows := make([][]string, 0, len(cues))
				for _, cue := range cues {
					rows = append(rows, []string{
						formatCueTime(cue.StartMs),
						formatCueTime(cue.EndMs),
						truncate(strings.ReplaceAll(cue.Text, "\n", " / "), captionTextWidth),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Start", "End", "Text"}, rows, 0, 1))
				if len(cues) < len(preview.Cues) {
					fmt.Fprintf(out, "... %d more cue(s); use --limit 0 to show all\n", len(preview.Cues)-len(cues))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Subtitle stream key (default: preferred language)")
	cmd.Flags().BoolVar(&asVTT, "vtt", false, "Print the stream as WebVTT")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum cues to print (0 for all)")
	return cmd
}

func newFetchSubtitlesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-subtitles ITEM_ID",
		Short: "Ask the media server's subtitle agents for a preferred-language stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *gifmaker.Service) error {
				result, err := svc.RequestProviderSubtitles(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				if !result.Found {
					fmt.Fprintln(out, "No provider subtitles found")
					return nil
				}
				fmt.Fprintf(out, "Selected provider stream %d (%s)\n", result.StreamID, result.Language)
				return nil
			})
		},
	}
}

func formatCueTime(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, d/time.Millisecond)
}

func truncate(value string, width int) string {
	runes := []rune(value)
	if width <= 0 || len(runes) <= width {
		return value
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
