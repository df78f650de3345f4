package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"plexgif/internal/api"
	"plexgif/internal/config"
	"plexgif/internal/fileutil"
	"plexgif/internal/gifmaker"
	"plexgif/internal/subtitles"
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

func newClipCommand(ctx *commandContext) *cobra.Command {
	var (
		startFlag   string
		endFlag     string
		subtitleKey string
		copyURL     bool
		baseURL     string
		saveAs      string
	)

	cmd := &cobra.Command{
		Use:   "clip ITEM_ID --start TIME --end TIME",
		Short: "Render a GIF clip of an item",
		Long: "Render a GIF clip of an item between --start and --end.\n\n" +
			"Times accept milliseconds (1500), Go durations (1m2.5s), or clock\n" +
			"notation (00:01:02.500). --subtitle takes a key from `plexgif subtitles`;\n" +
			"a stream in subtitles.preferred_language always wins when present.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseClipTime(startFlag)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			end, err := parseClipTime(endFlag)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}

			return ctx.withService(func(svc *gifmaker.Service) error {
				result, err := svc.CreateClip(cmd.Context(), gifmaker.ClipRequest{
					ItemID:      args[0],
					StartMs:     start.Milliseconds(),
					EndMs:       end.Milliseconds(),
					SubtitleKey: subtitleKey,
				})
				if err != nil {
					return err
				}

				if target := strings.TrimSpace(saveAs); target != "" {
					expanded, err := config.ExpandPath(target)
					if err != nil {
						return fmt.Errorf("resolve --save-as: %w", err)
					}
					if err := fileutil.CopyFileVerified(result.Path, expanded); err != nil {
						return fmt.Errorf("save clip copy: %w", err)
					}
				}

				link := clipURL(baseURL, svc.Config(), result.WebPath)
				if copyURL {
					if err := writeClipboard(link); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "warn: unable to copy clip URL: %v\n", err)
					}
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, api.ClipResponse{Clip: result})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Clip written to %s\n", result.Path)
				fmt.Fprintf(out, "URL:       %s\n", link)
				subtitle := result.Subtitle
				if result.SubtitleLanguage != "" {
					subtitle += " (" + result.SubtitleLanguage + ")"
				}
				fmt.Fprintf(out, "Subtitles: %s\n", subtitle)
				if copyURL {
					fmt.Fprintln(out, "URL copied to clipboard")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&startFlag, "start", "", "Clip start time")
	cmd.Flags().StringVar(&endFlag, "end", "", "Clip end time")
	cmd.Flags().StringVar(&subtitleKey, "subtitle", "", "Subtitle stream key (default: preferred language)")
	cmd.Flags().BoolVar(&copyURL, "copy", false, "Copy the clip URL to the clipboard")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public base URL of the clip server (default: derived from paths.api_bind)")
	cmd.Flags().StringVar(&saveAs, "save-as", "", "Also copy the rendered GIF to this path")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

// parseClipTime accepts whole milliseconds, Go duration strings, or
// HH:MM:SS[.mmm] clock notation.
func parseClipTime(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("time is required")
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("time must not be negative")
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	if strings.Contains(value, ":") {
		clock, fraction, _ := strings.Cut(strings.ReplaceAll(value, ",", "."), ".")
		if strings.Count(clock, ":") == 1 {
			clock = "00:" + clock
		}
		if len(fraction) > 3 {
			return 0, fmt.Errorf("invalid time %q: at most millisecond precision", value)
		}
		for len(fraction) < 3 {
			fraction += "0"
		}
		return subtitles.ParseTimestamp(clock + "," + fraction)
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	if d < 0 {
		return 0, fmt.Errorf("time must not be negative")
	}
	return d.Truncate(time.Millisecond), nil
}

// clipURL joins webPath onto base, deriving base from the API bind address
// when unset.
func clipURL(base string, cfg *config.Config, webPath string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" && cfg != nil {
		host, port, err := net.SplitHostPort(cfg.Paths.APIBind)
		if err == nil {
			if host == "" || host == "0.0.0.0" || host == "::" {
				host = "localhost"
			}
			base = "http://" + net.JoinHostPort(host, port)
		}
	}
	return base + webPath
}
