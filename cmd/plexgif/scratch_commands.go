package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"plexgif/internal/api"
	"plexgif/internal/gifmaker"
)

type scratchEntry struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Modified time.Time `json:"modified"`
	Bytes    int64     `json:"bytes"`
	Active   bool      `json:"active"`
}

func newScratchCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scratch",
		Short: "Inspect or clear scratch subtitle workspaces",
	}
	cmd.AddCommand(newScratchListCommand(ctx))
	cmd.AddCommand(newScratchCleanCommand(ctx))
	return cmd
}

func newScratchListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scratch workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *gifmaker.Service) error {
				dirs, err := svc.ScratchWorkspaces()
				if err != nil {
					return err
				}
				entries := make([]scratchEntry, 0, len(dirs))
				for _, d := range dirs {
					entries = append(entries, scratchEntry{Name: d.Name, Path: d.Path, Modified: d.ModTime, Bytes: d.Size, Active: d.Active})
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintf(out, "No scratch workspaces in %s\n", svc.Workspaces().Root())
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.Name,
						formatSize(e.Bytes),
						formatAge(time.Since(e.Modified)),
						yesNo(e.Active),
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Workspace", "Size", "Age", "Active"}, rows, 1, 2))
				return nil
			})
		},
	}
}

func newScratchCleanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clean [NAME]",
		Short: "Delete scratch subtitles (one entry, or every idle one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return ctx.withService(func(svc *gifmaker.Service) error {
				removed, err := svc.DeleteScratchSubtitles(name)
				if err != nil {
					return err
				}
				if removed == nil {
					removed = []string{}
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.ScratchResponse{Removed: removed})
				}
				out := cmd.OutOrStdout()
				if len(removed) == 0 {
					fmt.Fprintln(out, "Nothing to remove")
					return nil
				}
				for _, path := range removed {
					fmt.Fprintf(out, "Removed %s\n", path)
				}
				return nil
			})
		},
	}
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dd", int(d.Hours())/24)
	}
}
