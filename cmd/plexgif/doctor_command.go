package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"plexgif/internal/deps"
	"plexgif/internal/preflight"
)

type doctorReport struct {
	Dependencies []deps.Status      `json:"dependencies"`
	Checks       []preflight.Result `json:"checks"`
	Problems     int                `json:"problems"`
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check render binaries, directories, and media server access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			report := doctorReport{
				Dependencies: preflight.CheckSystemDeps(cmd.Context(), cfg),
				Checks:       preflight.RunAll(cmd.Context(), cfg),
			}
			report.Problems = len(deps.Missing(report.Dependencies)) + len(preflight.Failed(report.Checks))

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printDoctorReport(cmd, report, cfg.Plex.URL)
			}
			if report.Problems > 0 {
				return fmt.Errorf("doctor found %d problem(s)", report.Problems)
			}
			return nil
		},
	}
}

func printDoctorReport(cmd *cobra.Command, report doctorReport, serverURL string) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderSectionHeader("Dependencies", colorize))
	for _, dep := range report.Dependencies {
		kind := statusOK
		message := dep.Command
		switch {
		case !dep.Available && dep.Optional:
			kind = statusWarn
			message = dep.Detail + " (optional)"
		case !dep.Available:
			kind = statusError
			message = dep.Detail
		case dep.Detail != "":
			message = dep.Detail
		}
		fmt.Fprintln(out, renderStatusLine(dep.Name, kind, message, colorize))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSectionHeader("Environment", colorize))
	for _, check := range report.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	if strings.TrimSpace(serverURL) == "" {
		fmt.Fprintln(out, renderStatusLine("Media server", statusWarn, "not configured (set plex.url, PLEX_URL, or --server)", colorize))
	}
}
