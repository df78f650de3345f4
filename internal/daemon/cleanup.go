package daemon

import (
	"context"
	"time"

	"plexgif/internal/logging"
	"plexgif/internal/staging"
)

// apiWriteGrace is added to the render timeout for the HTTP write deadline.
const apiWriteGrace = 45 * time.Second

// CleanupReport summarises one maintenance run.
type CleanupReport struct {
	RanAt       time.Time                `json:"ran_at"`
	Workspaces  staging.CleanStaleResult `json:"workspaces"`
	LogsRemoved int                      `json:"logs_removed"`
}

// RunCleanup removes scratch workspaces older than staging.max_age_minutes
// and log files past logging.retention_days. Workspaces in use are kept.
func (d *Daemon) RunCleanup(ctx context.Context) CleanupReport {
	report := CleanupReport{RanAt: time.Now()}
	if ctx.Err() != nil {
		return report
	}
	report.Workspaces = d.svc.Workspaces().CleanStale(ctx, d.cfg.StagingMaxAge())
	report.LogsRemoved = logging.CleanupOldLogs(d.logger, d.cfg.Logging.RetentionDays, d.cfg.Paths.LogDir, "*.log")

	d.mu.Lock()
	d.lastCleanup = report
	d.mu.Unlock()

	if len(report.Workspaces.Removed) > 0 || report.LogsRemoved > 0 {
		d.logger.Info("maintenance cleanup finished",
			logging.Int("workspaces_removed", len(report.Workspaces.Removed)),
			logging.Int("workspace_errors", len(report.Workspaces.Errors)),
			logging.Int("logs_removed", report.LogsRemoved),
			logging.String(logging.FieldEventType, "maintenance_cleanup"),
		)
	}
	return report
}
