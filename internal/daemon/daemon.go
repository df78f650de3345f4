package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"plexgif/internal/api"
	"plexgif/internal/config"
	"plexgif/internal/deps"
	"plexgif/internal/gifmaker"
	"plexgif/internal/logging"
	"plexgif/internal/preflight"
)

// Daemon serves the API, runs scheduled maintenance, and enforces
// single-instance execution.
type Daemon struct {
	cfg    *config.Config
	svc    *gifmaker.Service
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	api       *apiServer
	scheduler *cron.Cron

	mu          sync.Mutex
	lastCleanup CleanupReport
	jobs        sync.WaitGroup

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	APIAddress   string             `json:"api_address,omitempty"`
	ServerURL    string             `json:"server_url,omitempty"`
	LockFilePath string             `json:"lock_file"`
	HistoryPath  string             `json:"history_db"`
	ScratchDir   string             `json:"scratch_dir"`
	LastCleanup  CleanupReport      `json:"last_cleanup"`
	Dependencies []deps.Status      `json:"dependencies,omitempty"`
	Checks       []preflight.Result `json:"checks,omitempty"`
}

// New constructs a daemon around svc.
func New(cfg *config.Config, svc *gifmaker.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || svc == nil {
		return nil, errors.New("daemon requires config and service")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		svc:      svc,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, binds the API, and schedules cleanup.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another plexgif server is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.startServices(runCtx); err != nil {
		cancel()
		d.stopServices()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel
	d.running.Store(true)

	for _, result := range preflight.Failed(preflight.RunAll(runCtx, d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported path or server setting"),
			logging.String(logging.FieldImpact, "clip requests may fail until resolved"),
		)
	}

	d.logger.Info("plexgif server started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.addr()),
	)
	return nil
}

func (d *Daemon) startServices(ctx context.Context) error {
	server, err := api.NewServer(d.svc, api.WithLogger(d.logger))
	if err != nil {
		return fmt.Errorf("build api: %w", err)
	}
	d.api = newAPIServer(d.cfg.Paths.APIBind, server.Handler(), d.cfg.RenderTimeout()+apiWriteGrace, d.logger)
	if d.api == nil {
		return errors.New("paths.api_bind is empty")
	}
	if err := d.api.start(ctx); err != nil {
		d.api = nil
		return err
	}

	d.scheduler = cron.New()
	if _, err := d.scheduler.AddFunc(d.cfg.Staging.CleanupSchedule, func() {
		d.RunCleanup(ctx)
	}); err != nil {
		return fmt.Errorf("schedule cleanup %q: %w", d.cfg.Staging.CleanupSchedule, err)
	}
	d.scheduler.Start()

	d.jobs.Add(1)
	go func() {
		defer d.jobs.Done()
		d.RunCleanup(ctx)
	}()
	return nil
}

func (d *Daemon) stopServices() {
	if d.scheduler != nil {
		<-d.scheduler.Stop().Done()
		d.scheduler = nil
	}
	d.jobs.Wait()
	d.api.stop()
	d.api = nil
}

// Stop shuts the API down and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.stopServices()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release server lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no server is running"),
			logging.String(logging.FieldImpact, "next start may report another instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("plexgif server stopped")
}

// Close stops the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Status returns the current daemon status. Dependency and preflight checks
// are included only when withChecks is set because they touch the network.
func (d *Daemon) Status(ctx context.Context, withChecks bool) Status {
	d.mu.Lock()
	last := d.lastCleanup
	d.mu.Unlock()

	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		APIAddress:   d.api.addr(),
		ServerURL:    d.svc.ServerURL(),
		LockFilePath: d.lockPath,
		HistoryPath:  d.cfg.HistoryPath(),
		ScratchDir:   d.cfg.Paths.ScratchDir,
		LastCleanup:  last,
	}
	if withChecks {
		status.Dependencies = preflight.CheckSystemDeps(ctx, d.cfg)
		status.Checks = preflight.RunAll(ctx, d.cfg)
	}
	return status
}

// Addr returns the bound API address once started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}
