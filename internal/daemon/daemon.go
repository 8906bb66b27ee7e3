package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"driveline/internal/config"
	"driveline/internal/logging"
	"driveline/internal/notifications"
	"driveline/internal/orchestrator"
	"driveline/internal/queue"
)

// ErrCycleRunning is returned when a manual cycle request arrives while the
// previous cycle is still in flight.
var ErrCycleRunning = errors.New("a cycle is already running")

// Daemon coordinates cycle scheduling and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	runner *orchestrator.Runner
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running     atomic.Bool
	cycleActive atomic.Bool

	mu          sync.Mutex
	lastSummary *orchestrator.Summary

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	WorkerID     string
	QueueDBPath  string
	LockFilePath string
	LastSummary  *orchestrator.Summary
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, runner *orchestrator.Runner, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || runner == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, runner, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "drivelined.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		runner:   runner,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock, starts the API server, and launches the
// cycle scheduler. The first cycle runs immediately.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another driveline daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx, d.cancel = nil, nil
			return err
		}
	}

	d.running.Store(true)
	d.wg.Add(1)
	go d.schedule(d.ctx)

	d.logger.Info("driveline daemon started",
		logging.String("lock", d.lockPath),
		logging.String("worker_id", d.runner.WorkerID()))
	return nil
}

// schedule runs cycles on the configured interval, starting immediately.
// Overlapping runs are impossible: a tick that arrives while a cycle is in
// flight is dropped rather than queued. A failed cycle reschedules after the
// shorter error-retry interval instead of waiting out the full period.
func (d *Daemon) schedule(ctx context.Context) {
	defer d.wg.Done()

	interval := d.cfg.Workflow.CycleInterval()
	retry := d.cfg.Workflow.ErrorRetryInterval()

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			next := interval
			if !d.runScheduled(ctx) && retry > 0 && retry < interval {
				next = retry
			}
			timer.Reset(next)
		}
	}
}

// runScheduled reports whether the cycle ran and succeeded. A skipped tick
// counts as success so it does not trigger the error-retry cadence.
func (d *Daemon) runScheduled(ctx context.Context) bool {
	summary, err := d.RunCycle(ctx, orchestrator.Request{})
	if err != nil {
		if errors.Is(err, ErrCycleRunning) {
			d.logger.Warn("previous cycle still running, skipping tick")
			return true
		}
		d.logger.Error("scheduled cycle failed", logging.Error(err))
		return false
	}
	return summary.Success
}

// RunCycle executes one cycle under the single-flight guard and records its
// summary as the daemon's last result.
func (d *Daemon) RunCycle(ctx context.Context, req orchestrator.Request) (orchestrator.Summary, error) {
	if !d.cycleActive.CompareAndSwap(false, true) {
		return orchestrator.Summary{}, ErrCycleRunning
	}
	defer d.cycleActive.Store(false)

	summary := d.runner.Run(ctx, req)
	d.mu.Lock()
	d.lastSummary = &summary
	d.mu.Unlock()
	return summary, nil
}

// Stop stops the scheduler and API server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if d.api != nil {
		d.api.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("driveline daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the bound API address, or "" before Start.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	last := d.lastSummary
	d.mu.Unlock()
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		WorkerID:     d.runner.WorkerID(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		LastSummary:  last,
	}
}

// TestNotification sends a test message over the configured channel.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Telegram.BotToken) == "" || strings.TrimSpace(d.cfg.Telegram.ChatID) == "" {
		return false, "telegram not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
