package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"driveline/internal/config"
	"driveline/internal/logging"
	"driveline/internal/notifications"
	"driveline/internal/queue"
	"driveline/internal/selector"
	"driveline/internal/services"
	"driveline/internal/services/extractor"
	"driveline/internal/workflow"
)

// Store is the queue surface the runner consumes.
type Store interface {
	workflow.Finalizer
	ClaimBatch(ctx context.Context, req queue.ClaimRequest) ([]*queue.Item, error)
	ReclaimOrphans(ctx context.Context, lockTTL time.Duration) (int64, error)
	DepthCounts(ctx context.Context, scanCap int) (queue.Depths, error)
}

// Extractor invokes downstream processors.
type Extractor interface {
	Invoke(ctx context.Context, processor string, params selector.Params) (extractor.Result, error)
	InvokeBatch(ctx context.Context, processor string, sourceURLs []string, batchSize int) (map[string]extractor.Result, error)
}

// ScraperTrigger pokes upstream discovery scrapers.
type ScraperTrigger interface {
	Trigger(ctx context.Context, name, endpoint string) error
}

// Request tunes one cycle invocation.
type Request struct {
	SkipScrapers bool `json:"skip_scrapers,omitempty"`
	SkipQueues   bool `json:"skip_queues,omitempty"`
	BatchSize    int  `json:"batch_size,omitempty"`
}

// CycleError records a fault in one phase; later phases still ran.
type CycleError struct {
	Phase   string `json:"phase"`
	Message string `json:"message"`
}

// Summary reports what one cycle did. Dispatched counts items handed to
// fire-and-forget workers, not completions; completion counts only cover
// work that finished before the cycle's dispatch grace expired.
type Summary struct {
	CycleID    string         `json:"cycle_id"`
	Success    bool           `json:"success"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
	Unlocked   int64          `json:"unlocked"`
	Triggered  int            `json:"triggered"`
	Dispatched map[string]int `json:"dispatched"`
	Completed  int            `json:"completed"`
	Retried    int            `json:"retried"`
	Failed     int            `json:"failed"`
	Warnings   int            `json:"warnings"`
	Depths     map[string]int `json:"depths"`
	Truncated  bool           `json:"depths_truncated"`
	Errors     []CycleError   `json:"errors,omitempty"`
}

func (s *Summary) fold(group workflow.GroupResult) {
	s.Completed += group.Completed
	s.Retried += group.Retried
	s.Failed += group.Failed
	s.Warnings += group.Warnings
	for _, err := range group.Errors {
		s.Errors = append(s.Errors, CycleError{Phase: "dispatch", Message: services.Details(err).Message})
	}
}

// Runner executes orchestration cycles. Construct once per process; the
// worker id doubles as the queue lock owner for every claim the runner makes.
type Runner struct {
	cfg      *config.Config
	store    Store
	extract  Extractor
	scrapers ScraperTrigger
	notifier notifications.Service
	exec     *workflow.Executor
	logger   *slog.Logger
	workerID string
}

// NewRunner wires a cycle runner. The notifier may be a noop service but
// must not be nil.
func NewRunner(cfg *config.Config, store Store, extract Extractor, scrapers ScraperTrigger, notifier notifications.Service, logger *slog.Logger) *Runner {
	workerID := "driveline-" + uuid.NewString()
	return &Runner{
		cfg:      cfg,
		store:    store,
		extract:  extract,
		scrapers: scrapers,
		notifier: notifier,
		exec:     workflow.New(store, logger, cfg, workerID, workflow.WithNotifier(notifier)),
		logger:   logging.NewComponentLogger(logger, "orchestrator"),
		workerID: workerID,
	}
}

// WorkerID returns the lock-owner identity used for claims.
func (r *Runner) WorkerID() string {
	return r.workerID
}

// Run executes one cycle. It always returns a summary; phase faults are
// recorded in Summary.Errors rather than aborting the cycle, except that a
// store failure during claim aborts the drain phase alone.
func (r *Runner) Run(ctx context.Context, req Request) Summary {
	start := time.Now()
	cycleID := uuid.NewString()[:8]
	ctx = services.WithCycleID(ctx, cycleID)
	log := r.logger.With(logging.String(logging.FieldCycleID, cycleID))

	summary := Summary{
		CycleID:    cycleID,
		StartedAt:  start.UTC(),
		Dispatched: make(map[string]int),
		Depths:     make(map[string]int),
	}

	r.reclaimPhase(ctx, log, &summary)
	if !req.SkipScrapers {
		r.scraperPhase(ctx, log, &summary)
	}
	if !req.SkipQueues {
		r.drainPhase(ctx, log, req, &summary)
	}
	r.metricsPhase(ctx, log, &summary)

	summary.Success = len(summary.Errors) == 0
	summary.DurationMS = time.Since(start).Milliseconds()
	log.Info("cycle finished",
		logging.Bool("success", summary.Success),
		logging.Int64("duration_ms", summary.DurationMS),
		logging.Int64("unlocked", summary.Unlocked),
		logging.Int("triggered", summary.Triggered),
		logging.Int("completed", summary.Completed),
		logging.Int("errors", len(summary.Errors)))

	if !summary.Success {
		messages := make([]string, 0, len(summary.Errors))
		for _, cerr := range summary.Errors {
			messages = append(messages, fmt.Sprintf("%s: %s", cerr.Phase, cerr.Message))
		}
		if nerr := r.notifier.NotifyCycleFailed(ctx, cycleID, messages); nerr != nil {
			log.Warn("cycle failure notification failed", logging.Error(nerr))
		}
	}
	return summary
}

func (r *Runner) reclaimPhase(ctx context.Context, log *slog.Logger, summary *Summary) {
	unlocked, err := r.store.ReclaimOrphans(ctx, r.cfg.Queue.LockTTL())
	if err != nil {
		log.Error("orphan reclaim failed", logging.Error(err))
		summary.Errors = append(summary.Errors, CycleError{Phase: "reclaim", Message: err.Error()})
		return
	}
	summary.Unlocked = unlocked
	if unlocked > 0 {
		log.Info("reclaimed orphaned locks", logging.Int64("count", unlocked))
	}
}

// scraperPhase pokes every configured scraper without waiting: scrapers feed
// the queue through the enqueue API on their own time, so trigger latency
// must not stretch the cycle.
func (r *Runner) scraperPhase(ctx context.Context, log *slog.Logger, summary *Summary) {
	detached := context.WithoutCancel(ctx)
	for name, endpoint := range r.cfg.Scrapers.Endpoints {
		summary.Triggered++
		go func(name, endpoint string) {
			if err := r.scrapers.Trigger(detached, name, endpoint); err != nil {
				log.Warn("scraper trigger failed",
					logging.String("scraper", name),
					logging.Error(err))
			}
		}(name, endpoint)
	}
}

func (r *Runner) drainPhase(ctx context.Context, log *slog.Logger, req Request, summary *Summary) {
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = r.cfg.Queue.ClaimBatchSize
	}

	items, err := r.store.ClaimBatch(ctx, queue.ClaimRequest{
		BatchSize:   batchSize,
		MaxAttempts: r.cfg.Queue.MaxAttempts,
		WorkerID:    r.workerID,
	})
	if err != nil {
		// Store unreachable: abort the drain alone, metrics may still work.
		log.Error("claim failed", logging.Error(err))
		summary.Errors = append(summary.Errors, CycleError{Phase: "claim", Message: err.Error()})
		return
	}
	if len(items) == 0 {
		return
	}

	rules := selector.NewRules(r.cfg.Routes, r.cfg.Extractors.BatchSize)
	groups := make(map[selector.Kind][]*queue.Item, len(selector.Kinds))
	for _, item := range items {
		sel := rules.Select(item)
		groups[sel.Kind] = append(groups[sel.Kind], item)
		log.Debug("item routed",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String("kind", sel.Kind.String()),
			logging.String(logging.FieldProcessor, sel.Processor),
			logging.String("reason", sel.Reason))
	}

	results := make(chan workflow.GroupResult, len(selector.Kinds))
	launched := 0
	detached := context.WithoutCancel(ctx)

	for _, kind := range selector.Kinds {
		group := groups[kind]
		if len(group) == 0 {
			continue
		}
		summary.Dispatched[kind.String()] += len(group)

		switch kind {
		case selector.KindBatch:
			// Batch groups run synchronously: one call, bounded by its own
			// timeout, covers the whole group.
			summary.fold(r.exec.RunBatch(ctx, group, r.batchCall()))
		case selector.KindTwoStep, selector.KindImporter, selector.KindGeneric:
			launched++
			go func(group []*queue.Item) {
				results <- r.exec.RunEach(detached, group, func(ctx context.Context, item *queue.Item) workflow.ItemResult {
					return r.exec.RunSteps(ctx, item, r.stepsFor(rules.Select(item)))
				})
			}(group)
		}
	}

	// Collect whatever finishes within the grace window; the rest keeps
	// running detached and the next cycle observes its effects in the store.
	grace := time.NewTimer(time.Duration(r.cfg.Workflow.DispatchGraceSeconds) * time.Second)
	defer grace.Stop()
	for collected := 0; collected < launched; collected++ {
		select {
		case group := <-results:
			summary.fold(group)
		case <-grace.C:
			log.Info("dispatch grace expired", logging.Int("outstanding", launched-collected))
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) metricsPhase(ctx context.Context, log *slog.Logger, summary *Summary) {
	depths, err := r.store.DepthCounts(ctx, r.cfg.Queue.MetricsScanCap)
	if err != nil {
		log.Error("depth metrics failed", logging.Error(err))
		summary.Errors = append(summary.Errors, CycleError{Phase: "metrics", Message: err.Error()})
		return
	}
	for status, count := range depths.Counts {
		summary.Depths[string(status)] = count
	}
	summary.Truncated = depths.Truncated
}
