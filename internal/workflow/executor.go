package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"driveline/internal/config"
	"driveline/internal/logging"
	"driveline/internal/queue"
	"driveline/internal/services"
)

// Finalizer is the slice of the queue store the executor writes through.
type Finalizer interface {
	Finalize(ctx context.Context, req queue.FinalizeRequest) (*queue.Item, error)
}

// ExhaustionNotifier receives items that burned through their retry budget.
type ExhaustionNotifier interface {
	NotifyItemExhausted(ctx context.Context, sourceURL string, attempts int) error
}

// Executor dispatches claimed items and persists their terminal state. It
// holds no per-item state between dispatches.
type Executor struct {
	store       Finalizer
	logger      *slog.Logger
	notifier    ExhaustionNotifier
	workerID    string
	maxAttempts int
	fanOut      int
	politeness  time.Duration
}

// Option customizes the executor.
type Option func(*Executor)

// WithNotifier attaches an exhaustion notifier; failures to deliver are
// logged, never propagated into item results.
func WithNotifier(notifier ExhaustionNotifier) Option {
	return func(e *Executor) {
		e.notifier = notifier
	}
}

// New builds an executor bound to a worker identity. The worker id must be
// the same one used to claim, otherwise every finalize reports a lost claim.
func New(store Finalizer, logger *slog.Logger, cfg *config.Config, workerID string, opts ...Option) *Executor {
	exec := &Executor{
		store:       store,
		logger:      logging.NewComponentLogger(logger, "workflow"),
		workerID:    workerID,
		maxAttempts: cfg.Queue.MaxAttempts,
		fanOut:      cfg.Workflow.FanOut,
		politeness:  cfg.Workflow.PolitenessDelay(),
	}
	for _, opt := range opts {
		opt(exec)
	}
	return exec
}

// RunSteps executes ordered steps for one item and finalizes it.
//
// A critical step that errors, or that succeeds without producing an entity
// id when none is known yet, aborts the item with a retry finalize. A
// non-critical step failure records a warning and execution continues with
// the entity id gathered so far. Completing with an entity id finalizes the
// item complete.
func (e *Executor) RunSteps(ctx context.Context, item *queue.Item, steps []Step) ItemResult {
	res := ItemResult{ItemID: item.ID, SourceURL: item.SourceURL}
	ctx = services.WithItemID(ctx, item.ID)
	log := e.logger.With(logging.Int64(logging.FieldItemID, item.ID))

	// A prior attempt may have produced the entity already; pass it through
	// so the processor upserts instead of duplicating.
	entityID := item.ProducedEntityID

	for _, step := range steps {
		stepResult, err := step.Run(ctx, item, entityID)
		if err == nil && step.Critical && stepResult.EntityID == "" && entityID == "" {
			err = services.Wrap(services.ErrMalformed, "workflow", step.Name, "no entity id in successful response", nil)
		}
		if err != nil {
			if !step.Critical {
				warning := fmt.Sprintf("%s: %s", step.Name, services.Details(err).Message)
				res.Warnings = append(res.Warnings, warning)
				log.Warn("non-critical step failed",
					logging.String("step", step.Name),
					logging.Error(err))
				continue
			}
			log.Error("critical step failed",
				logging.String("step", step.Name),
				logging.Error(err))
			return e.finalizeRetry(ctx, res, services.Details(err).Message, err)
		}
		if stepResult.EntityID != "" {
			entityID = stepResult.EntityID
		}
	}

	res.EntityID = entityID
	return e.finalizeComplete(ctx, res)
}

func (e *Executor) finalizeComplete(ctx context.Context, res ItemResult) ItemResult {
	item, err := e.store.Finalize(ctx, queue.FinalizeRequest{
		ItemID:   res.ItemID,
		WorkerID: e.workerID,
		Outcome:  queue.OutcomeComplete,
		EntityID: res.EntityID,
	})
	return e.observeFinalize(ctx, res, item, err)
}

func (e *Executor) finalizeRetry(ctx context.Context, res ItemResult, message string, cause error) ItemResult {
	res.Err = cause
	item, err := e.store.Finalize(ctx, queue.FinalizeRequest{
		ItemID:       res.ItemID,
		WorkerID:     e.workerID,
		Outcome:      queue.OutcomeRetry,
		ErrorMessage: message,
		MaxAttempts:  e.maxAttempts,
	})
	return e.observeFinalize(ctx, res, item, err)
}

func (e *Executor) observeFinalize(ctx context.Context, res ItemResult, item *queue.Item, err error) ItemResult {
	if err != nil {
		if errors.Is(err, queue.ErrClaimLost) {
			// Someone else owns the item now; this attempt never happened.
			res.ClaimLost = true
			e.logger.Warn("claim lost before finalize",
				logging.Int64(logging.FieldItemID, res.ItemID))
			return res
		}
		res.Err = err
		e.logger.Error("finalize failed",
			logging.Int64(logging.FieldItemID, res.ItemID),
			logging.Error(err))
		return res
	}
	res.Status = item.Status
	if item.Status == queue.StatusFailed {
		e.logger.Error("item exhausted retries",
			logging.Int64(logging.FieldItemID, res.ItemID),
			logging.Int("attempts", item.Attempts))
		if e.notifier != nil {
			if nerr := e.notifier.NotifyItemExhausted(ctx, item.SourceURL, item.Attempts); nerr != nil {
				e.logger.Warn("exhaustion notification failed", logging.Error(nerr))
			}
		}
	}
	return res
}
