package orchestrator

import (
	"context"

	"driveline/internal/queue"
	"driveline/internal/selector"
	"driveline/internal/services"
	"driveline/internal/workflow"
)

// stepsFor builds the ordered step list for one routed item. The switch is
// exhaustive over the processor kinds; batch items never reach it because
// batch groups dispatch through RunBatch.
func (r *Runner) stepsFor(sel selector.Selection) []workflow.Step {
	switch sel.Kind {
	case selector.KindTwoStep:
		return []workflow.Step{
			{
				Name:     selector.ProcessorCore,
				Critical: true,
				Run:      r.invokeStep(selector.ProcessorCore, sel.Params),
			},
			{
				Name:     selector.ProcessorEnrich,
				Critical: false,
				Run:      r.invokeStep(selector.ProcessorEnrich, sel.Params),
			},
		}
	case selector.KindImporter, selector.KindGeneric:
		return []workflow.Step{
			{
				Name:     sel.Processor,
				Critical: true,
				Run:      r.invokeStep(sel.Processor, sel.Params),
			},
		}
	case selector.KindBatch:
		return nil
	default:
		return nil
	}
}

// invokeStep adapts one downstream processor call into a workflow step. The
// known entity id rides along in the parameter bundle so the processor
// upserts by natural key instead of duplicating.
func (r *Runner) invokeStep(processor string, params selector.Params) workflow.StepFunc {
	return func(ctx context.Context, item *queue.Item, entityID string) (workflow.StepResult, error) {
		ctx = services.WithProcessor(ctx, processor)
		callParams := make(selector.Params, len(params)+2)
		for k, v := range params {
			callParams[k] = v
		}
		if item.RawPayloadJSON != "" {
			callParams["payload"] = item.RawPayloadJSON
		}
		if entityID != "" {
			callParams["entity_id"] = entityID
		}

		result, err := r.extract.Invoke(ctx, processor, callParams)
		if err != nil {
			return workflow.StepResult{}, err
		}
		if !result.Success {
			return workflow.StepResult{}, services.Wrap(services.ErrTransient, "extractor", processor, result.Error, nil)
		}
		return workflow.StepResult{EntityID: result.EntityID()}, nil
	}
}

// batchCall adapts the batch extractor endpoint to the workflow's batch
// dispatch contract.
func (r *Runner) batchCall() workflow.BatchCall {
	return func(ctx context.Context, sourceURLs []string) (map[string]workflow.BatchOutcome, error) {
		ctx = services.WithProcessor(ctx, selector.ProcessorBatch)
		results, err := r.extract.InvokeBatch(ctx, selector.ProcessorBatch, sourceURLs, r.cfg.Extractors.BatchSize)
		if err != nil {
			return nil, err
		}
		outcomes := make(map[string]workflow.BatchOutcome, len(results))
		for url, result := range results {
			outcomes[url] = workflow.BatchOutcome{
				Success:  result.Success,
				EntityID: result.EntityID(),
				Error:    result.Error,
			}
		}
		return outcomes, nil
	}
}
