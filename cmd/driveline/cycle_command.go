package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"driveline/internal/orchestrator"
)

func newCycleCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Orchestration cycle operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newCycleRunCommand(cctx))
	return cmd
}

func newCycleRunCommand(cctx *commandContext) *cobra.Command {
	var (
		skipScrapers bool
		skipQueues   bool
		batchSize    int
		jsonOut      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Trigger one orchestration cycle on the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := cctx.apiClient()
			if err != nil {
				return err
			}
			summary, err := client.RunCycle(cmd.Context(), orchestrator.Request{
				SkipScrapers: skipScrapers,
				SkipQueues:   skipQueues,
				BatchSize:    batchSize,
			})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, summary)
			}
			renderSummary(cmd, summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipScrapers, "skip-scrapers", false, "Skip scraper triggers this cycle")
	cmd.Flags().BoolVar(&skipQueues, "skip-queues", false, "Skip the queue drain this cycle")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Override the claim batch size")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	return cmd
}

func renderSummary(cmd *cobra.Command, summary orchestrator.Summary) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	kind := statusOK
	message := fmt.Sprintf("cycle %s in %dms", summary.CycleID, summary.DurationMS)
	if !summary.Success {
		kind = statusWarn
		message += fmt.Sprintf(" with %d errors", len(summary.Errors))
	}
	fmt.Fprintln(out, renderStatusLine("Cycle", kind, message, colorize))
	fmt.Fprintln(out, renderStatusLine("Unlocked", statusInfo, fmt.Sprintf("%d", summary.Unlocked), colorize))
	fmt.Fprintln(out, renderStatusLine("Triggered", statusInfo, fmt.Sprintf("%d", summary.Triggered), colorize))
	fmt.Fprintln(out, renderStatusLine("Dispatched", statusInfo, formatKindCounts(summary.Dispatched), colorize))
	fmt.Fprintln(out, renderStatusLine("Completed", statusInfo,
		fmt.Sprintf("%d (retried %d, failed %d)", summary.Completed, summary.Retried, summary.Failed), colorize))
	fmt.Fprintln(out, renderStatusLine("Depths", statusInfo, formatKindCounts(summary.Depths), colorize))
	for _, cerr := range summary.Errors {
		fmt.Fprintln(out, renderStatusLine("Error", statusError,
			fmt.Sprintf("%s: %s", cerr.Phase, cerr.Message), colorize))
	}
}
