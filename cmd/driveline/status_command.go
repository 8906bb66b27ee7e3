package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"driveline/internal/api"
)

func newStatusCommand(cctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and the last cycle summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := cctx.apiClient()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd, status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	return cmd
}

func renderStatus(cmd *cobra.Command, status api.DaemonStatus) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	lines := renderSectionHeader("Driveline Daemon", colorize)

	runningKind := statusError
	runningMsg := "not running"
	if status.Running {
		runningKind = statusOK
		runningMsg = fmt.Sprintf("pid %d", status.PID)
	}
	lines = append(lines,
		renderStatusLine("Daemon", runningKind, runningMsg, colorize),
		renderStatusLine("Worker", statusInfo, status.WorkerID, colorize),
		renderStatusLine("Queue DB", statusInfo, status.QueueDBPath, colorize),
	)

	if last := status.LastCycle; last != nil {
		cycleKind := statusOK
		if !last.Success {
			cycleKind = statusWarn
		}
		lines = append(lines,
			renderStatusLine("Last cycle", cycleKind,
				fmt.Sprintf("%s (%dms)", last.CycleID, last.DurationMS), colorize),
			renderStatusLine("Dispatched", statusInfo, formatKindCounts(last.Dispatched), colorize),
			renderStatusLine("Depths", statusInfo, formatKindCounts(last.Depths), colorize),
		)
		for _, cerr := range last.Errors {
			lines = append(lines,
				renderStatusLine("Error", statusError,
					fmt.Sprintf("%s: %s", cerr.Phase, cerr.Message), colorize))
		}
	} else {
		lines = append(lines, renderStatusLine("Last cycle", statusInfo, "none yet", colorize))
	}

	fmt.Fprintln(out, strings.Join(lines, "\n"))
}

func formatKindCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(counts))
	for _, key := range sortedKeys(counts) {
		parts = append(parts, fmt.Sprintf("%s=%d", key, counts[key]))
	}
	return strings.Join(parts, " ")
}
