package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"driveline/internal/api"
)

func newQueueCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and edit the ingestion queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newQueueListCommand(cctx))
	cmd.AddCommand(newQueueStatsCommand(cctx))
	cmd.AddCommand(newQueueAddCommand(cctx))
	cmd.AddCommand(newQueueShowCommand(cctx))
	cmd.AddCommand(newQueueRetryCommand(cctx))
	cmd.AddCommand(newQueueSkipCommand(cctx))
	return cmd
}

func newQueueListCommand(cctx *commandContext) *cobra.Command {
	var statusFilter []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := cctx.apiClient()
			if err != nil {
				return err
			}
			items, err := client.ListQueue(cmd.Context(), statusFilter...)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, api.QueueListResponse{Items: items})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderQueueTable(items))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&statusFilter, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func renderQueueTable(items []api.QueueItemView) string {
	if len(items) == 0 {
		return "queue is empty"
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.Status,
			strconv.Itoa(item.Attempts),
			strconv.Itoa(item.Priority),
			truncate(item.SourceURL, 60),
			item.EntityID,
			formatAge(item.UpdatedAt),
		})
	}
	return renderTable(
		[]string{"ID", "Status", "Att", "Pri", "Source URL", "Entity", "Updated"},
		rows,
		1, 3, 4,
	)
}

func newQueueStatsCommand(cctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show queue depth by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := cctx.apiClient()
			if err != nil {
				return err
			}
			items, err := client.ListQueue(cmd.Context())
			if err != nil {
				return err
			}
			counts := make(map[string]int)
			for _, item := range items {
				counts[item.Status]++
			}
			if jsonOut {
				return writeJSON(cmd, counts)
			}
			rows := make([][]string, 0, len(counts))
			for _, status := range sortedKeys(counts) {
				rows = append(rows, []string{status, strconv.Itoa(counts[status])})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Status", "Count"}, rows, 2))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newQueueAddCommand(cctx *commandContext) *cobra.Command {
	var priority int
	var payload string

	cmd := &cobra.Command{
		Use:   "add URL",
		Short: "Enqueue a listing URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceURL := strings.TrimSpace(args[0])
			if sourceURL == "" {
				return fmt.Errorf("a listing URL is required")
			}
			var raw json.RawMessage
			if strings.TrimSpace(payload) != "" {
				if !json.Valid([]byte(payload)) {
					return fmt.Errorf("--payload must be valid JSON")
				}
				raw = json.RawMessage(payload)
			}

			client, err := cctx.apiClient()
			if err != nil {
				return err
			}
			resp, err := client.Enqueue(cmd.Context(), api.EnqueueRequest{
				SourceURL: sourceURL,
				Priority:  priority,
				Payload:   raw,
			})
			if err != nil {
				return err
			}
			if resp.Inserted {
				fmt.Fprintf(cmd.OutOrStdout(), "queued item %d: %s\n", resp.Item.ID, resp.Item.SourceURL)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "already queued as item %d (%s)\n", resp.Item.ID, resp.Item.Status)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&priority, "priority", 0, "Claim priority (lower first; 0 uses the default)")
	cmd.Flags().StringVar(&payload, "payload", "", "Raw JSON payload with already-known fields")
	return cmd
}

func newQueueShowCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			client, err := cctx.apiClient()
			if err != nil {
				return err
			}
			item, err := client.GetItem(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd, api.QueueItemResponse{Item: item})
		},
	}
}

func newQueueRetryCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry ID",
		Short: "Reset a failed item back to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			client, err := cctx.apiClient()
			if err != nil {
				return err
			}
			item, err := client.RetryItem(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "item %d reset to %s\n", item.ID, item.Status)
			return nil
		},
	}
}

func newQueueSkipCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "skip ID",
		Short: "Mark an item skipped (terminal, never processed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			client, err := cctx.apiClient()
			if err != nil {
				return err
			}
			item, err := client.SkipItem(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "item %d marked %s\n", item.ID, item.Status)
			return nil
		},
	}
}

func parseItemID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid queue item id %q", arg)
	}
	return id, nil
}
