package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"reelsapp/reels-api/internal/domain"
	"reelsapp/reels-api/internal/repository"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// orphanStatuses are the states an abandoned upload can be stuck in.
var orphanStatuses = []domain.ReelStatus{domain.StatusUploading, domain.StatusProcessing}

func newOrphansCommand(ctx *commandContext) *cobra.Command {
	var (
		olderThan time.Duration
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "List reels stuck in uploading or processing",
		Long: `List reels whose upload never finished.

A reel stays in "uploading" or "processing" when the client disappears before
marking it ready or failed. This command only reports them; nothing is changed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStores(ctx.cfg.Database)
			if err != nil {
				return err
			}
			defer st.close()

			return reportOrphans(cmd.Context(), cmd.OutOrStdout(), st.reels, time.Now().UTC(), olderThan, limit)
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "Only list reels not updated for at least this long")
	cmd.Flags().IntVar(&limit, "limit", 200, "Maximum number of reels to list")
	return cmd
}

func reportOrphans(ctx context.Context, out io.Writer, reels repository.ReelRepository, now time.Time, olderThan time.Duration, limit int) error {
	stale, err := reels.ListStale(ctx, orphanStatuses, now.Add(-olderThan), limit)
	if err != nil {
		return fmt.Errorf("list stale reels: %w", err)
	}
	if len(stale) == 0 {
		fmt.Fprintf(out, "No reels stuck for longer than %s.\n", olderThan)
		return nil
	}

	rows := make([][]string, 0, len(stale))
	for _, reel := range stale {
		size := "-"
		if reel.SizeBytes > 0 {
			size = strconv.FormatInt(reel.SizeBytes, 10)
		}
		rows = append(rows, []string{
			reel.ID.Hex(),
			reel.AuthorID.Hex(),
			string(reel.Status),
			now.Sub(reel.UpdatedAt).Truncate(time.Minute).String(),
			size,
			reel.StorageKey,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Reel", "Author", "Status", "Idle", "Bytes", "Storage key"},
		rows,
		[]text.Align{text.AlignLeft, text.AlignLeft, text.AlignLeft, text.AlignRight, text.AlignRight, text.AlignLeft},
	))
	fmt.Fprintf(out, "%d reel(s) stuck for longer than %s.\n", len(stale), olderThan)
	return nil
}

func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		align := text.AlignLeft
		if i < len(aligns) {
			align = aligns[i]
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
