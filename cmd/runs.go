package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-insights/internal/model"
	"github.com/sells-group/market-insights/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect insight run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List insight runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		status, _ := cmd.Flags().GetString("status")
		domain, _ := cmd.Flags().GetString("domain")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		asJSON, _ := cmd.Flags().GetBool("json")

		return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
			runs, err := st.ListRuns(ctx, store.RunFilter{
				Status: model.RunStatus(status),
				Domain: domain,
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return eris.Wrap(err, "runs list")
			}
			if asJSON {
				for i := range runs {
					runs[i].Insights = nil
				}
				return writeIndented(os.Stdout, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(os.Stderr, "No runs found.")
				return nil
			}
			formatRunsList(os.Stdout, runs)
			return nil
		})
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		insightsOnly, _ := cmd.Flags().GetBool("insights")

		return withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
			run, err := st.GetRun(ctx, args[0])
			if err != nil {
				return eris.Wrap(err, "runs show")
			}
			if !insightsOnly {
				return writeIndented(os.Stdout, run)
			}
			if run.Insights == nil {
				return eris.Errorf("run %s has no insights (status %s)", run.ID, run.Status)
			}
			return writeIndented(os.Stdout, run.Insights)
		})
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "only runs in this status (queued, collecting, extracting, complete, failed)")
	runsListCmd.Flags().String("domain", "", "only runs for this domain")
	runsListCmd.Flags().Int("limit", 50, "max runs to show")
	runsListCmd.Flags().Int("offset", 0, "skip this many runs")
	runsListCmd.Flags().Bool("json", false, "print runs as JSON, without insights")

	runsShowCmd.Flags().Bool("insights", false, "print only the insights keyed by topic")

	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// withStore opens the configured store for the duration of fn.
func withStore(ctx context.Context, fn func(context.Context, store.Store) error) error {
	if err := cfg.Validate("runs"); err != nil {
		return err
	}
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	return fn(ctx, st)
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatRunsList writes runs as an aligned table.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDOMAIN\tTOPICS\tSTATUS\tINSIGHTS\tCREATED\tDURATION\tERROR")

	for _, r := range runs {
		insights := "-"
		if r.Status == model.RunStatusComplete {
			insights = strconv.Itoa(r.Insights.Count())
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Request.Domain,
			ellipsize(strings.Join(r.Request.Topics, ", "), 30),
			r.Status,
			insights,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second),
			ellipsize(r.Error, 40),
		)
	}
	_ = w.Flush()
}

// ellipsize shortens s to at most n runes, ending in "..." when cut.
func ellipsize(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// truncateID shortens a UUID to its first block.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
