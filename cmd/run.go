package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-insights/internal/fetcher"
	"github.com/sells-group/market-insights/internal/model"
)

var (
	runFile      string
	runDomain    string
	runTopics    []string
	runTimeRange string
	runOut       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract market insights for a list of topics",
	Long:  "Reads topics from a spreadsheet (or --topics), collects candidate pages, extracts market figures and writes the insights as JSON keyed by topic.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("run"); err != nil {
			return err
		}

		topics, err := selectTopics(runFile, runTopics)
		if err != nil {
			return err
		}
		timeRange := runTimeRange
		if timeRange == "" {
			timeRange = cfg.Search.TimeRange
		}
		req := model.RunRequest{
			Topics:    topics,
			Domain:    runDomain,
			TimeRange: model.TimeRange(timeRange),
			Source:    filepath.Base(runFile),
		}
		if runFile == "" {
			req.Source = ""
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := initPipeline(cfg)
		if err != nil {
			return err
		}

		run, err := st.CreateRun(ctx, req)
		if err != nil {
			return eris.Wrap(err, "create run")
		}
		log := zap.L().With(zap.String("run_id", run.ID))

		insights, err := p.RunTracked(ctx, st, run.ID, req, func(stage model.RunStatus, done, total int) {
			log.Info("progress", zap.String("stage", string(stage)), zap.Int("done", done), zap.Int("total", total))
		})
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		out := runOut
		if out == "" {
			out = defaultOutputName(runFile)
		}
		if err := writeJSON(out, insights); err != nil {
			return err
		}

		log.Info("insights written",
			zap.String("file", out),
			zap.Int("topics", insights.Len()),
			zap.Int("insights", insights.Count()),
		)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runFile, "file", "", "spreadsheet (.xlsx or .csv) with a Topic column")
	runCmd.Flags().StringVar(&runDomain, "domain", "", "domain appended to search queries (e.g. Food)")
	runCmd.Flags().StringSliceVar(&runTopics, "topics", nil, "topics to run; with --file, a subset of the file's topics")
	runCmd.Flags().StringVar(&runTimeRange, "time-range", "", "restrict search results to the last hour, day, week, month or year")
	runCmd.Flags().StringVar(&runOut, "out", "", "output file (default <first letter of file>_generated_market_insights.json)")
	rootCmd.AddCommand(runCmd)
}

// selectTopics returns the topics to run. With a file, selected narrows the
// file's topics and must name only topics the file contains.
func selectTopics(file string, selected []string) ([]string, error) {
	if file == "" {
		if len(selected) == 0 {
			return nil, eris.New("either --file or --topics is required")
		}
		return selected, nil
	}

	all, err := fetcher.ReadTopics(file)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return all, nil
	}
	var out []string
	for _, t := range selected {
		t = strings.TrimSpace(t)
		if !slices.Contains(all, t) {
			return nil, eris.Errorf("topic %q is not in %s", t, file)
		}
		out = append(out, t)
	}
	return out, nil
}

// defaultOutputName names the output after the first letter of the input
// file.
func defaultOutputName(file string) string {
	base := filepath.Base(file)
	if file == "" || base == "" {
		return "generated_market_insights.json"
	}
	r, _ := utf8.DecodeRuneInString(base)
	return string(r) + "_generated_market_insights.json"
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return eris.Wrap(err, "encode output")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}
