package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/market-insights/internal/model"
	"github.com/sells-group/market-insights/internal/pipeline"
)

var marketsDomain string

var marketsCmd = &cobra.Command{
	Use:   "markets <topic>",
	Short: "Show the inferred markets and search prompts for a topic",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("markets"); err != nil {
			return err
		}
		gen, modelName, err := initGenerator(cfg, initClients(cfg))
		if err != nil {
			return err
		}

		topic := strings.Join(args, " ")
		pb := pipeline.NewPromptBuilder(gen, modelName)
		markets, err := pb.Markets(ctx, topic)
		if err != nil {
			return err
		}
		printMarkets(os.Stdout, topic, markets, pipeline.SearchPrompts(marketsDomain, markets))
		return nil
	},
}

func init() {
	marketsCmd.Flags().StringVar(&marketsDomain, "domain", "", "domain appended to search queries")
	rootCmd.AddCommand(marketsCmd)
}

func printMarkets(w io.Writer, topic string, markets []string, prompts []model.Prompt) {
	_, _ = fmt.Fprintf(w, "Topic: %s\n", topic)
	if len(markets) == 0 {
		_, _ = fmt.Fprintln(w, "Markets: (none inferred)")
	} else {
		_, _ = fmt.Fprintf(w, "Markets: %s\n", strings.Join(markets, "; "))
	}
	_, _ = fmt.Fprintln(w, "Prompts:")
	for _, p := range prompts {
		_, _ = fmt.Fprintf(w, "  %-28s %s\n", p.Kind, p.Query(topic))
	}
}
