package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-insights/internal/fetcher"
	"github.com/sells-group/market-insights/internal/provoke"
)

var (
	provokeFile    string
	provokeCompany string
	provokeOut     string
)

var provokeCmd = &cobra.Command{
	Use:   "provoke",
	Short: "Classify topics into foresight themes and write provocations",
	Long:  "Reads a spreadsheet with Topic, Description and Keywords columns, assigns each topic a theme and writes short \"Imagine if\" provocations for it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if provokeCompany != "" {
			cfg.Provoke.Company = provokeCompany
		}
		if err := cfg.Validate("provoke"); err != nil {
			return err
		}

		table, err := fetcher.ReadTableFile(provokeFile)
		if err != nil {
			return err
		}
		briefs, err := provoke.BriefsFromTable(table)
		if err != nil {
			return err
		}

		var templates provoke.Templates
		if cfg.Provoke.TemplatePath != "" {
			templates, err = provoke.LoadTemplates(cfg.Provoke.TemplatePath)
			if err != nil {
				return err
			}
		}

		gen, modelName, err := initGenerator(cfg, initClients(cfg))
		if err != nil {
			return err
		}
		g, err := provoke.New(gen, provoke.Options{
			Model:     modelName,
			Company:   cfg.Provoke.Company,
			Responses: cfg.Provoke.Responses,
			Templates: templates,
		})
		if err != nil {
			return err
		}

		out, err := g.GenerateAll(ctx, briefs)
		if err != nil {
			return eris.Wrap(err, "generate provocations")
		}
		if err := writeJSON(provokeOut, out); err != nil {
			return err
		}

		zap.L().Info("provocations written", zap.String("file", provokeOut), zap.Int("topics", len(out)))
		return nil
	},
}

func init() {
	provokeCmd.Flags().StringVar(&provokeFile, "file", "", "spreadsheet (.xlsx or .csv) with Topic, Description and Keywords columns (required)")
	provokeCmd.Flags().StringVar(&provokeCompany, "company", "", "company the provocations address (default from config)")
	provokeCmd.Flags().StringVar(&provokeOut, "out", "topics_provocations.json", "output file")
	_ = provokeCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(provokeCmd)
}
