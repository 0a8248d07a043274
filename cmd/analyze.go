package main

import (
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/indicator-cli/internal/model"
	"github.com/sells-group/indicator-cli/internal/store"
)

var (
	analyzeInput   string
	analyzeOutput  string
	analyzeWorkers int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Resolve current values and progress for a batch of indicators",
	Long:  "Reads indicators from a workbook (.xlsx) or a JSON file, searches the configured sources for each one and prints the results as JSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		input := analyzeInput
		if input == "" {
			input = cfg.Workbook.Path
		}
		if analyzeWorkers > 0 {
			cfg.Batch.Workers = analyzeWorkers
		}

		rows, err := readIndicators(input)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		results, err := env.analyze(ctx, store.OriginCLI, specsFromRows(rows))
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		out := io.Writer(os.Stdout)
		if analyzeOutput != "" {
			f, err := os.Create(analyzeOutput)
			if err != nil {
				return eris.Wrap(err, "analyze: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		return writeResults(out, results)
	},
}

func writeResults(w io.Writer, results []model.IndicatorResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(results)
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "", "indicator workbook (.xlsx) or JSON file (default workbook.path)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "write results to this file instead of stdout")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "concurrent indicators (default batch.workers)")
	rootCmd.AddCommand(analyzeCmd)
}
