package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/indicator-cli/internal/batch"
	"github.com/sells-group/indicator-cli/internal/model"
	"github.com/sells-group/indicator-cli/internal/resolve"
)

// offlineCase is one indicator with the evidence already gathered.
type offlineCase struct {
	Indicator model.IndicatorRow `json:"indicator"`
	Evidence  model.Evidence     `json:"evidence"`
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <cases.json>",
	Short: "Resolve indicators offline from recorded candidates",
	Long:  "Runs resolution and progress over candidates stored in a JSON file. No network access; narratives come from the template.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("resolve"); err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "resolve: read cases")
		}
		results, err := resolveOffline(cmd.Context(), data, cfg.Resolve.ReportingYear, zap.L())
		if err != nil {
			return err
		}
		return writeResults(cmd.OutOrStdout(), results)
	},
}

// resolveOffline decodes cases and resolves them on the batch pool with
// static evidence.
func resolveOffline(ctx context.Context, data []byte, reportingYear int, log *zap.Logger) ([]model.IndicatorResult, error) {
	var cases []offlineCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, eris.Wrap(err, "resolve: decode cases")
	}

	evidence := make(batch.IndexedEvidence, len(cases))
	specs := make([]model.IndicatorSpec, len(cases))
	for i, c := range cases {
		specs[i] = c.Indicator.Spec(resolve.ParseNumber)
		evidence[i] = c.Evidence
	}

	engine := resolve.NewEngine(resolve.NewResolver(reportingYear, log), nil, log)
	factory := func() (batch.Worker, error) {
		return &batch.PipelineWorker{Evidence: evidence, Engine: engine}, nil
	}

	results, _, err := batch.Run(ctx, specs, factory, batch.Options{Logger: log})
	if err != nil {
		return nil, eris.Wrap(err, "resolve")
	}
	return results, nil
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
