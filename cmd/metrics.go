package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/territory-engine/internal/dataset"
	"github.com/sells-group/territory-engine/internal/metrics"
)

var metricsCmd = &cobra.Command{
	Use:       "metrics <metric>",
	Short:     "Aggregate uploaded datasets for a metric",
	Long:      "Aggregates the uploaded funnel/demographic datasets by zone for the given metric.\nKnown metrics: " + strings.Join(metrics.Names(), ", "),
	Args:      cobra.ExactArgs(1),
	ValidArgs: metrics.Names(),
	RunE: func(cmd *cobra.Command, args []string) error {
		rollup, _ := cmd.Flags().GetString("rollup")

		records, err := loadDatasetDir(cfg.Dataset.Dir)
		if err != nil {
			return err
		}

		if rollup == "territory" {
			env, err := initEngine()
			if err != nil {
				return err
			}
			defer env.Close()

			assignments, err := env.Store.Assignments(cmd.Context())
			if err != nil {
				return err
			}
			points, err := metrics.RollupByTerritory(args[0], records, assignments)
			if err != nil {
				return err
			}
			return printJSON(points)
		}

		points, err := metrics.Aggregate(args[0], records)
		if err != nil {
			return err
		}
		return printJSON(points)
	},
}

// loadDatasetDir reads every CSV/XLSX file in dir. Unparseable files
// are logged and skipped.
func loadDatasetDir(dir string) ([]dataset.Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []dataset.Record
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, ".xlsx") {
			continue
		}
		recs, err := dataset.LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			zap.L().Warn("skipping unreadable dataset", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		records = append(records, recs...)
	}
	return records, nil
}

func init() {
	metricsCmd.Flags().String("rollup", "", "roll zone values up to territories (territory)")
	rootCmd.AddCommand(metricsCmd)
}
