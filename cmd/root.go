package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/territory-engine/internal/config"
	"github.com/sells-group/territory-engine/internal/metrics"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "territory-engine",
	Short: "Territory intelligence engine",
	Long:  "Computes drive-time zone coverage via an external isochrone provider, maintains zone-to-territory assignments, and aggregates funnel metrics by zone or territory.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if cfg.Metrics.RegistryPath != "" {
			if err := metrics.LoadRegistry(cfg.Metrics.RegistryPath); err != nil {
				return err
			}
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
