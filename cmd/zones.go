package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/territory-engine/internal/boundary"
)

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "Inspect loaded zone boundaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")

		boundaries := boundary.Load(cfg.Boundary.Path)
		fmt.Printf("%d zones loaded from %s\n", boundaries.Len(), cfg.Boundary.Path)

		if verbose {
			for _, z := range boundaries.Zones() {
				fmt.Printf("%s  centroid=(%.4f, %.4f)  vertices=%d\n",
					z.ID, z.Centroid.Lat, z.Centroid.Lng, len(z.Boundary.Outer))
			}
		}
		return nil
	},
}

func init() {
	zonesCmd.Flags().Bool("verbose", false, "list every zone with its centroid")
	rootCmd.AddCommand(zonesCmd)
}
