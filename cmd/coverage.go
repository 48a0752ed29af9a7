package main

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/territory-engine/internal/model"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Compute zone coverage for a set of origins",
	Long: `Computes which zones are reachable within the travel-time budget
from the given origins, using the configured isochrone provider.

Examples:
  # 30-minute coverage from one rep location
  territory-engine coverage --duration 30 --origin 40.0,-75.0

  # Two origins, tagged with rep ids
  territory-engine coverage --duration 45 --origin 40.0,-75.0,rep-7 --origin 41.2,-75.9`,
	RunE: func(cmd *cobra.Command, args []string) error {
		duration, _ := cmd.Flags().GetInt("duration")
		rawOrigins, _ := cmd.Flags().GetStringArray("origin")

		origins, err := parseOrigins(rawOrigins)
		if err != nil {
			return err
		}

		env, err := initEngine()
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Calculator.Compute(cmd.Context(), duration, origins)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// parseOrigins converts "lat,lng" or "lat,lng,repID" flag values.
func parseOrigins(raw []string) ([]model.Origin, error) {
	origins := make([]model.Origin, 0, len(raw))
	for _, r := range raw {
		parts := strings.Split(r, ",")
		if len(parts) != 2 && len(parts) != 3 {
			return nil, eris.Errorf("invalid origin %q (want lat,lng or lat,lng,rep-id)", r)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid latitude in origin %q", r)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid longitude in origin %q", r)
		}
		o := model.Origin{Lat: lat, Lng: lng}
		if len(parts) == 3 {
			o.RepID = strings.TrimSpace(parts[2])
		}
		origins = append(origins, o)
	}
	return origins, nil
}

func init() {
	f := coverageCmd.Flags()
	f.Int("duration", 30, "travel-time budget in minutes")
	f.StringArray("origin", nil, "origin as lat,lng[,rep-id] (repeatable)")

	rootCmd.AddCommand(coverageCmd)
}
