package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/territory-engine/internal/model"
	"github.com/sells-group/territory-engine/internal/store"
)

var territoryCmd = &cobra.Command{
	Use:   "territory",
	Short: "Manage territories and zone assignments",
}

var territoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List territories",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine()
		if err != nil {
			return err
		}
		defer env.Close()

		ts, err := env.Store.ListTerritories(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(ts)
	},
}

var territoryCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a territory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		color, _ := cmd.Flags().GetString("color")

		env, err := initEngine()
		if err != nil {
			return err
		}
		defer env.Close()

		t, err := env.Store.CreateTerritory(cmd.Context(), args[0], color)
		if err != nil {
			return err
		}
		return printJSON(t)
	},
}

var territoryUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a territory's name or color",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch model.TerritoryPatch
		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			patch.Name = &name
		}
		if cmd.Flags().Changed("color") {
			color, _ := cmd.Flags().GetString("color")
			patch.Color = &color
		}

		env, err := initEngine()
		if err != nil {
			return err
		}
		defer env.Close()

		t, err := env.Store.UpdateTerritory(cmd.Context(), args[0], patch)
		if err != nil {
			return err
		}
		return printJSON(t)
	},
}

var territoryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a territory (assignments are left in place)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine()
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.DeleteTerritory(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("deleted", args[0])
		return nil
	},
}

var territoryAssignCmd = &cobra.Command{
	Use:   "assign <zone-id> [territory-id]",
	Short: "Assign a zone to a territory (omit territory-id to unassign)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		territoryID := ""
		if len(args) == 2 {
			territoryID = args[1]
		}

		env, err := initEngine()
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.SetAssignment(cmd.Context(), args[0], territoryID); err != nil {
			return err
		}
		if territoryID == "" {
			fmt.Println("unassigned", args[0])
		} else {
			fmt.Println("assigned", args[0], "->", territoryID)
		}
		return nil
	},
}

var territoryPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove assignments pointing at deleted territories",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine()
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Store.PruneDangling(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d dangling assignment(s)\n", n)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the assignment map",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		env, err := initEngine()
		if err != nil {
			return err
		}
		defer env.Close()

		data, err := store.ExportAssignments(cmd.Context(), env.Store, store.ExportFormat(format))
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	territoryCreateCmd.Flags().String("color", "#3388ff", "display color")
	territoryUpdateCmd.Flags().String("name", "", "new display name")
	territoryUpdateCmd.Flags().String("color", "", "new display color")
	exportCmd.Flags().String("format", "json", "export format (json or csv)")

	territoryCmd.AddCommand(territoryListCmd, territoryCreateCmd, territoryUpdateCmd,
		territoryDeleteCmd, territoryAssignCmd, territoryPruneCmd)
	rootCmd.AddCommand(territoryCmd, exportCmd)
}
