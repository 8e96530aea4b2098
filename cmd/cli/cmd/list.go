package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/picogrid/evasion-sim/pkg/logger"
	"github.com/picogrid/evasion-sim/pkg/policy"
	"github.com/picogrid/evasion-sim/pkg/simulation"
	"github.com/picogrid/evasion-sim/pkg/utils"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available scenarios",
	Long:  `List every discovered scenario with its registration status and the available policies`,
	RunE:  listSimulations,
}

func listSimulations(cmd *cobra.Command, args []string) error {
	simInfos, err := utils.DiscoverSimulations()
	if err != nil {
		return fmt.Errorf("failed to discover simulations: %w", err)
	}

	if len(simInfos) == 0 {
		fmt.Println("No simulations found")
		return nil
	}

	registered := make(map[string]bool)
	for _, name := range simulation.DefaultRegistry.List() {
		registered[name] = true
	}

	table := logger.NewTable("NAME", "VERSION", "CATEGORY", "REGISTERED", "DESCRIPTION")
	for _, info := range simInfos {
		status := "no"
		if registered[info.Config.Name] {
			status = "yes"
		}
		table.AddRow(info.Config.Name, info.Config.Version, info.Config.Category, status, info.Config.Description)
	}
	table.Fprint(cmd.OutOrStdout())

	logger.LogList("Policies", policy.Names())
	return nil
}
