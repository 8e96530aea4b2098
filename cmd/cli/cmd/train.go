package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/picogrid/evasion-sim/pkg/logger"
	"github.com/picogrid/evasion-sim/pkg/simulation"
	"github.com/picogrid/evasion-sim/pkg/utils"

	// Import simulations to register them
	_ "github.com/picogrid/evasion-sim/cmd/evasion/simulation"
)

var trainCmd = &cobra.Command{
	Use:     "train",
	Aliases: []string{"run"},
	Short:   "Run a training scenario",
	Long: `Run a training scenario. Parameters come from the scenario's
simulation.yaml, EVASION_<NAME> environment variables and, on a terminal,
interactive prompts.`,
	RunE: runTraining,
}

func init() {
	trainCmd.Flags().StringP("simulation", "s", "", "scenario name to run")
	trainCmd.Flags().StringP("scenario-config", "c", "", "scenario config file (YAML)")
	trainCmd.Flags().Bool("yes", false, "accept defaults without prompting")

	_ = viper.BindPFlag("scenario_config", trainCmd.Flags().Lookup("scenario-config"))
}

func runTraining(cmd *cobra.Command, _ []string) error {
	info, err := selectSimulation(cmd)
	if err != nil {
		return fmt.Errorf("failed to select simulation: %w", err)
	}

	sim, err := simulation.DefaultRegistry.Get(info.Config.Name)
	if err != nil {
		return fmt.Errorf("failed to get simulation: %w", err)
	}

	skip, _ := cmd.Flags().GetBool("yes")
	params, err := utils.ResolveParameters(info.Config.Parameters, !skip && utils.Interactive())
	if err != nil {
		return fmt.Errorf("failed to get parameters: %w", err)
	}
	if path := viper.GetString("scenario_config"); path != "" {
		params["config_file"] = path
	}
	if cmd.Flags().Changed("log-level") {
		params["log_level"] = logLevel
	}

	if err := sim.Configure(params); err != nil {
		return fmt.Errorf("failed to configure simulation: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		logger.Warn("Received interrupt signal, stopping after the current episode...")
		if err := sim.Stop(); err != nil {
			logger.Errorf("Failed to stop simulation: %v", err)
		}

		// A second signal aborts immediately
		<-sigChan
		cancel()
	}()

	logger.LogSection(fmt.Sprintf("Starting %s", sim.Name()))
	if err := sim.Run(ctx); err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	logger.Success("Training completed")
	return nil
}

// selectSimulation resolves the scenario from the flag, the only
// discovered descriptor, or an interactive choice.
func selectSimulation(cmd *cobra.Command) (*utils.SimulationInfo, error) {
	if name, _ := cmd.Flags().GetString("simulation"); name != "" {
		return utils.FindSimulation(name)
	}

	infos, err := utils.DiscoverSimulations()
	if err != nil {
		return nil, err
	}

	switch {
	case len(infos) == 0:
		return nil, fmt.Errorf("no simulations found")
	case len(infos) == 1 || !utils.Interactive():
		return &infos[0], nil
	}

	options := make([]string, len(infos))
	for i, info := range infos {
		options[i] = info.Config.Name
	}

	selected, err := utils.Select("Select simulation:", options, options[0])
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if infos[i].Config.Name == selected {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("simulation %s not found", selected)
}
