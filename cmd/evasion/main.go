package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/picogrid/evasion-sim/pkg/logger"
	"github.com/picogrid/evasion-sim/pkg/simulation"

	// Import to register the simulation
	evasion "github.com/picogrid/evasion-sim/cmd/evasion/simulation"
)

func main() {
	_ = godotenv.Load()

	configFile := flag.String("config", "", "scenario config file (YAML)")
	episodes := flag.Int("episodes", 0, "number of episodes (0 keeps the config value)")
	flag.Parse()

	sim, err := simulation.DefaultRegistry.Get(evasion.Name)
	if err != nil {
		logger.Fatalf("Simulation not registered: %v", err)
	}

	params := map[string]interface{}{"config_file": *configFile}
	if *episodes > 0 {
		params["episodes"] = *episodes
	}
	if err := sim.Configure(params); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sim.Run(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
