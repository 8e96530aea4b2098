package cmd

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/picogrid/evasion-sim/pkg/logger"
	"github.com/picogrid/evasion-sim/pkg/storage"
	"github.com/picogrid/evasion-sim/pkg/telemetry"
)

var reportCmd = &cobra.Command{
	Use:   "report [episodes.csv]",
	Short: "Summarize recorded episodes",
	Long: `Summarize a run from an episodes.csv written by train, or from a
sqlite store with --store (requires a build with -tags sqlite).`,
	Args: cobra.MaximumNArgs(1),
	RunE: reportEpisodes,
}

func init() {
	reportCmd.Flags().String("store", "", "sqlite store path")
	reportCmd.Flags().String("run", "", "run id to report (default is every run in the store)")
	reportCmd.Flags().Bool("episodes", false, "list every episode")
}

func reportEpisodes(cmd *cobra.Command, args []string) error {
	storePath, _ := cmd.Flags().GetString("store")
	runID, _ := cmd.Flags().GetString("run")
	showEpisodes, _ := cmd.Flags().GetBool("episodes")

	var runs map[string][]telemetry.EpisodeRecord
	var err error
	switch {
	case len(args) == 1:
		runs, err = episodesFromCSV(args[0])
	case storePath != "":
		runs, err = episodesFromStore(cmd.Context(), storePath, runID)
	default:
		return fmt.Errorf("pass an episodes.csv or --store")
	}
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No episodes recorded")
		return nil
	}

	ids := make([]string, 0, len(runs))
	for id := range runs {
		if runID == "" || id == runID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := cmd.OutOrStdout()
	for _, id := range ids {
		episodes := runs[id]

		recorder := telemetry.NewRecorder(id, 0)
		recorder.SetOutput(nil)
		for _, rec := range episodes {
			recorder.RecordEpisode(rec)
		}
		recorder.PrintSummary(out)

		if showEpisodes {
			table := logger.NewTable("EPISODE", "LESSON", "OUTCOME", "RETURN", "TICKS", "THREATS")
			for _, rec := range episodes {
				table.AddRow(
					strconv.Itoa(rec.Episode),
					strconv.Itoa(rec.Lesson),
					rec.Outcome,
					strconv.FormatFloat(rec.Return, 'f', 3, 64),
					strconv.Itoa(rec.Ticks),
					strconv.Itoa(rec.ThreatCount),
				)
			}
			table.Fprint(out)
		}
	}
	return nil
}

func episodesFromCSV(path string) (map[string][]telemetry.EpisodeRecord, error) {
	records, err := telemetry.ReadEpisodes(path)
	if err != nil {
		return nil, err
	}
	return groupByRun(records), nil
}

func episodesFromStore(ctx context.Context, path, runID string) (map[string][]telemetry.EpisodeRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := storage.NewStore("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = storage.CloseIfSupported(store) }()

	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	runIDs := []string{runID}
	if runID == "" {
		if runIDs, err = store.ListRuns(ctx); err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
	}

	runs := make(map[string][]telemetry.EpisodeRecord, len(runIDs))
	for _, id := range runIDs {
		episodes, err := store.ListEpisodes(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to list episodes for %s: %w", id, err)
		}
		if len(episodes) > 0 {
			runs[id] = episodes
		}
	}
	return runs, nil
}

func groupByRun(records []telemetry.EpisodeRecord) map[string][]telemetry.EpisodeRecord {
	runs := make(map[string][]telemetry.EpisodeRecord)
	for _, rec := range records {
		runs[rec.RunID] = append(runs[rec.RunID], rec)
	}
	return runs
}
