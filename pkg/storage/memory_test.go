package storage

import (
	"context"
	"testing"

	"github.com/picogrid/evasion-sim/pkg/telemetry"
)

func TestMemoryStoreEpisodesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, ep := range []int{2, 1, 3} {
		rec := telemetry.EpisodeRecord{RunID: "run-a", Episode: ep, Outcome: telemetry.OutcomeWon}
		if err := store.SaveEpisode(ctx, rec); err != nil {
			t.Fatalf("save episode %d: %v", ep, err)
		}
	}
	if err := store.SaveEpisode(ctx, telemetry.EpisodeRecord{RunID: "run-b", Episode: 1}); err != nil {
		t.Fatalf("save run-b: %v", err)
	}

	records, err := store.ListEpisodes(ctx, "run-a")
	if err != nil {
		t.Fatalf("list episodes: %v", err)
	}
	if len(records) != 3 || records[0].Episode != 1 || records[2].Episode != 3 {
		t.Fatalf("unexpected episode order: %+v", records)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0] != "run-a" || runs[1] != "run-b" {
		t.Fatalf("unexpected runs: %v", runs)
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveEpisode(context.Background(), telemetry.EpisodeRecord{}); err == nil {
		t.Fatal("expected error before init")
	}
}
