// Package storage persists finished training episodes so runs can be
// compared after the process exits.
package storage

import (
	"context"

	"github.com/picogrid/evasion-sim/pkg/telemetry"
)

// Store persists episode records keyed by run
type Store interface {
	Init(ctx context.Context) error
	SaveEpisode(ctx context.Context, rec telemetry.EpisodeRecord) error
	ListEpisodes(ctx context.Context, runID string) ([]telemetry.EpisodeRecord, error)
	ListRuns(ctx context.Context) ([]string, error)
}
