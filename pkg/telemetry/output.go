package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// OutputManager appends episode records to <dir>/episodes.csv
type OutputManager struct {
	dir           string
	episodeFile   *os.File
	headerWritten bool
}

// NewOutputManager creates dir and opens episodes.csv.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "episodes.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating episodes.csv: %w", err)
	}

	return &OutputManager{dir: dir, episodeFile: f}, nil
}

// Dir returns the output directory
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// WriteEpisode appends one record, writing the header on first use
func (om *OutputManager) WriteEpisode(rec EpisodeRecord) error {
	if om == nil {
		return nil
	}

	records := []EpisodeRecord{rec}
	if !om.headerWritten {
		if err := gocsv.Marshal(records, om.episodeFile); err != nil {
			return fmt.Errorf("writing episode: %w", err)
		}
		om.headerWritten = true
		return nil
	}

	if err := gocsv.MarshalWithoutHeaders(records, om.episodeFile); err != nil {
		return fmt.Errorf("writing episode: %w", err)
	}
	return nil
}

// ReadEpisodes loads a previously written episodes.csv
func ReadEpisodes(path string) ([]EpisodeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []EpisodeRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

// Close flushes and closes the output file
func (om *OutputManager) Close() error {
	if om == nil || om.episodeFile == nil {
		return nil
	}
	err := om.episodeFile.Close()
	om.episodeFile = nil
	return err
}
