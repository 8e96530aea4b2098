//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/picogrid/evasion-sim/pkg/telemetry"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	return NewSQLiteStore(path), nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveEpisode(ctx context.Context, rec telemetry.EpisodeRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO episodes (
			run_id, episode, episode_id, lesson, outcome, return_value, ticks, duration_s,
			goal_time, threat_count, threat_speed, threat_endurance, wins, losses, finished_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, episode) DO UPDATE SET
			episode_id = excluded.episode_id,
			lesson = excluded.lesson,
			outcome = excluded.outcome,
			return_value = excluded.return_value,
			ticks = excluded.ticks,
			duration_s = excluded.duration_s,
			goal_time = excluded.goal_time,
			threat_count = excluded.threat_count,
			threat_speed = excluded.threat_speed,
			threat_endurance = excluded.threat_endurance,
			wins = excluded.wins,
			losses = excluded.losses,
			finished_at = excluded.finished_at
	`, rec.RunID, rec.Episode, rec.EpisodeID, rec.Lesson, rec.Outcome, rec.Return, rec.Ticks, rec.Duration,
		rec.GoalTime, rec.ThreatCount, rec.ThreatSpeed, rec.ThreatEndurance, rec.Wins, rec.Losses,
		rec.FinishedAt.UTC().UnixNano())
	return err
}

func (s *SQLiteStore) ListEpisodes(ctx context.Context, runID string) ([]telemetry.EpisodeRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, episode, episode_id, lesson, outcome, return_value, ticks, duration_s,
			goal_time, threat_count, threat_speed, threat_endurance, wins, losses, finished_at
		FROM episodes WHERE run_id = ? ORDER BY episode
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []telemetry.EpisodeRecord
	for rows.Next() {
		var rec telemetry.EpisodeRecord
		var finished int64
		if err := rows.Scan(&rec.RunID, &rec.Episode, &rec.EpisodeID, &rec.Lesson, &rec.Outcome, &rec.Return,
			&rec.Ticks, &rec.Duration, &rec.GoalTime, &rec.ThreatCount, &rec.ThreatSpeed, &rec.ThreatEndurance,
			&rec.Wins, &rec.Losses, &finished); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		rec.FinishedAt = time.Unix(0, finished).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT DISTINCT run_id FROM episodes ORDER BY run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS episodes (
			run_id TEXT NOT NULL,
			episode INTEGER NOT NULL,
			episode_id TEXT NOT NULL,
			lesson INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			return_value REAL NOT NULL,
			ticks INTEGER NOT NULL,
			duration_s REAL NOT NULL,
			goal_time REAL NOT NULL,
			threat_count INTEGER NOT NULL,
			threat_speed REAL NOT NULL,
			threat_endurance REAL NOT NULL,
			wins INTEGER NOT NULL,
			losses INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			PRIMARY KEY (run_id, episode)
		);
	`)
	return err
}
