package telemetry

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
	"gonum.org/v1/gonum/stat"
)

// Outcome labels written to episode records
const (
	OutcomeWon     = "won"
	OutcomeLost    = "lost"
	OutcomeTimeout = "timeout"
)

// Metric is a tracked series
type Metric struct {
	Name        string
	Value       float64
	Samples     int
	LastUpdated time.Time
	History     []float64
}

// EpisodeRecord is one finished episode. The csv tags drive the CSV output.
type EpisodeRecord struct {
	RunID           string    `csv:"run_id"`
	EpisodeID       string    `csv:"episode_id"`
	Episode         int       `csv:"episode"`
	Lesson          int       `csv:"lesson"`
	Outcome         string    `csv:"outcome"`
	Return          float64   `csv:"return"`
	Ticks           int       `csv:"ticks"`
	Duration        float64   `csv:"duration_s"`
	GoalTime        float64   `csv:"goal_time"`
	ThreatCount     int       `csv:"threat_count"`
	ThreatSpeed     float64   `csv:"threat_speed"`
	ThreatEndurance float64   `csv:"threat_endurance"`
	Wins            int       `csv:"wins"`
	Losses          int       `csv:"losses"`
	FinishedAt      time.Time `csv:"-"`
}

// Summary aggregates every recorded episode
type Summary struct {
	RunID      string
	StartTime  time.Time
	Elapsed    time.Duration
	Episodes   int
	Wins       int
	Losses     int
	Timeouts   int
	WinRate    float64
	MeanReturn float64
	StdReturn  float64
	MeanTicks  float64
	Metrics    map[string]Metric
}

var (
	colorWon     = color.New(color.FgGreen)
	colorLost    = color.New(color.FgRed)
	colorTimeout = color.New(color.FgYellow)
	colorHeader  = color.New(color.FgCyan, color.Bold)
	colorDim     = color.New(color.FgHiBlack)
)

// Recorder is a Sink that keeps bounded metric history and the list of
// finished episodes for a training run.
type Recorder struct {
	runID        string
	startTime    time.Time
	historyLimit int
	out          io.Writer
	quiet        bool

	metrics  map[string]Metric
	episodes []EpisodeRecord
	mu       sync.RWMutex
}

// NewRecorder creates a recorder that echoes episode outcomes to stdout.
// historyLimit bounds each metric's history; values < 1 default to 1000.
func NewRecorder(runID string, historyLimit int) *Recorder {
	if historyLimit < 1 {
		historyLimit = 1000
	}
	return &Recorder{
		runID:        runID,
		startTime:    time.Now(),
		historyLimit: historyLimit,
		out:          os.Stdout,
		metrics:      make(map[string]Metric),
		episodes:     make([]EpisodeRecord, 0),
	}
}

// SetOutput redirects console lines; nil silences them
func (r *Recorder) SetOutput(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = w
	r.quiet = w == nil
}

// Log implements Sink
func (r *Recorder) Log(key string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	metric, exists := r.metrics[key]
	if !exists {
		metric = Metric{Name: key, History: make([]float64, 0, 64)}
	}

	metric.Value = value
	metric.Samples++
	metric.LastUpdated = time.Now()
	metric.History = append(metric.History, value)
	if len(metric.History) > r.historyLimit {
		metric.History = metric.History[len(metric.History)-r.historyLimit:]
	}

	r.metrics[key] = metric
}

// RecordEpisode stores a finished episode and prints a colored one-liner
func (r *Recorder) RecordEpisode(rec EpisodeRecord) {
	r.mu.Lock()
	if rec.RunID == "" {
		rec.RunID = r.runID
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}
	r.episodes = append(r.episodes, rec)
	out, quiet := r.out, r.quiet
	r.mu.Unlock()

	if quiet || out == nil {
		return
	}

	var outcomeColor *color.Color
	switch rec.Outcome {
	case OutcomeWon:
		outcomeColor = colorWon
	case OutcomeLost:
		outcomeColor = colorLost
	default:
		outcomeColor = colorTimeout
	}

	_, _ = fmt.Fprintf(out, "%s episode %4d | lesson %d | %s | return %8.3f | %5d ticks | W/L %d/%d\n",
		colorDim.Sprint(rec.FinishedAt.Format("15:04:05.000")),
		rec.Episode, rec.Lesson,
		outcomeColor.Sprintf("%-7s", rec.Outcome),
		rec.Return, rec.Ticks, rec.Wins, rec.Losses)
}

// Episodes returns a copy of every recorded episode
func (r *Recorder) Episodes() []EpisodeRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EpisodeRecord, len(r.episodes))
	copy(out, r.episodes)
	return out
}

// GetMetrics returns a copy of the current metrics
func (r *Recorder) GetMetrics() map[string]Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metrics := make(map[string]Metric, len(r.metrics))
	for k, v := range r.metrics {
		v.History = append([]float64(nil), v.History...)
		metrics[k] = v
	}
	return metrics
}

// GetSummary aggregates outcomes and returns
func (r *Recorder) GetSummary() Summary {
	metrics := r.GetMetrics()

	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Summary{
		RunID:     r.runID,
		StartTime: r.startTime,
		Elapsed:   time.Since(r.startTime),
		Episodes:  len(r.episodes),
		Metrics:   metrics,
	}
	if len(r.episodes) == 0 {
		return s
	}

	returns := make([]float64, len(r.episodes))
	ticks := make([]float64, len(r.episodes))
	for i, ep := range r.episodes {
		returns[i] = ep.Return
		ticks[i] = float64(ep.Ticks)
		switch ep.Outcome {
		case OutcomeWon:
			s.Wins++
		case OutcomeLost:
			s.Losses++
		default:
			s.Timeouts++
		}
	}

	s.WinRate = float64(s.Wins) / float64(len(r.episodes))
	if len(returns) > 1 {
		s.MeanReturn, s.StdReturn = stat.MeanStdDev(returns, nil)
	} else {
		s.MeanReturn = returns[0]
	}
	s.MeanTicks = stat.Mean(ticks, nil)
	return s
}

// PrintSummary writes a formatted run summary
func (r *Recorder) PrintSummary(w io.Writer) {
	summary := r.GetSummary()

	_, _ = colorHeader.Fprintf(w, "\n== TRAINING SUMMARY %s ==\n", shortID(summary.RunID))
	_, _ = fmt.Fprintf(w, "Elapsed: %v | Episodes: %d\n", summary.Elapsed.Round(time.Millisecond), summary.Episodes)
	_, _ = fmt.Fprintf(w, "Outcomes: %s / %s / %s\n",
		colorWon.Sprintf("%d won", summary.Wins),
		colorLost.Sprintf("%d lost", summary.Losses),
		colorTimeout.Sprintf("%d timeout", summary.Timeouts))
	_, _ = fmt.Fprintf(w, "Win rate: %.1f%%\n", summary.WinRate*100)
	_, _ = fmt.Fprintf(w, "Return: mean %.3f, std %.3f\n", summary.MeanReturn, summary.StdReturn)
	_, _ = fmt.Fprintf(w, "Episode length: mean %.1f ticks\n", summary.MeanTicks)

	if len(summary.Metrics) > 0 {
		names := make([]string, 0, len(summary.Metrics))
		for name := range summary.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)

		_, _ = fmt.Fprintln(w, "Last values:")
		for _, name := range names {
			_, _ = fmt.Fprintf(w, "   %-18s: %.4f\n", name, summary.Metrics[name].Value)
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
