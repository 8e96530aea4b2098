package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"fatal", FatalLevel},
		{"off", Disabled},
		{"bogus", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithConfig(Config{Level: WarnLevel, Writer: &buf, NoColor: true})

	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered: %q", out)
	}
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "shown") {
		t.Errorf("expected warn line, got %q", out)
	}
}

func TestFieldsAreSortedAndInherited(t *testing.T) {
	var buf bytes.Buffer
	root := NewWithConfig(Config{Level: DebugLevel, Writer: &buf, NoColor: true})

	child := root.WithPrefix("agent").WithFields(map[string]interface{}{"zeta": 1, "alpha": 2})
	child.WithField("mid", "x").Debugf("tick %d", 3)

	out := buf.String()
	if !strings.Contains(out, "[agent] alpha=2 mid=x zeta=1 tick 3") {
		t.Errorf("unexpected line %q", out)
	}

	buf.Reset()
	child.Debug("no mid")
	if strings.Contains(buf.String(), "mid=x") {
		t.Errorf("child fields leaked into parent: %q", buf.String())
	}
}

func TestNopDropsEverything(t *testing.T) {
	log := Nop()
	log.Error("nothing")
	log.WithField("k", "v").Warn("nothing")
}

func TestTableFprint(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable("NAME", "VALUE")
	table.AddRow("GoalTime", "30")
	table.AddRow("MissileAmount", "4")
	table.Fprint(&buf)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "NAME           VALUE" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "-------------") {
		t.Errorf("unexpected separator %q", lines[1])
	}
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBarTo(&buf, false, 4, "Training")

	bar.Increment()
	bar.Update(10)
	bar.Increment()
	bar.Finish()

	out := buf.String()
	if !strings.Contains(out, "Training: [") || !strings.Contains(out, " 25% (1/4)") {
		t.Errorf("expected first redraw at 25%%, got %q", out)
	}
	if !strings.Contains(out, "100% (4/4)") {
		t.Errorf("expected clamped 100%% redraw, got %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("Finish should end the line, got %q", out)
	}
}
