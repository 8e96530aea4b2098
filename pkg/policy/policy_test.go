package policy

import (
	"reflect"
	"testing"
)

func TestNew(t *testing.T) {
	for _, name := range []string{"hold", "Random", "EVADE"} {
		t.Run(name, func(t *testing.T) {
			p, err := New(name, 1)
			if err != nil {
				t.Fatalf("New(%q) failed: %v", name, err)
			}
			if a := p.SelectAction(make([]float64, 9)); a < 0 || a > 2 {
				t.Errorf("action %d out of range", a)
			}
		})
	}

	if _, err := New("greedy", 1); err == nil {
		t.Error("expected error for unknown policy")
	}
	if !reflect.DeepEqual(Names(), []string{"evade", "hold", "random"}) {
		t.Errorf("unexpected names %v", Names())
	}
}

func TestRandomIsSeeded(t *testing.T) {
	a, b := NewRandom(42), NewRandom(42)
	counts := map[int]int{}
	for i := 0; i < 300; i++ {
		x, y := a.SelectAction(nil), b.SelectAction(nil)
		if x != y {
			t.Fatalf("same seed diverged at %d", i)
		}
		counts[x]++
	}
	if len(counts) != 3 {
		t.Errorf("expected all three actions, got %v", counts)
	}
}

func TestEvade(t *testing.T) {
	state := func(heading, dx, dy float64) []float64 {
		s := make([]float64, 9)
		s[0] = heading/180 - 1
		s[1] = 1
		s[3], s[4] = dx, dy
		return s
	}

	tests := []struct {
		name  string
		state []float64
		want  int
	}{
		{"untracked holds", make([]float64, 9), ActionHold},
		{"short state holds", []float64{0, 1}, ActionHold},
		{"threat behind holds", state(0, 0, -0.5), ActionHold},
		{"threat ahead turns", state(0, 0.01, 0.5), ActionLeft},
		{"threat on the left turns right", state(0, -0.5, 0), ActionRight},
		{"threat on the right turns left", state(0, 0.5, 0), ActionLeft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Evade{Deadband: 10}).SelectAction(tt.state); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFunc(t *testing.T) {
	p := Func(func([]float64) int { return ActionRight })
	if p.SelectAction(nil) != ActionRight {
		t.Error("Func did not forward")
	}
}
