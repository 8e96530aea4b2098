package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ProgressBar redraws a single line as work completes
type ProgressBar struct {
	mu      sync.Mutex
	w       io.Writer
	colored bool
	total   int
	current int
	width   int
	message string
}

// NewProgressBar creates a bar on the default logger's output
func NewProgressBar(total int, message string) *ProgressBar {
	w, colored := defaultStyle()
	return NewProgressBarTo(w, colored, total, message)
}

// NewProgressBarTo creates a bar drawing to w
func NewProgressBarTo(w io.Writer, colored bool, total int, message string) *ProgressBar {
	if total < 1 {
		total = 1
	}
	return &ProgressBar{
		w:       w,
		colored: colored,
		total:   total,
		width:   40,
		message: message,
	}
}

// Update sets the completed count, clamped to [0, total]
func (p *ProgressBar) Update(current int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = max(0, min(current, p.total))
	p.draw()
}

// Increment advances the bar by one
func (p *ProgressBar) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current < p.total {
		p.current++
	}
	p.draw()
}

// SetMessage replaces the label drawn before the bar
func (p *ProgressBar) SetMessage(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.message = message
}

// Finish ends the line; the bar keeps the count it reached
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draw()
	_, _ = fmt.Fprintln(p.w)
}

func (p *ProgressBar) draw() {
	percent := float64(p.current) / float64(p.total)
	filled := int(percent * float64(p.width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)

	if p.colored {
		_, _ = fmt.Fprintf(p.w, "\r%s: %s%s%s %3.0f%% (%d/%d)", p.message, colorGreen, bar, colorReset, percent*100, p.current, p.total)
		return
	}
	_, _ = fmt.Fprintf(p.w, "\r%s: [%s] %3.0f%% (%d/%d)", p.message, bar, percent*100, p.current, p.total)
}
