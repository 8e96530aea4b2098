package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Icons prefixed to helper messages
const (
	IconSuccess = "✅"
	IconWarning = "⚠️"
	IconRocket  = "🚀"
	IconConfig  = "⚙️"
	IconTime    = "⏱️"
	IconFolder  = "📁"
	IconRefresh = "🔄"
	IconTarget  = "🎯"
	IconDot     = "•"
	IconArrow   = "→"
)

// Success logs a message with a green checkmark
func Success(args ...interface{}) {
	defaultLogger.Info(IconSuccess + " " + fmt.Sprint(args...))
}

// Successf logs a formatted success message
func Successf(format string, args ...interface{}) {
	Success(fmt.Sprintf(format, args...))
}

// Progress logs a progress message with a refresh icon
func Progress(args ...interface{}) {
	defaultLogger.Info(IconRefresh + " " + fmt.Sprint(args...))
}

// Progressf logs a formatted progress message
func Progressf(format string, args ...interface{}) {
	Progress(fmt.Sprintf(format, args...))
}

// defaultStyle returns where helper output goes and whether to color it
func defaultStyle() (io.Writer, bool) {
	if l, ok := defaultLogger.(*logger); ok {
		l.out.mu.Lock()
		defer l.out.mu.Unlock()
		return l.out.writer, !l.out.noColor
	}
	return os.Stdout, false
}

// LogSection prints a banner around title
func LogSection(title string) {
	w, colored := defaultStyle()
	line := strings.Repeat("=", 50)
	if colored {
		fmt.Fprintln(w, colorCyan+line+colorReset)
		fmt.Fprintln(w, colorCyan+colorBold+title+colorReset)
		fmt.Fprintln(w, colorCyan+line+colorReset)
		return
	}
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, line)
}

// LogList logs title followed by one bullet per item
func LogList(title string, items []string) {
	Info(title)
	w, _ := defaultStyle()
	for _, item := range items {
		fmt.Fprintf(w, "  %s %s\n", IconDot, item)
	}
}

// LogKeyValue prints "key: value"
func LogKeyValue(key string, value interface{}) {
	w, colored := defaultStyle()
	if colored {
		fmt.Fprintf(w, "%s%s:%s %v\n", colorCyan, key, colorReset, value)
		return
	}
	fmt.Fprintf(w, "%s: %v\n", key, value)
}

// Table is a fixed-column text table
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given headers
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends a row; extra cells are ignored when printing
func (t *Table) AddRow(values ...string) {
	t.rows = append(t.rows, values)
}

// Print writes the table to the default logger's output
func (t *Table) Print() {
	w, _ := defaultStyle()
	t.Fprint(w)
}

// Fprint writes the table to w
func (t *Table) Fprint(w io.Writer) {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow := func(cells []string) {
		parts := make([]string, 0, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts = append(parts, fmt.Sprintf("%-*s", widths[i], cell))
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	writeRow(t.headers)
	sep := make([]string, len(widths))
	for i, width := range widths {
		sep[i] = strings.Repeat("-", width)
	}
	writeRow(sep)
	for _, row := range t.rows {
		writeRow(row)
	}
}
