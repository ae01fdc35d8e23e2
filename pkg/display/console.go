package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"preload/pkg/common"
)

const (
	ansiUpClear = "\x1b[1A\x1b[2K"
)

// consoleDisplay handles terminal output. Active tasks occupy the last
// lines of the output and are redrawn in place.
type consoleDisplay struct {
	mu      sync.Mutex
	out     io.Writer
	theme   *Theme
	verbose bool
	tasks   []*consoleTask
	drawn   int
}

// NewConsole creates a Display that writes to standard error.
func NewConsole() Display {
	return NewWriterDisplay(os.Stderr)
}

// NewWriterDisplay creates a Display that writes to the provided io.Writer.
func NewWriterDisplay(w io.Writer) Display {
	return &consoleDisplay{
		out:   w,
		theme: DefaultTheme(),
	}
}

func (d *consoleDisplay) StartTask(name string) Task {
	t := &consoleTask{display: d, name: name}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearLocked()
	d.tasks = append(d.tasks, t)
	d.drawLocked()
	return t
}

func (d *consoleDisplay) Log(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printAboveLocked(d.theme.Styled(d.theme.Dim, msg) + "\n")
}

// Print writes a message directly to the output writer.
func (d *consoleDisplay) Print(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printAboveLocked(msg)
}

// RenderOutput displays structured data from an Output struct to the console.
func (d *consoleDisplay) RenderOutput(out *common.Output) {
	if out == nil {
		return
	}
	d.Print(FormatOutput(out, d.theme))
}

func (d *consoleDisplay) SetVerbose(v bool) {
	d.mu.Lock()
	d.verbose = v
	d.mu.Unlock()
}

// Close erases any task lines still on screen.
func (d *consoleDisplay) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearLocked()
	d.tasks = nil
}

// printAboveLocked writes msg above the task lines.
func (d *consoleDisplay) printAboveLocked(msg string) {
	d.clearLocked()
	fmt.Fprint(d.out, msg)
	d.drawLocked()
}

func (d *consoleDisplay) clearLocked() {
	fmt.Fprint(d.out, strings.Repeat(ansiUpClear, d.drawn))
	d.drawn = 0
}

func (d *consoleDisplay) drawLocked() {
	for _, t := range d.tasks {
		fmt.Fprintln(d.out, t.line(d.theme))
	}
	d.drawn = len(d.tasks)
}

func (d *consoleDisplay) remove(t *consoleTask) bool {
	for i, other := range d.tasks {
		if other == t {
			d.tasks = append(d.tasks[:i], d.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// consoleTask is one redrawn status line.
// Mutable
type consoleTask struct {
	display *consoleDisplay

	name    string
	stage   string
	target  string
	percent int
	message string
}

func (t *consoleTask) Log(msg string) {
	d := t.display
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.verbose {
		return
	}
	d.printAboveLocked(fmt.Sprintf("%s %s\n", d.theme.Styled(d.theme.Cyan, "["+t.name+"]"), msg))
}

func (t *consoleTask) SetStage(name string, target string) {
	d := t.display
	d.mu.Lock()
	defer d.mu.Unlock()
	t.stage = name
	t.target = target
	d.clearLocked()
	d.drawLocked()
}

func (t *consoleTask) Progress(percent int, message string) {
	d := t.display
	d.mu.Lock()
	defer d.mu.Unlock()
	t.percent = min(max(percent, 0), 100)
	t.message = message
	d.clearLocked()
	d.drawLocked()
}

func (t *consoleTask) Done(message string) {
	theme := t.display.theme
	line := fmt.Sprintf("%s [%s] Done", theme.Styled(theme.Green, theme.Check), t.name)
	if message != "" {
		line += " " + message
	}
	t.finish(line)
}

func (t *consoleTask) Fail(err error) {
	theme := t.display.theme
	t.finish(fmt.Sprintf("%s [%s] Failed: %v", theme.Styled(theme.Red, theme.Cross), t.name, err))
}

// finish replaces the task line with a final line. Only the first call prints.
func (t *consoleTask) finish(line string) {
	d := t.display
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clearLocked()
	if d.remove(t) {
		fmt.Fprintln(d.out, line)
	}
	d.drawLocked()
}

func (t *consoleTask) line(theme *Theme) string {
	var sb strings.Builder
	sb.WriteString(theme.Styled(theme.Cyan, "["+t.name+"]"))
	if t.stage != "" {
		sb.WriteString(" " + theme.Styled(theme.Bold, t.stage))
	}
	if t.target != "" {
		sb.WriteString(" " + theme.Arrow + " " + t.target)
	}
	fmt.Fprintf(&sb, " %3d%%", t.percent)
	if t.message != "" {
		sb.WriteString(" " + theme.Styled(theme.Dim, t.message))
	}
	return sb.String()
}
