package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"preload/pkg/common"
)

const barWidth = 30

type (
	taskStartMsg struct {
		id   int
		name string
	}
	taskStageMsg struct {
		id            int
		stage, target string
	}
	taskProgressMsg struct {
		id      int
		percent int
		message string
	}
	taskEndMsg struct {
		id   int
		line string
	}
	printMsg struct{ text string }
)

// tuiTask is the model-side state of one task.
type tuiTask struct {
	id      int
	name    string
	stage   string
	target  string
	percent int
	message string
}

// tuiModel is the bubbletea model. It owns the active task list; finished
// tasks and printed output scroll above the live view.
type tuiModel struct {
	theme     *Theme
	bar       progress.Model
	tasks     []*tuiTask
	interrupt func()
	quitting  bool
}

func newTUIModel(theme *Theme, interrupt func()) tuiModel {
	return tuiModel{
		theme:     theme,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth), progress.WithoutPercentage()),
		interrupt: interrupt,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.interrupt != nil {
				m.interrupt()
			}
			m.quitting = true
			return m, tea.Quit
		}
	case taskStartMsg:
		m.tasks = append(m.tasks, &tuiTask{id: msg.id, name: msg.name})
	case taskStageMsg:
		if t := m.find(msg.id); t != nil {
			t.stage, t.target = msg.stage, msg.target
		}
	case taskProgressMsg:
		if t := m.find(msg.id); t != nil {
			t.percent = min(max(msg.percent, 0), 100)
			t.message = msg.message
		}
	case taskEndMsg:
		for i, t := range m.tasks {
			if t.id == msg.id {
				m.tasks = append(m.tasks[:i:i], m.tasks[i+1:]...)
				return m, tea.Println(msg.line)
			}
		}
	case printMsg:
		return m, tea.Println(strings.TrimRight(msg.text, "\n"))
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.quitting || len(m.tasks) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, t := range m.tasks {
		fmt.Fprintf(&sb, "%s %s %3d%%", m.bar.ViewAs(float64(t.percent)/100), m.theme.Styled(m.theme.Cyan, t.name), t.percent)
		if t.message != "" {
			sb.WriteString(" " + m.theme.Styled(m.theme.Dim, t.message))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m tuiModel) find(id int) *tuiTask {
	for _, t := range m.tasks {
		if t.id == id {
			return t
		}
	}
	return nil
}

// tuiDisplay drives a bubbletea program from Display calls.
type tuiDisplay struct {
	program *tea.Program
	theme   *Theme
	done    chan struct{}

	mu      sync.Mutex
	nextID  int
	verbose bool
	closed  bool
}

// NewTUI starts an interactive progress view on standard error.
// interrupt is called when the user presses ctrl+c.
func NewTUI(interrupt func()) Display {
	return newTUI(os.Stdin, os.Stderr, interrupt)
}

func newTUI(in io.Reader, out io.Writer, interrupt func()) *tuiDisplay {
	theme := DefaultTheme()
	d := &tuiDisplay{
		theme: theme,
		done:  make(chan struct{}),
	}
	d.program = tea.NewProgram(newTUIModel(theme, interrupt), tea.WithInput(in), tea.WithOutput(out))
	go func() {
		defer close(d.done)
		d.program.Run()
	}()
	return d
}

func (d *tuiDisplay) StartTask(name string) Task {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.mu.Unlock()

	d.program.Send(taskStartMsg{id: id, name: name})
	return &tuiTaskHandle{display: d, id: id, name: name}
}

func (d *tuiDisplay) Log(msg string) {
	d.program.Send(printMsg{text: d.theme.Styled(d.theme.Dim, msg)})
}

func (d *tuiDisplay) Print(msg string) {
	d.program.Send(printMsg{text: msg})
}

func (d *tuiDisplay) RenderOutput(out *common.Output) {
	if out == nil {
		return
	}
	d.Print(FormatOutput(out, d.theme))
}

func (d *tuiDisplay) SetVerbose(v bool) {
	d.mu.Lock()
	d.verbose = v
	d.mu.Unlock()
}

func (d *tuiDisplay) isVerbose() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.verbose
}

// Close stops the program and waits for it to restore the terminal.
func (d *tuiDisplay) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.program.Quit()
	<-d.done
}

// tuiTaskHandle is the Task returned by tuiDisplay.StartTask.
type tuiTaskHandle struct {
	display *tuiDisplay
	id      int
	name    string
	once    sync.Once
}

func (t *tuiTaskHandle) Log(msg string) {
	if !t.display.isVerbose() {
		return
	}
	theme := t.display.theme
	t.display.program.Send(printMsg{text: theme.Styled(theme.Cyan, "["+t.name+"]") + " " + msg})
}

func (t *tuiTaskHandle) SetStage(name string, target string) {
	t.display.program.Send(taskStageMsg{id: t.id, stage: name, target: target})
}

func (t *tuiTaskHandle) Progress(percent int, message string) {
	t.display.program.Send(taskProgressMsg{id: t.id, percent: percent, message: message})
}

func (t *tuiTaskHandle) Done(message string) {
	theme := t.display.theme
	line := fmt.Sprintf("%s [%s] Done", theme.Styled(theme.Green, theme.Check), t.name)
	if message != "" {
		line += " " + message
	}
	t.end(line)
}

func (t *tuiTaskHandle) Fail(err error) {
	theme := t.display.theme
	t.end(fmt.Sprintf("%s [%s] Failed: %v", theme.Styled(theme.Red, theme.Cross), t.name, err))
}

func (t *tuiTaskHandle) end(line string) {
	t.once.Do(func() {
		t.display.program.Send(taskEndMsg{id: t.id, line: line})
	})
}
