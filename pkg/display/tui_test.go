package display

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func update(t *testing.T, m tuiModel, msg tea.Msg) (tuiModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(tuiModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model, cmd
}

func TestTUIModelTasks(t *testing.T) {
	m := newTUIModel(DefaultTheme(), nil)
	if m.View() != "" {
		t.Errorf("Expected empty view, got %q", m.View())
	}

	m, _ = update(t, m, taskStartMsg{id: 1, name: "a.png"})
	m, _ = update(t, m, taskStartMsg{id: 2, name: "b.css"})
	m, _ = update(t, m, taskProgressMsg{id: 1, percent: 140, message: "1 kB / 1 kB"})
	m, _ = update(t, m, taskStageMsg{id: 2, stage: "Fetch", target: "b.css"})

	view := m.View()
	if !strings.Contains(view, "a.png") || !strings.Contains(view, "b.css") {
		t.Errorf("Expected both tasks, got %q", view)
	}
	if !strings.Contains(view, "100%") {
		t.Errorf("Expected progress clamped to 100%%, got %q", view)
	}

	m, cmd := update(t, m, taskEndMsg{id: 1, line: "done a.png"})
	if cmd == nil {
		t.Error("Expected a print command for the finished task")
	}
	if strings.Contains(m.View(), "a.png") {
		t.Errorf("Expected a.png removed, got %q", m.View())
	}

	// Unknown ids are ignored.
	m, cmd = update(t, m, taskEndMsg{id: 9, line: "x"})
	if cmd != nil {
		t.Error("Expected no command for an unknown task")
	}
	if len(m.tasks) != 1 {
		t.Errorf("Expected one task left, got %d", len(m.tasks))
	}
}

func TestTUIModelInterrupt(t *testing.T) {
	interrupted := false
	m := newTUIModel(DefaultTheme(), func() { interrupted = true })
	m, _ = update(t, m, taskStartMsg{id: 1, name: "a.png"})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if !interrupted {
		t.Error("Expected interrupt callback")
	}
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
	if m.View() != "" {
		t.Errorf("Expected empty view after quit, got %q", m.View())
	}
}
