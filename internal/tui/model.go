// Package tui is the interactive board: task list, level and streak header,
// daily quests and badges, all driven through the tracker service.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/imkarma/studier/internal/game"
	"github.com/imkarma/studier/internal/tracker"
)

// popup is the dialog drawn over the board.
type popup int

const (
	popupNone popup = iota
	popupAdd
	popupEdit
	popupConfirmDelete
)

// Model is the top-level bubbletea model.
type Model struct {
	tracker *tracker.Service
	width   int
	height  int

	snap       *tracker.Snapshot
	cursor     int
	hideDone   bool
	refreshing bool

	// Dialog state.
	popup        popup
	popupTaskID  int64
	textInput    textinput.Model
	textInput2   textinput.Model
	inputFocused int // 0 = title, 1 = description
	difficulty   game.Difficulty

	statusMsg  string
	statusErr  bool
	statusTime time.Time

	quitting bool
}

// New creates the board model.
func New(svc *tracker.Service) Model {
	ti := textinput.New()
	ti.Placeholder = "What do you need to study?"
	ti.CharLimit = 120
	ti.Width = 50

	di := textinput.New()
	di.Placeholder = "Description (optional)..."
	di.CharLimit = 500
	di.Width = 50

	return Model{
		tracker:    svc,
		textInput:  ti,
		textInput2: di,
		difficulty: game.DifficultyMedium,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadSnapshot(), tickCmd())
}

// RefreshMsg asks the board to reload; the file watcher sends it when the
// database changes underneath us.
type RefreshMsg struct{}

type snapshotLoadedMsg struct {
	snap *tracker.Snapshot
	err  error
}

type actionDoneMsg struct {
	verb   string
	title  string
	events []game.Event
	err    error
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) loadSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.tracker.Snapshot(context.Background())
		return snapshotLoadedMsg{snap: snap, err: err}
	}
}

func (m Model) doAdd(title, desc string, diff game.Difficulty) tea.Cmd {
	return func() tea.Msg {
		task, events, err := m.tracker.AddTask(context.Background(), title, desc, diff)
		return actionDoneMsg{verb: "Added", title: task.Title, events: events, err: err}
	}
}

func (m Model) doComplete(id int64, title string) tea.Cmd {
	return func() tea.Msg {
		events, err := m.tracker.CompleteTask(context.Background(), id)
		return actionDoneMsg{verb: "Completed", title: title, events: events, err: err}
	}
}

func (m Model) doEdit(id int64, title, desc string) tea.Cmd {
	return func() tea.Msg {
		events, err := m.tracker.EditTask(context.Background(), id, title, desc)
		return actionDoneMsg{verb: "Updated", title: title, events: events, err: err}
	}
}

func (m Model) doDelete(id int64, title string) tea.Cmd {
	return func() tea.Msg {
		events, err := m.tracker.DeleteTask(context.Background(), id)
		return actionDoneMsg{verb: "Deleted", title: title, events: events, err: err}
	}
}

// rows is the task list as drawn: open tasks first, newest on top, then
// completed ones.
func (m Model) rows() []game.Task {
	if m.snap == nil {
		return nil
	}
	tasks := m.snap.State.Tasks
	var open, done []game.Task
	for i := len(tasks) - 1; i >= 0; i-- {
		if tasks[i].Completed {
			done = append(done, tasks[i])
		} else {
			open = append(open, tasks[i])
		}
	}
	if m.hideDone {
		return open
	}
	return append(open, done...)
}

func (m Model) selectedTask() *game.Task {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return nil
	}
	t := rows[m.cursor]
	return &t
}

func (m *Model) clampCursor() {
	n := len(m.rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) setStatus(msg string) {
	m.statusMsg = msg
	m.statusErr = false
	m.statusTime = time.Now()
}

func (m *Model) setError(msg string) {
	m.setStatus(msg)
	m.statusErr = true
}
