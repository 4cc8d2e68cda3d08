package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/imkarma/studier/internal/game"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.popup != popupNone {
			return m.handlePopupKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case snapshotLoadedMsg:
		m.refreshing = false
		if msg.err != nil {
			m.setError("Failed to load: " + msg.err.Error())
			return m, nil
		}
		m.snap = msg.snap
		m.clampCursor()
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.setError(msg.verb + " failed: " + msg.err.Error())
			return m, nil
		}
		m.popup = popupNone
		m.setStatus(summarize(msg.verb, msg.title, msg.events))
		return m, m.loadSnapshot()

	case RefreshMsg:
		if m.refreshing {
			return m, nil
		}
		m.refreshing = true
		return m, m.loadSnapshot()

	case tickMsg:
		if m.statusMsg != "" && time.Since(m.statusTime) > 5*time.Second {
			m.statusMsg = ""
		}
		cmds := []tea.Cmd{tickCmd()}
		// Quests reset and streaks lapse at midnight.
		if m.snap != nil && !m.refreshing && !game.DateOf(m.tracker.Now()).Equal(m.snap.Today) {
			m.refreshing = true
			cmds = append(cmds, m.loadSnapshot())
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "j", "down":
		m.cursor++
		m.clampCursor()
	case "k", "up":
		m.cursor--
		m.clampCursor()
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = len(m.rows()) - 1
		m.clampCursor()

	case "a", "ctrl+n":
		m.popup = popupAdd
		m.textInput.Reset()
		m.textInput.Focus()
		m.textInput2.Reset()
		m.textInput2.Blur()
		m.inputFocused = 0
		m.difficulty = game.DifficultyMedium
		return m, textinput.Blink

	case "c", "enter", " ":
		if t := m.selectedTask(); t != nil {
			if t.Completed {
				m.setStatus("Already done: " + t.Title)
				return m, nil
			}
			return m, m.doComplete(t.ID, t.Title)
		}

	case "e":
		if t := m.selectedTask(); t != nil {
			if t.Completed {
				m.setError("Completed tasks cannot be edited")
				return m, nil
			}
			m.popup = popupEdit
			m.popupTaskID = t.ID
			m.textInput.SetValue(t.Title)
			m.textInput.CursorEnd()
			m.textInput.Focus()
			m.textInput2.SetValue(t.Description)
			m.textInput2.Blur()
			m.inputFocused = 0
			return m, textinput.Blink
		}

	case "d", "x":
		if t := m.selectedTask(); t != nil {
			m.popup = popupConfirmDelete
			m.popupTaskID = t.ID
			return m, nil
		}

	case "h":
		m.hideDone = !m.hideDone
		m.clampCursor()

	case "r":
		m.refreshing = true
		return m, m.loadSnapshot()
	}

	return m, nil
}

// --- Popup keys ---

func (m Model) handlePopupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.popup {
	case popupAdd, popupEdit:
		return m.handleTaskFormPopup(msg)
	case popupConfirmDelete:
		return m.handleConfirmDeletePopup(msg)
	}
	return m, nil
}

func (m Model) handleTaskFormPopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.popup = popupNone
		return m, nil
	case "tab", "shift+tab":
		if m.inputFocused == 0 {
			m.textInput.Blur()
			m.textInput2.Focus()
			m.inputFocused = 1
		} else {
			m.textInput2.Blur()
			m.textInput.Focus()
			m.inputFocused = 0
		}
		return m, textinput.Blink
	case "ctrl+d":
		if m.popup == popupAdd {
			m.difficulty = m.difficulty.Next()
		}
		return m, nil
	case "enter":
		title := strings.TrimSpace(m.textInput.Value())
		if title == "" {
			m.setError("Title cannot be empty")
			return m, nil
		}
		desc := strings.TrimSpace(m.textInput2.Value())
		if m.popup == popupEdit {
			return m, m.doEdit(m.popupTaskID, title, desc)
		}
		return m, m.doAdd(title, desc, m.difficulty)
	}

	var cmd tea.Cmd
	if m.inputFocused == 0 {
		m.textInput, cmd = m.textInput.Update(msg)
	} else {
		m.textInput2, cmd = m.textInput2.Update(msg)
	}
	return m, cmd
}

func (m Model) handleConfirmDeletePopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.popup = popupNone
		title := ""
		if m.snap != nil {
			if t, ok := m.snap.State.Tasks.Get(m.popupTaskID); ok {
				title = t.Title
			}
		}
		return m, m.doDelete(m.popupTaskID, title)
	case "n", "esc":
		m.popup = popupNone
	}
	return m, nil
}

// summarize builds the status line for a finished action, putting the
// rewards first.
func summarize(verb, title string, events []game.Event) string {
	parts := []string{verb + ": " + title}
	for _, ev := range events {
		switch ev.Kind {
		case game.EventXPGained:
			if ev.Source == "task" {
				parts = append(parts, "+"+itoa(ev.Amount)+" XP")
			}
		case game.EventLevelUp, game.EventQuestCompleted, game.EventBadgeEarned,
			game.EventStreakMilestone, game.EventStreakBroken:
			parts = append(parts, ev.Describe())
		}
	}
	return strings.Join(parts, " · ")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	s := ""
	for n > 0 {
		s = string(rune('0'+n%10)) + s
		n /= 10
	}
	if neg {
		s = "-" + s
	}
	return s
}
